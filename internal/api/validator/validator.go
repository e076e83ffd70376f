package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ValidationErrors wraps the validator's ValidationErrors
type ValidationErrors []playgroundvalidator.FieldError

// CustomValidator wraps go-playground/validator
type CustomValidator struct {
	validator *playgroundvalidator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() echo.Validator {
	v := playgroundvalidator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	err := v.RegisterValidation("geojson", validateGeoJSON)
	if err != nil {
		return nil
	}
	err = v.RegisterValidation("feature_status", validateFeatureStatus)
	if err != nil {
		return nil
	}

	return &CustomValidator{validator: v}
}

var geoJSONTypes = map[string]bool{
	"Point":              true,
	"MultiPoint":         true,
	"LineString":         true,
	"MultiLineString":    true,
	"Polygon":            true,
	"MultiPolygon":       true,
	"GeometryCollection": true,
}

// validateGeoJSON accepts raw JSON bytes carrying a GeoJSON geometry object
func validateGeoJSON(fl playgroundvalidator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.Slice {
		return false
	}
	raw := fl.Field().Bytes()
	if len(raw) == 0 {
		return true
	}

	var geometry struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &geometry); err != nil {
		return false
	}
	return geoJSONTypes[geometry.Type]
}

func validateFeatureStatus(fl playgroundvalidator.FieldLevel) bool {
	status := fl.Field().String()
	return status == "ACTIVE" || status == "PENDING" || status == "REMOVED"
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		var validationErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return ValidationErrors(validationErrors)
		}
		return err
	}
	return nil
}

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var fields []string
	for _, err := range ve {
		fields = append(fields, err.Field())
	}
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(fields, ", "))
}
