package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"geocommons/internal/api/middleware"
	"geocommons/internal/services"
	"geocommons/internal/utils/logger"
)

type FeatureHandler struct {
	features *services.FeatureService
	log      *logger.Logger
}

func NewFeatureHandler(features *services.FeatureService) *FeatureHandler {
	return &FeatureHandler{
		features: features,
		log:      logger.New("FeatureHandler"),
	}
}

// Create adds a feature row to a template's feature table
// @Summary Create a feature
// @Tags features
// @Accept json
// @Produce json
// @Param templateId path string true "Template ID"
// @Param request body services.CreateFeatureInput true "Feature body"
// @Success 201 {object} services.FeatureRecord
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /templates/{templateId}/features [post]
func (h *FeatureHandler) Create(c echo.Context) error {
	var input services.CreateFeatureInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	record, err := h.features.Create(c.Request().Context(), c.Param("templateId"), middleware.CurrentUser(c), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, record)
}

// List returns the template's features visible to the caller
// @Summary List features of a template
// @Tags features
// @Produce json
// @Param templateId path string true "Template ID"
// @Success 200 {array} services.FeatureRecord
// @Router /templates/{templateId}/features [get]
func (h *FeatureHandler) List(c echo.Context) error {
	records, err := h.features.List(c.Request().Context(), c.Param("templateId"), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

// Get returns one feature row
// @Summary Get a feature
// @Tags features
// @Produce json
// @Param templateId path string true "Template ID"
// @Param id path string true "Feature ID"
// @Success 200 {object} services.FeatureRecord
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /templates/{templateId}/features/{id} [get]
func (h *FeatureHandler) Get(c echo.Context) error {
	record, err := h.features.Get(c.Request().Context(), c.Param("templateId"), c.Param("id"), middleware.CurrentUser(c), true)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, record)
}

// Update applies a partial update to a feature row
// @Summary Update a feature
// @Tags features
// @Accept json
// @Produce json
// @Param templateId path string true "Template ID"
// @Param id path string true "Feature ID"
// @Param request body services.UpdateFeatureInput true "Fields to change"
// @Success 200 {object} services.FeatureRecord
// @Router /templates/{templateId}/features/{id} [put]
func (h *FeatureHandler) Update(c echo.Context) error {
	var input services.UpdateFeatureInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	record, err := h.features.Update(c.Request().Context(), c.Param("templateId"), c.Param("id"), middleware.CurrentUser(c), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, record)
}

// Delete removes a feature row
// @Summary Delete a feature
// @Tags features
// @Param templateId path string true "Template ID"
// @Param id path string true "Feature ID"
// @Success 204
// @Router /templates/{templateId}/features/{id} [delete]
func (h *FeatureHandler) Delete(c echo.Context) error {
	if err := h.features.Delete(c.Request().Context(), c.Param("templateId"), c.Param("id"), middleware.CurrentUser(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
