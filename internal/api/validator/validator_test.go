package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type geometryPayload struct {
	Geometry datatypes.JSON `json:"geometry" validate:"omitempty,geojson"`
}

func TestGeoJSONValidation(t *testing.T) {
	v := NewValidator()
	require.NotNil(t, v)

	cases := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"point", `{"type":"Point","coordinates":[-82.55,35.59]}`, false},
		{"polygon", `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`, false},
		{"unknown type", `{"type":"Circle","coordinates":[0,0]}`, true},
		{"not json", `not json at all`, true},
		{"feature instead of geometry", `{"type":"Feature","geometry":null}`, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(geometryPayload{Geometry: datatypes.JSON(tc.payload)})
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	// Absent geometry is fine: templates are not forced to be geospatial
	assert.NoError(t, v.Validate(geometryPayload{}))
}

type statusPayload struct {
	Status string `json:"status" validate:"omitempty,feature_status"`
}

func TestFeatureStatusValidation(t *testing.T) {
	v := NewValidator()
	require.NotNil(t, v)

	assert.NoError(t, v.Validate(statusPayload{Status: "ACTIVE"}))
	assert.NoError(t, v.Validate(statusPayload{Status: "PENDING"}))
	assert.NoError(t, v.Validate(statusPayload{Status: "REMOVED"}))
	assert.Error(t, v.Validate(statusPayload{Status: "archived"}))
}

func TestValidationErrorsUseJSONFieldNames(t *testing.T) {
	v := NewValidator()
	require.NotNil(t, v)

	type payload struct {
		DisplayName string `json:"displayName" validate:"required"`
	}

	err := v.Validate(payload{})
	require.Error(t, err)

	validationErrors, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, validationErrors, 1)
	assert.Equal(t, "displayName", validationErrors[0].Field())
}
