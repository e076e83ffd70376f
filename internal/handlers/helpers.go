package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"geocommons/internal/apperrors"
)

// respondError translates service errors into HTTP responses. Validation
// maps to 400, auth to 401, missing to 404, duplicates to 409; anything
// else is a 500 with a generic body.
func respondError(c echo.Context, err error) error {
	var (
		validationErr *apperrors.ValidationError
		authErr       *apperrors.AuthError
		notFoundErr   *apperrors.NotFoundError
		conflictErr   *apperrors.ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": validationErr.Error()})
	case errors.As(err, &authErr):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": authErr.Error()})
	case errors.As(err, &notFoundErr):
		return c.JSON(http.StatusNotFound, map[string]string{"error": notFoundErr.Error()})
	case errors.As(err, &conflictErr):
		return c.JSON(http.StatusConflict, map[string]string{"error": conflictErr.Error()})
	}

	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}
