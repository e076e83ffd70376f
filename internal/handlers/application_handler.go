package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"geocommons/internal/api/middleware"
	"geocommons/internal/services"
	"geocommons/internal/utils/logger"
)

type ApplicationHandler struct {
	applications *services.ApplicationService
	log          *logger.Logger
}

func NewApplicationHandler(applications *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{
		applications: applications,
		log:          logger.New("ApplicationHandler"),
	}
}

// Create creates an application owned by the caller
// @Summary Create an application
// @Tags applications
// @Accept json
// @Produce json
// @Param request body services.CreateApplicationInput true "Application details"
// @Success 201 {object} models.Application
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /applications [post]
func (h *ApplicationHandler) Create(c echo.Context) error {
	var input services.CreateApplicationInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	application, err := h.applications.Create(c.Request().Context(), middleware.CurrentUser(c), input)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, application)
}

// List returns the applications visible to the caller
// @Summary List visible applications
// @Tags applications
// @Produce json
// @Success 200 {array} models.Application
// @Router /applications [get]
func (h *ApplicationHandler) List(c echo.Context) error {
	applications, err := h.applications.List(c.Request().Context(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, applications)
}

// Get returns one application
// @Summary Get an application
// @Tags applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} models.Application
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c echo.Context) error {
	application, err := h.applications.Get(c.Request().Context(), c.Param("id"), middleware.CurrentUser(c), true)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, application)
}

// Update applies a partial update to an application
// @Summary Update an application
// @Tags applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param request body services.UpdateApplicationInput true "Fields to change"
// @Success 200 {object} models.Application
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /applications/{id} [put]
func (h *ApplicationHandler) Update(c echo.Context) error {
	var input services.UpdateApplicationInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	application, err := h.applications.Update(c.Request().Context(), c.Param("id"), middleware.CurrentUser(c), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, application)
}

// Delete removes an application and everything under it
// @Summary Delete an application
// @Tags applications
// @Param id path string true "Application ID"
// @Success 204
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /applications/{id} [delete]
func (h *ApplicationHandler) Delete(c echo.Context) error {
	if err := h.applications.Delete(c.Request().Context(), c.Param("id"), middleware.CurrentUser(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Users lists the grant rows on an application
// @Summary List application users
// @Tags applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {array} models.UserApplication
// @Router /applications/{id}/users [get]
func (h *ApplicationHandler) Users(c echo.Context) error {
	grants, err := h.applications.Users(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, grants)
}

// GrantPermission creates a grant row for a user
// @Summary Grant application access to a user
// @Tags applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param userId path string true "User ID"
// @Param request body services.ApplicationGrantInput true "Capabilities"
// @Success 201 {object} models.UserApplication
// @Failure 409 {object} map[string]string "Grant already exists"
// @Router /applications/{id}/users/{userId} [post]
func (h *ApplicationHandler) GrantPermission(c echo.Context) error {
	var input services.ApplicationGrantInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	grant, err := h.applications.GrantPermission(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"), c.Param("userId"), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, grant)
}

// GetPermission returns one user's grant row
// @Summary Get a user's application grant
// @Tags applications
// @Produce json
// @Param id path string true "Application ID"
// @Param userId path string true "User ID"
// @Success 200 {object} models.UserApplication
// @Router /applications/{id}/users/{userId} [get]
func (h *ApplicationHandler) GetPermission(c echo.Context) error {
	grant, err := h.applications.GetPermission(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"), c.Param("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, grant)
}

// UpdatePermission changes the capabilities on an existing grant
// @Summary Update a user's application grant
// @Tags applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param userId path string true "User ID"
// @Param request body services.UpdateApplicationGrantInput true "Capabilities to change"
// @Success 200 {object} models.UserApplication
// @Router /applications/{id}/users/{userId} [put]
func (h *ApplicationHandler) UpdatePermission(c echo.Context) error {
	var input services.UpdateApplicationGrantInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	grant, err := h.applications.UpdatePermission(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"), c.Param("userId"), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, grant)
}

// RevokePermission deletes a user's grant row
// @Summary Revoke a user's application access
// @Tags applications
// @Param id path string true "Application ID"
// @Param userId path string true "User ID"
// @Success 204
// @Router /applications/{id}/users/{userId} [delete]
func (h *ApplicationHandler) RevokePermission(c echo.Context) error {
	if err := h.applications.RevokePermission(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"), c.Param("userId")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
