package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"geocommons/internal/api/middleware"
	"geocommons/internal/services"
	"geocommons/internal/utils/logger"
)

type TemplateHandler struct {
	templates *services.TemplateService
	log       *logger.Logger
}

func NewTemplateHandler(templates *services.TemplateService) *TemplateHandler {
	return &TemplateHandler{
		templates: templates,
		log:       logger.New("TemplateHandler"),
	}
}

// Create creates a template under an application and provisions its
// feature table
// @Summary Create a template
// @Tags templates
// @Accept json
// @Produce json
// @Param applicationId path string true "Application ID"
// @Param request body services.CreateTemplateInput true "Template details"
// @Success 201 {object} models.Template
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /applications/{applicationId}/templates [post]
func (h *TemplateHandler) Create(c echo.Context) error {
	var input services.CreateTemplateInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	template, err := h.templates.Create(c.Request().Context(), middleware.CurrentUser(c), c.Param("applicationId"), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, template)
}

// List returns the application's templates visible to the caller
// @Summary List templates of an application
// @Tags templates
// @Produce json
// @Param applicationId path string true "Application ID"
// @Success 200 {array} models.Template
// @Router /applications/{applicationId}/templates [get]
func (h *TemplateHandler) List(c echo.Context) error {
	templates, err := h.templates.ListByApplication(c.Request().Context(), c.Param("applicationId"), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, templates)
}

// Get returns one template
// @Summary Get a template
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} models.Template
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /templates/{id} [get]
func (h *TemplateHandler) Get(c echo.Context) error {
	template, err := h.templates.Get(c.Request().Context(), c.Param("id"), middleware.CurrentUser(c), true)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, template)
}

// Update applies a partial update to a template
// @Summary Update a template
// @Tags templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param request body services.UpdateTemplateInput true "Fields to change"
// @Success 200 {object} models.Template
// @Router /templates/{id} [put]
func (h *TemplateHandler) Update(c echo.Context) error {
	var input services.UpdateTemplateInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	template, err := h.templates.Update(c.Request().Context(), c.Param("id"), middleware.CurrentUser(c), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, template)
}

// Delete removes a template and its grant rows
// @Summary Delete a template
// @Tags templates
// @Param id path string true "Template ID"
// @Success 204
// @Router /templates/{id} [delete]
func (h *TemplateHandler) Delete(c echo.Context) error {
	if err := h.templates.Delete(c.Request().Context(), c.Param("id"), middleware.CurrentUser(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Users lists the grant rows on a template
// @Summary List template users
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {array} models.UserTemplate
// @Router /templates/{id}/users [get]
func (h *TemplateHandler) Users(c echo.Context) error {
	grants, err := h.templates.Users(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, grants)
}

// GrantPermission creates a grant row for a user
// @Summary Grant template access to a user
// @Tags templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param userId path string true "User ID"
// @Param request body services.TemplateGrantInput true "Capabilities"
// @Success 201 {object} models.UserTemplate
// @Failure 409 {object} map[string]string "Grant already exists"
// @Router /templates/{id}/users/{userId} [post]
func (h *TemplateHandler) GrantPermission(c echo.Context) error {
	var input services.TemplateGrantInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	grant, err := h.templates.GrantPermission(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"), c.Param("userId"), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, grant)
}

// GetPermission returns one user's grant row
// @Summary Get a user's template grant
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Param userId path string true "User ID"
// @Success 200 {object} models.UserTemplate
// @Router /templates/{id}/users/{userId} [get]
func (h *TemplateHandler) GetPermission(c echo.Context) error {
	grant, err := h.templates.GetPermission(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"), c.Param("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, grant)
}

// UpdatePermission changes the capabilities on an existing grant
// @Summary Update a user's template grant
// @Tags templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param userId path string true "User ID"
// @Param request body services.UpdateTemplateGrantInput true "Capabilities to change"
// @Success 200 {object} models.UserTemplate
// @Router /templates/{id}/users/{userId} [put]
func (h *TemplateHandler) UpdatePermission(c echo.Context) error {
	var input services.UpdateTemplateGrantInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	grant, err := h.templates.UpdatePermission(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"), c.Param("userId"), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, grant)
}

// RevokePermission deletes a user's grant row
// @Summary Revoke a user's template access
// @Tags templates
// @Param id path string true "Template ID"
// @Param userId path string true "User ID"
// @Success 204
// @Router /templates/{id}/users/{userId} [delete]
func (h *TemplateHandler) RevokePermission(c echo.Context) error {
	if err := h.templates.RevokePermission(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"), c.Param("userId")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
