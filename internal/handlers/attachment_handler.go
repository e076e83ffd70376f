package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"geocommons/internal/api/middleware"
	"geocommons/internal/services"
	"geocommons/internal/utils/logger"
)

type AttachmentHandler struct {
	attachments *services.AttachmentService
	log         *logger.Logger
}

func NewAttachmentHandler(attachments *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{
		attachments: attachments,
		log:         logger.New("attachment_handler"),
	}
}

// Upload attaches a file to a feature
// @Summary Upload a feature attachment
// @Tags attachments
// @Accept multipart/form-data
// @Produce json
// @Param templateId path string true "Template ID"
// @Param featureId path string true "Feature ID"
// @Param file formData file true "File to upload"
// @Success 201 {object} models.Attachment
// @Failure 400 {object} map[string]string "Validation error or file not found"
// @Router /templates/{templateId}/features/{featureId}/attachments [post]
func (h *AttachmentHandler) Upload(c echo.Context) error {
	contentType := c.Request().Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Content-Type must be multipart/form-data",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		h.log.Error("Failed to get file from request", err)
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "No file provided",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to open file",
		})
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to read file",
		})
	}

	attachment, err := h.attachments.Upload(c.Request().Context(), c.Param("templateId"), c.Param("featureId"), middleware.CurrentUser(c), services.UploadAttachmentInput{
		Name:        file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Body:        content,
	})
	if err != nil {
		return respondError(c, err)
	}

	h.log.Success("Attachment %s uploaded for feature %s", attachment.ID, attachment.FeatureID)
	return c.JSON(http.StatusCreated, attachment)
}

// List returns the attachments on a feature
// @Summary List feature attachments
// @Tags attachments
// @Produce json
// @Param templateId path string true "Template ID"
// @Param featureId path string true "Feature ID"
// @Success 200 {array} models.Attachment
// @Router /templates/{templateId}/features/{featureId}/attachments [get]
func (h *AttachmentHandler) List(c echo.Context) error {
	attachments, err := h.attachments.List(c.Request().Context(), c.Param("templateId"), c.Param("featureId"), middleware.CurrentUser(c), true)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, attachments)
}

// Delete removes an attachment
// @Summary Delete a feature attachment
// @Tags attachments
// @Param templateId path string true "Template ID"
// @Param featureId path string true "Feature ID"
// @Param id path string true "Attachment ID"
// @Success 204
// @Router /templates/{templateId}/features/{featureId}/attachments/{id} [delete]
func (h *AttachmentHandler) Delete(c echo.Context) error {
	if err := h.attachments.Delete(c.Request().Context(), c.Param("templateId"), c.Param("featureId"), c.Param("id"), middleware.CurrentUser(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
