package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"geocommons/internal/apperrors"
	"geocommons/internal/models"
	"geocommons/internal/utils/logger"
)

// FileStorage is the slice of S3Service the attachment service needs.
// Narrowed to an interface so tests can run without object storage.
type FileStorage interface {
	UploadFile(ctx context.Context, file []byte, filename, contentType string) (string, error)
	DeleteFile(ctx context.Context, path string) error
}

// AttachmentService manages the files bound to feature rows. Permission
// checks delegate to the feature service: uploading follows the feature's
// edit rule, reading follows its view rule.
type AttachmentService struct {
	db       *gorm.DB
	features *FeatureService
	storage  FileStorage
	log      *logger.Logger
}

func NewAttachmentService(db *gorm.DB, features *FeatureService, storage FileStorage) *AttachmentService {
	return &AttachmentService{
		db:       db,
		features: features,
		storage:  storage,
		log:      logger.New("attachment_service"),
	}
}

type UploadAttachmentInput struct {
	Name        string `validate:"required"`
	ContentType string `validate:"required"`
	Body        []byte `validate:"required"`
}

// Upload stores the file and records an attachment row against the feature
func (s *AttachmentService) Upload(ctx context.Context, templateID, featureID string, principal *models.User, input UploadAttachmentInput) (*models.Attachment, error) {
	if s.storage == nil {
		return nil, errors.New("object storage is not configured")
	}
	if principal.IsAnonymous() {
		return nil, apperrors.NewAuth("authentication required to upload attachments")
	}
	if len(input.Body) == 0 {
		return nil, apperrors.NewValidation("file", "file body is empty")
	}

	template, err := s.features.findTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	record, err := s.features.store.Get(ctx, template.Storage, featureID)
	if err != nil {
		return nil, err
	}

	editable, err := s.features.canEditRecord(ctx, principal, template, record)
	if err != nil {
		return nil, err
	}
	if !editable {
		s.log.Warn("User %s denied attachment upload on feature %s", principal.ID, featureID)
		return nil, apperrors.NewAuth("you do not have edit access to this feature")
	}

	path, err := s.storage.UploadFile(ctx, input.Body, input.Name, input.ContentType)
	if err != nil {
		return nil, err
	}

	attachment := &models.Attachment{
		Storage:   template.Storage,
		FeatureID: featureID,
		OwnerID:   principal.ID,
		Path:      path,
		Name:      input.Name,
		Size:      int64(len(input.Body)),
		Type:      input.ContentType,
	}
	if err := s.db.WithContext(ctx).Create(attachment).Error; err != nil {
		if delErr := s.storage.DeleteFile(ctx, path); delErr != nil {
			s.log.Warn("Orphaned object %s after failed attachment insert: %v", path, delErr)
		}
		return nil, s.log.Error("Failed to record attachment", err)
	}

	return attachment, nil
}

// List returns the attachments on a feature the principal may view
func (s *AttachmentService) List(ctx context.Context, templateID, featureID string, principal *models.User, allowPublic bool) ([]models.Attachment, error) {
	// Reuse the feature read gate, including the public bypass
	if _, err := s.features.Get(ctx, templateID, featureID, principal, allowPublic); err != nil {
		return nil, err
	}

	template, err := s.features.findTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	attachments := []models.Attachment{}
	err = s.db.WithContext(ctx).
		Where("storage = ? AND feature_id = ? AND is_deleted = ?", template.Storage, featureID, false).
		Order("created_at").
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}

	return attachments, nil
}

// Delete removes the attachment row and its stored object. The uploader and
// anyone allowed to edit the feature may delete.
func (s *AttachmentService) Delete(ctx context.Context, templateID, featureID, attachmentID string, principal *models.User) error {
	template, err := s.features.findTemplate(ctx, templateID)
	if err != nil {
		return err
	}
	record, err := s.features.store.Get(ctx, template.Storage, featureID)
	if err != nil {
		return err
	}

	var attachment models.Attachment
	err = s.db.WithContext(ctx).
		Where("id = ? AND storage = ? AND feature_id = ? AND is_deleted = ?", attachmentID, template.Storage, featureID, false).
		First(&attachment).Error
	if err == gorm.ErrRecordNotFound {
		return apperrors.NewNotFound("attachment", attachmentID)
	}
	if err != nil {
		return err
	}

	if principal.IsAnonymous() {
		return apperrors.NewAuth("authentication required")
	}
	if attachment.OwnerID != principal.ID {
		editable, err := s.features.canEditRecord(ctx, principal, template, record)
		if err != nil {
			return err
		}
		if !editable {
			s.log.Warn("User %s denied attachment delete on feature %s", principal.ID, featureID)
			return apperrors.NewAuth("you do not have edit access to this feature")
		}
	}

	if err := s.db.WithContext(ctx).Delete(&models.Attachment{}, "id = ?", attachment.ID).Error; err != nil {
		return err
	}

	if s.storage != nil {
		if err := s.storage.DeleteFile(ctx, attachment.Path); err != nil {
			s.log.Warn("Failed to remove object %s for attachment %s: %v", attachment.Path, attachment.ID, err)
		}
	}
	return nil
}
