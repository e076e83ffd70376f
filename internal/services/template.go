package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"geocommons/internal/access"
	"geocommons/internal/apperrors"
	"geocommons/internal/models"
	"geocommons/internal/utils/logger"
)

// TemplateService is the resource manager for templates. Creating a template
// also provisions its feature table through the FeatureStore; the service
// only ever records the storage name that comes back.
type TemplateService struct {
	db       *gorm.DB
	resolver *access.Resolver
	store    FeatureStore
	log      *logger.Logger
}

func NewTemplateService(db *gorm.DB, resolver *access.Resolver, store FeatureStore) *TemplateService {
	return &TemplateService{
		db:       db,
		resolver: resolver,
		store:    store,
		log:      logger.New("template_service"),
	}
}

type CreateTemplateInput struct {
	Name           string `json:"name" validate:"required,min=1"`
	Help           string `json:"help"`
	IsPublic       *bool  `json:"isPublic"`
	IsCrowdsourced *bool  `json:"isCrowdsourced"`
	IsModerated    *bool  `json:"isModerated"`
	IsListed       *bool  `json:"isListed"`
	IsGeospatial   *bool  `json:"isGeospatial"`
}

type UpdateTemplateInput struct {
	Name           *string `json:"name" validate:"omitempty,min=1"`
	Help           *string `json:"help"`
	IsPublic       *bool   `json:"isPublic"`
	IsCrowdsourced *bool   `json:"isCrowdsourced"`
	IsModerated    *bool   `json:"isModerated"`
	IsListed       *bool   `json:"isListed"`
	IsGeospatial   *bool   `json:"isGeospatial"`
	Status         *bool   `json:"status"`
}

type TemplateGrantInput struct {
	View        bool `json:"view"`
	Edit        bool `json:"edit"`
	Delete      bool `json:"delete"`
	IsModerator bool `json:"isModerator"`
	IsAdmin     bool `json:"isAdmin"`
}

type UpdateTemplateGrantInput struct {
	View        *bool `json:"view"`
	Edit        *bool `json:"edit"`
	Delete      *bool `json:"delete"`
	IsModerator *bool `json:"isModerator"`
	IsAdmin     *bool `json:"isAdmin"`
}

func boolOr(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}

// Create provisions the feature table, then inserts the template, the
// creator's full grant and the application link in one transaction. If the
// transaction fails the freshly provisioned table is dropped again so no
// orphaned storage is left behind.
func (s *TemplateService) Create(ctx context.Context, principal *models.User, applicationID string, input CreateTemplateInput) (*models.Template, error) {
	if principal.IsAnonymous() {
		return nil, apperrors.NewAuth("authentication required to create templates")
	}
	if input.Name == "" {
		return nil, apperrors.NewValidation("name", "name is required")
	}

	var application models.Application
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", applicationID, false).
		First(&application).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("application", applicationID)
	}
	if err != nil {
		return nil, err
	}

	storage, err := s.store.CreateTable(ctx)
	if err != nil {
		return nil, err
	}

	template := &models.Template{
		Name:           input.Name,
		Help:           input.Help,
		Storage:        storage,
		IsPublic:       boolOr(input.IsPublic, true),
		IsCrowdsourced: boolOr(input.IsCrowdsourced, false),
		IsModerated:    boolOr(input.IsModerated, true),
		IsListed:       boolOr(input.IsListed, true),
		IsGeospatial:   boolOr(input.IsGeospatial, true),
		Status:         true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(template).Error; err != nil {
			return err
		}

		grant := &models.UserTemplate{
			UserID:      principal.ID,
			TemplateID:  template.ID,
			View:        true,
			Edit:        true,
			Delete:      true,
			IsModerator: true,
			IsAdmin:     true,
		}
		if err := tx.Create(grant).Error; err != nil {
			return err
		}

		link := &models.ApplicationTemplate{
			ApplicationID: applicationID,
			TemplateID:    template.ID,
		}
		return tx.Create(link).Error
	})
	if err != nil {
		if dropErr := s.store.DropTable(ctx, storage); dropErr != nil {
			s.log.Warn("Orphaned feature table %s after failed create: %v", storage, dropErr)
		}
		return nil, s.log.Error("Failed to create template", err)
	}

	return template, nil
}

// Get returns the template when the principal may view it; allowPublic
// bypasses the grant check for public templates
func (s *TemplateService) Get(ctx context.Context, id string, principal *models.User, allowPublic bool) (*models.Template, error) {
	template, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if allowPublic && template.IsPublic {
		return template, nil
	}

	allowed, err := s.resolver.AllowedTemplateIDs(ctx, principal, access.CapView)
	if err != nil {
		return nil, err
	}
	if !allowed.Contains(id) {
		s.log.Warn("User %s denied view on template %s", principal.ID, id)
		return nil, apperrors.NewAuth("you do not have view access to this template")
	}

	return template, nil
}

// ListByApplication returns the templates under one application that the
// principal may see: (allowed(view) ∪ public) ∩ templates-of-application.
// Never rejects; an anonymous principal sees only public templates.
func (s *TemplateService) ListByApplication(ctx context.Context, applicationID string, principal *models.User) ([]models.Template, error) {
	visible, err := s.resolver.VisibleTemplateIDs(ctx, principal, applicationID)
	if err != nil {
		return nil, err
	}

	templates := []models.Template{}
	if len(visible) == 0 {
		return templates, nil
	}

	err = s.db.WithContext(ctx).
		Where("id IN ? AND is_deleted = ?", visible.IDs(), false).
		Order("created_at").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}

	return templates, nil
}

// Update merges only the fields present in the input; requires edit
func (s *TemplateService) Update(ctx context.Context, id string, principal *models.User, input UpdateTemplateInput) (*models.Template, error) {
	template, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed, err := s.resolver.AllowedTemplateIDs(ctx, principal, access.CapEdit)
	if err != nil {
		return nil, err
	}
	if !allowed.Contains(id) {
		s.log.Warn("User %s denied edit on template %s", principal.ID, id)
		return nil, apperrors.NewAuth("you do not have edit access to this template")
	}

	fields := map[string]interface{}{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.NewValidation("name", "name cannot be empty")
		}
		fields["name"] = *input.Name
	}
	if input.Help != nil {
		fields["help"] = *input.Help
	}
	if input.IsPublic != nil {
		fields["is_public"] = *input.IsPublic
	}
	if input.IsCrowdsourced != nil {
		fields["is_crowdsourced"] = *input.IsCrowdsourced
	}
	if input.IsModerated != nil {
		fields["is_moderated"] = *input.IsModerated
	}
	if input.IsListed != nil {
		fields["is_listed"] = *input.IsListed
	}
	if input.IsGeospatial != nil {
		fields["is_geospatial"] = *input.IsGeospatial
	}
	if input.Status != nil {
		fields["status"] = *input.Status
	}

	if len(fields) > 0 {
		if err := s.db.WithContext(ctx).Model(template).Updates(fields).Error; err != nil {
			return nil, err
		}
	}

	return template, nil
}

// Delete removes the template and cascades to its grant rows, feature ACL
// rows, attachments and application link; requires the delete capability.
// The feature table itself is dropped later by the purge task.
func (s *TemplateService) Delete(ctx context.Context, id string, principal *models.User) error {
	template, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	allowed, err := s.resolver.AllowedTemplateIDs(ctx, principal, access.CapDelete)
	if err != nil {
		return err
	}
	if !allowed.Contains(id) {
		s.log.Warn("User %s denied delete on template %s", principal.ID, id)
		return apperrors.NewAuth("you do not have delete access to this template")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", id).
			Delete(&models.UserTemplate{}).Error; err != nil {
			return err
		}
		if err := tx.Where("storage = ?", template.Storage).
			Delete(&models.FeatureACL{}).Error; err != nil {
			return err
		}
		if err := tx.Where("storage = ?", template.Storage).
			Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("template_id = ?", id).
			Delete(&models.ApplicationTemplate{}).Error; err != nil {
			return err
		}

		return tx.Model(&models.Template{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"is_deleted": true, "deleted_at": time.Now()}).Error
	})
}

// GrantPermission creates a grant row for another user; requires is_admin.
// A grant that already exists is a conflict.
func (s *TemplateService) GrantPermission(ctx context.Context, principal *models.User, templateID, userID string, input TemplateGrantInput) (*models.UserTemplate, error) {
	if err := s.requireAdmin(ctx, principal, templateID); err != nil {
		return nil, err
	}

	if _, err := models.GetUserByID(userID, s.db.WithContext(ctx)); err != nil {
		return nil, apperrors.NewNotFound("user", userID)
	}

	var existing models.UserTemplate
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND template_id = ?", userID, templateID).
		First(&existing).Error
	if err == nil {
		return nil, apperrors.NewConflict("template grant", templateID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	grant := &models.UserTemplate{
		UserID:      userID,
		TemplateID:  templateID,
		View:        input.View,
		Edit:        input.Edit,
		Delete:      input.Delete,
		IsModerator: input.IsModerator,
		IsAdmin:     input.IsAdmin,
	}
	if err := s.db.WithContext(ctx).Create(grant).Error; err != nil {
		return nil, err
	}

	return grant, nil
}

// GetPermission returns one user's grant row; requires is_admin
func (s *TemplateService) GetPermission(ctx context.Context, principal *models.User, templateID, userID string) (*models.UserTemplate, error) {
	if err := s.requireAdmin(ctx, principal, templateID); err != nil {
		return nil, err
	}

	var grant models.UserTemplate
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND template_id = ?", userID, templateID).
		First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("template grant", templateID)
	}
	if err != nil {
		return nil, err
	}

	return &grant, nil
}

// UpdatePermission merges present capability fields into an existing grant
func (s *TemplateService) UpdatePermission(ctx context.Context, principal *models.User, templateID, userID string, input UpdateTemplateGrantInput) (*models.UserTemplate, error) {
	grant, err := s.GetPermission(ctx, principal, templateID, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if input.View != nil {
		fields["view"] = *input.View
	}
	if input.Edit != nil {
		fields["edit"] = *input.Edit
	}
	if input.Delete != nil {
		fields["delete"] = *input.Delete
	}
	if input.IsModerator != nil {
		fields["is_moderator"] = *input.IsModerator
	}
	if input.IsAdmin != nil {
		fields["is_admin"] = *input.IsAdmin
	}

	if len(fields) > 0 {
		err = s.db.WithContext(ctx).Model(&models.UserTemplate{}).
			Where("user_id = ? AND template_id = ?", userID, templateID).
			Updates(fields).Error
		if err != nil {
			return nil, err
		}
		err = s.db.WithContext(ctx).
			Where("user_id = ? AND template_id = ?", userID, templateID).
			First(grant).Error
		if err != nil {
			return nil, err
		}
	}

	return grant, nil
}

// RevokePermission deletes one user's grant row; requires is_admin
func (s *TemplateService) RevokePermission(ctx context.Context, principal *models.User, templateID, userID string) error {
	if _, err := s.GetPermission(ctx, principal, templateID, userID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).
		Where("user_id = ? AND template_id = ?", userID, templateID).
		Delete(&models.UserTemplate{}).Error
}

// Users lists every grant row on the template; requires is_admin
func (s *TemplateService) Users(ctx context.Context, principal *models.User, templateID string) ([]models.UserTemplate, error) {
	if err := s.requireAdmin(ctx, principal, templateID); err != nil {
		return nil, err
	}

	var grants []models.UserTemplate
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("template_id = ?", templateID).
		Find(&grants).Error
	if err != nil {
		return nil, err
	}

	return grants, nil
}

func (s *TemplateService) requireAdmin(ctx context.Context, principal *models.User, templateID string) error {
	if _, err := s.find(ctx, templateID); err != nil {
		return err
	}

	allowed, err := s.resolver.AllowedTemplateIDs(ctx, principal, access.CapAdmin)
	if err != nil {
		return err
	}
	if !allowed.Contains(templateID) {
		s.log.Warn("User %s denied admin on template %s", principal.ID, templateID)
		return apperrors.NewAuth("you are not an administrator of this template")
	}
	return nil
}

func (s *TemplateService) find(ctx context.Context, id string) (*models.Template, error) {
	var template models.Template
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&template).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("template", id)
	}
	if err != nil {
		return nil, err
	}
	return &template, nil
}
