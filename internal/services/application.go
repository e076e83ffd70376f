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

// ApplicationService is the resource manager for applications. Every
// restricted operation consults the access resolver before touching the
// database; the principal is always passed explicitly.
type ApplicationService struct {
	db       *gorm.DB
	resolver *access.Resolver
	log      *logger.Logger
}

func NewApplicationService(db *gorm.DB, resolver *access.Resolver) *ApplicationService {
	return &ApplicationService{
		db:       db,
		resolver: resolver,
		log:      logger.New("application_service"),
	}
}

type CreateApplicationInput struct {
	Name        string `json:"name" validate:"required,min=1"`
	Description string `json:"description"`
	URL         string `json:"url" validate:"omitempty,url"`
	IsPublic    bool   `json:"isPublic"`
}

// UpdateApplicationInput carries one optional field per mutable attribute.
// A nil field leaves the prior value unchanged.
type UpdateApplicationInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	URL         *string `json:"url" validate:"omitempty,url"`
	IsPublic    *bool   `json:"isPublic"`
	Status      *bool   `json:"status"`
}

// ApplicationGrantInput is the full capability set for one grant row
type ApplicationGrantInput struct {
	Read    bool `json:"read"`
	Write   bool `json:"write"`
	IsAdmin bool `json:"isAdmin"`
}

// UpdateApplicationGrantInput is the partial form used by grant updates
type UpdateApplicationGrantInput struct {
	Read    *bool `json:"read"`
	Write   *bool `json:"write"`
	IsAdmin *bool `json:"isAdmin"`
}

// Create inserts the application and the creator's full grant in one
// transaction. Any authenticated principal may create applications; there is
// no resource-level check here.
func (s *ApplicationService) Create(ctx context.Context, principal *models.User, input CreateApplicationInput) (*models.Application, error) {
	if principal.IsAnonymous() {
		return nil, apperrors.NewAuth("authentication required to create applications")
	}
	if input.Name == "" {
		return nil, apperrors.NewValidation("name", "name is required")
	}

	application := &models.Application{
		Name:        input.Name,
		Description: input.Description,
		URL:         input.URL,
		IsPublic:    input.IsPublic,
		Status:      true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(application).Error; err != nil {
			return err
		}

		grant := &models.UserApplication{
			UserID:        principal.ID,
			ApplicationID: application.ID,
			Read:          true,
			Write:         true,
			IsAdmin:       true,
		}
		return tx.Create(grant).Error
	})
	if err != nil {
		return nil, s.log.Error("Failed to create application", err)
	}

	return application, nil
}

// Get returns the application when the principal may read it. With
// allowPublic set and the application flagged public, the grant check is
// bypassed entirely. A missing row is NotFound; an existing but forbidden
// row is an AuthError, so clients can tell the two apart.
func (s *ApplicationService) Get(ctx context.Context, id string, principal *models.User, allowPublic bool) (*models.Application, error) {
	application, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if allowPublic && application.IsPublic {
		return application, nil
	}

	allowed, err := s.resolver.AllowedApplicationIDs(ctx, principal, access.CapRead)
	if err != nil {
		return nil, err
	}
	if !allowed.Contains(id) {
		s.log.Warn("User %s denied read on application %s", principal.ID, id)
		return nil, apperrors.NewAuth("you do not have read access to this application")
	}

	return application, nil
}

// List never rejects: an anonymous principal sees exactly the public set,
// an authenticated one sees allowed(read) ∪ public.
func (s *ApplicationService) List(ctx context.Context, principal *models.User) ([]models.Application, error) {
	visible, err := s.resolver.PublicApplicationIDs(ctx)
	if err != nil {
		return nil, err
	}

	if !principal.IsAnonymous() {
		allowed, err := s.resolver.AllowedApplicationIDs(ctx, principal, access.CapRead)
		if err != nil {
			return nil, err
		}
		visible = visible.Union(allowed)
	}

	applications := []models.Application{}
	if len(visible) == 0 {
		return applications, nil
	}

	err = s.db.WithContext(ctx).
		Where("id IN ? AND is_deleted = ?", visible.IDs(), false).
		Order("created_at").
		Find(&applications).Error
	if err != nil {
		return nil, err
	}

	return applications, nil
}

// Update merges only the fields present in the input; requires write
func (s *ApplicationService) Update(ctx context.Context, id string, principal *models.User, input UpdateApplicationInput) (*models.Application, error) {
	application, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed, err := s.resolver.AllowedApplicationIDs(ctx, principal, access.CapWrite)
	if err != nil {
		return nil, err
	}
	if !allowed.Contains(id) {
		s.log.Warn("User %s denied write on application %s", principal.ID, id)
		return nil, apperrors.NewAuth("you do not have write access to this application")
	}

	fields := map[string]interface{}{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.NewValidation("name", "name cannot be empty")
		}
		fields["name"] = *input.Name
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.URL != nil {
		fields["url"] = *input.URL
	}
	if input.IsPublic != nil {
		fields["is_public"] = *input.IsPublic
	}
	if input.Status != nil {
		fields["status"] = *input.Status
	}

	if len(fields) > 0 {
		if err := s.db.WithContext(ctx).Model(application).Updates(fields).Error; err != nil {
			return nil, err
		}
	}

	return application, nil
}

// Delete removes the application and cascades: every owned template, every
// grant row referencing the application or its templates, and the
// application-template links, all in one transaction. Requires is_admin.
func (s *ApplicationService) Delete(ctx context.Context, id string, principal *models.User) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}

	allowed, err := s.resolver.AllowedApplicationIDs(ctx, principal, access.CapAdmin)
	if err != nil {
		return err
	}
	if !allowed.Contains(id) {
		s.log.Warn("User %s denied delete on application %s", principal.ID, id)
		return apperrors.NewAuth("you are not an administrator of this application")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var templateIDs []string
		if err := tx.Model(&models.ApplicationTemplate{}).
			Where("application_id = ?", id).
			Pluck("template_id", &templateIDs).Error; err != nil {
			return err
		}

		if len(templateIDs) > 0 {
			var storages []string
			if err := tx.Model(&models.Template{}).
				Where("id IN ?", templateIDs).
				Pluck("storage", &storages).Error; err != nil {
				return err
			}

			if err := tx.Where("template_id IN ?", templateIDs).
				Delete(&models.UserTemplate{}).Error; err != nil {
				return err
			}
			if err := tx.Where("storage IN ?", storages).
				Delete(&models.FeatureACL{}).Error; err != nil {
				return err
			}
			if err := tx.Where("storage IN ?", storages).
				Delete(&models.Attachment{}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Template{}).
				Where("id IN ?", templateIDs).
				Updates(map[string]interface{}{"is_deleted": true, "deleted_at": time.Now()}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("application_id = ?", id).
			Delete(&models.ApplicationTemplate{}).Error; err != nil {
			return err
		}
		if err := tx.Where("application_id = ?", id).
			Delete(&models.UserApplication{}).Error; err != nil {
			return err
		}

		return tx.Model(&models.Application{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"is_deleted": true, "deleted_at": time.Now()}).Error
	})
}

// GrantPermission creates a grant row for another user; requires is_admin.
// A second grant for the same (user, application) pair is a conflict, not a
// duplicate row: callers update the existing grant instead.
func (s *ApplicationService) GrantPermission(ctx context.Context, principal *models.User, applicationID, userID string, input ApplicationGrantInput) (*models.UserApplication, error) {
	if err := s.requireAdmin(ctx, principal, applicationID); err != nil {
		return nil, err
	}

	if _, err := models.GetUserByID(userID, s.db.WithContext(ctx)); err != nil {
		return nil, apperrors.NewNotFound("user", userID)
	}

	var existing models.UserApplication
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND application_id = ?", userID, applicationID).
		First(&existing).Error
	if err == nil {
		return nil, apperrors.NewConflict("application grant", applicationID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	grant := &models.UserApplication{
		UserID:        userID,
		ApplicationID: applicationID,
		Read:          input.Read,
		Write:         input.Write,
		IsAdmin:       input.IsAdmin,
	}
	if err := s.db.WithContext(ctx).Create(grant).Error; err != nil {
		return nil, err
	}

	return grant, nil
}

// GetPermission returns one user's grant row; requires is_admin
func (s *ApplicationService) GetPermission(ctx context.Context, principal *models.User, applicationID, userID string) (*models.UserApplication, error) {
	if err := s.requireAdmin(ctx, principal, applicationID); err != nil {
		return nil, err
	}

	var grant models.UserApplication
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND application_id = ?", userID, applicationID).
		First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("application grant", applicationID)
	}
	if err != nil {
		return nil, err
	}

	return &grant, nil
}

// UpdatePermission merges present capability fields into an existing grant
func (s *ApplicationService) UpdatePermission(ctx context.Context, principal *models.User, applicationID, userID string, input UpdateApplicationGrantInput) (*models.UserApplication, error) {
	grant, err := s.GetPermission(ctx, principal, applicationID, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if input.Read != nil {
		fields["read"] = *input.Read
	}
	if input.Write != nil {
		fields["write"] = *input.Write
	}
	if input.IsAdmin != nil {
		fields["is_admin"] = *input.IsAdmin
	}

	if len(fields) > 0 {
		err = s.db.WithContext(ctx).Model(&models.UserApplication{}).
			Where("user_id = ? AND application_id = ?", userID, applicationID).
			Updates(fields).Error
		if err != nil {
			return nil, err
		}
		err = s.db.WithContext(ctx).
			Where("user_id = ? AND application_id = ?", userID, applicationID).
			First(grant).Error
		if err != nil {
			return nil, err
		}
	}

	return grant, nil
}

// RevokePermission deletes one user's grant row; requires is_admin
func (s *ApplicationService) RevokePermission(ctx context.Context, principal *models.User, applicationID, userID string) error {
	if _, err := s.GetPermission(ctx, principal, applicationID, userID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).
		Where("user_id = ? AND application_id = ?", userID, applicationID).
		Delete(&models.UserApplication{}).Error
}

// Users lists every grant row on the application; requires is_admin
func (s *ApplicationService) Users(ctx context.Context, principal *models.User, applicationID string) ([]models.UserApplication, error) {
	if err := s.requireAdmin(ctx, principal, applicationID); err != nil {
		return nil, err
	}

	var grants []models.UserApplication
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("application_id = ?", applicationID).
		Find(&grants).Error
	if err != nil {
		return nil, err
	}

	return grants, nil
}

func (s *ApplicationService) requireAdmin(ctx context.Context, principal *models.User, applicationID string) error {
	if _, err := s.find(ctx, applicationID); err != nil {
		return err
	}

	allowed, err := s.resolver.AllowedApplicationIDs(ctx, principal, access.CapAdmin)
	if err != nil {
		return err
	}
	if !allowed.Contains(applicationID) {
		s.log.Warn("User %s denied admin on application %s", principal.ID, applicationID)
		return apperrors.NewAuth("you are not an administrator of this application")
	}
	return nil
}

func (s *ApplicationService) find(ctx context.Context, id string) (*models.Application, error) {
	var application models.Application
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&application).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("application", id)
	}
	if err != nil {
		return nil, err
	}
	return &application, nil
}
