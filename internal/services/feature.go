package services

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"geocommons/internal/access"
	"geocommons/internal/apperrors"
	"geocommons/internal/models"
	"geocommons/internal/utils/logger"
)

// FeatureService is the resource manager for the rows inside a template's
// feature table. Template-level grants carry over to every feature; the
// per-feature ACL rows widen access for individual rows on top of that.
type FeatureService struct {
	db       *gorm.DB
	resolver *access.Resolver
	store    FeatureStore
	log      *logger.Logger
}

func NewFeatureService(db *gorm.DB, resolver *access.Resolver, store FeatureStore) *FeatureService {
	return &FeatureService{
		db:       db,
		resolver: resolver,
		store:    store,
		log:      logger.New("feature_service"),
	}
}

type CreateFeatureInput struct {
	Geometry   datatypes.JSON `json:"geometry" validate:"omitempty,geojson"`
	Attributes datatypes.JSON `json:"attributes"`
}

type UpdateFeatureInput struct {
	Geometry   datatypes.JSON        `json:"geometry" validate:"omitempty,geojson"`
	Attributes datatypes.JSON        `json:"attributes"`
	Status     *models.FeatureStatus `json:"status"`
}

// Create inserts a feature row. Holders of the template's edit capability
// may always contribute; on crowdsourced templates any authenticated user
// may. Submissions to a moderated template land as PENDING unless the
// contributor is a moderator.
func (s *FeatureService) Create(ctx context.Context, templateID string, principal *models.User, input CreateFeatureInput) (*FeatureRecord, error) {
	if principal.IsAnonymous() {
		return nil, apperrors.NewAuth("authentication required to create features")
	}

	template, err := s.findTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	canEdit, err := s.hasTemplateCap(ctx, principal, templateID, access.CapEdit)
	if err != nil {
		return nil, err
	}
	if !canEdit && !template.IsCrowdsourced {
		s.log.Warn("User %s denied feature create on template %s", principal.ID, templateID)
		return nil, apperrors.NewAuth("you do not have edit access to this template")
	}

	status := models.FeatureStatusActive
	if template.IsModerated {
		moderator, err := s.hasTemplateCap(ctx, principal, templateID, access.CapModerate)
		if err != nil {
			return nil, err
		}
		if !moderator {
			status = models.FeatureStatusPending
		}
	}

	record := &FeatureRecord{
		OwnerID:    principal.ID,
		Status:     status,
		Geometry:   input.Geometry,
		Attributes: input.Attributes,
	}

	// The row and the contributor's grant commit together; a feature must
	// never be observable without its creator's ACL.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.store.WithTx(tx).Insert(ctx, template.Storage, record); err != nil {
			return err
		}

		acl := &models.FeatureACL{
			UserID:    principal.ID,
			Storage:   template.Storage,
			FeatureID: record.ID,
			View:      true,
			Edit:      true,
			Delete:    true,
		}
		return tx.Create(acl).Error
	})
	if err != nil {
		return nil, s.log.Error("Failed to create feature in %s", err, template.Storage)
	}

	return record, nil
}

// Get returns one feature row. Public templates expose their ACTIVE features
// to anyone; everything else requires the template view capability, a
// per-feature view ACL or ownership. Rows that are not ACTIVE are only
// visible to their owner and to template moderators.
func (s *FeatureService) Get(ctx context.Context, templateID, featureID string, principal *models.User, allowPublic bool) (*FeatureRecord, error) {
	template, err := s.findTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Get(ctx, template.Storage, featureID)
	if err != nil {
		return nil, err
	}

	if record.Status == models.FeatureStatusActive && allowPublic && template.IsPublic {
		return record, nil
	}

	viewable, err := s.canViewRecord(ctx, principal, template, record)
	if err != nil {
		return nil, err
	}
	if !viewable {
		s.log.Warn("User %s denied view on feature %s", principal.ID, featureID)
		return nil, apperrors.NewAuth("you do not have view access to this feature")
	}

	return record, nil
}

// List returns the template's ACTIVE features; moderators and template
// admins also see PENDING submissions awaiting review.
func (s *FeatureService) List(ctx context.Context, templateID string, principal *models.User) ([]FeatureRecord, error) {
	template, err := s.findTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if !template.IsPublic {
		viewer, err := s.hasTemplateCap(ctx, principal, templateID, access.CapView)
		if err != nil {
			return nil, err
		}
		if !viewer {
			s.log.Warn("User %s denied feature list on template %s", principal.ID, templateID)
			return nil, apperrors.NewAuth("you do not have view access to this template")
		}
	}

	statuses := []models.FeatureStatus{models.FeatureStatusActive}
	if !principal.IsAnonymous() {
		moderator, err := s.hasTemplateCap(ctx, principal, templateID, access.CapModerate)
		if err != nil {
			return nil, err
		}
		if moderator {
			statuses = append(statuses, models.FeatureStatusPending)
		}
	}

	return s.store.List(ctx, template.Storage, statuses)
}

// Update merges only the fields present in the input. Requires the template
// edit capability, a per-feature edit ACL or ownership; status changes are
// reserved for moderators.
func (s *FeatureService) Update(ctx context.Context, templateID, featureID string, principal *models.User, input UpdateFeatureInput) (*FeatureRecord, error) {
	template, err := s.findTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Get(ctx, template.Storage, featureID)
	if err != nil {
		return nil, err
	}

	editable, err := s.canEditRecord(ctx, principal, template, record)
	if err != nil {
		return nil, err
	}
	if !editable {
		s.log.Warn("User %s denied edit on feature %s", principal.ID, featureID)
		return nil, apperrors.NewAuth("you do not have edit access to this feature")
	}

	fields := map[string]interface{}{}
	if input.Geometry != nil {
		fields["geometry"] = input.Geometry
	}
	if input.Attributes != nil {
		fields["attributes"] = input.Attributes
	}
	if input.Status != nil {
		moderator, err := s.hasTemplateCap(ctx, principal, templateID, access.CapModerate)
		if err != nil {
			return nil, err
		}
		if !moderator {
			return nil, apperrors.NewAuth("only moderators can change feature status")
		}
		if !input.Status.Valid() {
			return nil, apperrors.NewValidation("status", "unknown feature status")
		}
		fields["status"] = *input.Status
	}

	if len(fields) > 0 {
		if err := s.store.Update(ctx, template.Storage, featureID, fields); err != nil {
			return nil, err
		}
	}

	return s.store.Get(ctx, template.Storage, featureID)
}

// Delete removes the feature row together with its ACL rows and attachment
// records. Requires the template delete capability, a per-feature delete
// ACL or ownership.
func (s *FeatureService) Delete(ctx context.Context, templateID, featureID string, principal *models.User) error {
	template, err := s.findTemplate(ctx, templateID)
	if err != nil {
		return err
	}

	record, err := s.store.Get(ctx, template.Storage, featureID)
	if err != nil {
		return err
	}

	deletable, err := s.canDeleteRecord(ctx, principal, template, record)
	if err != nil {
		return err
	}
	if !deletable {
		s.log.Warn("User %s denied delete on feature %s", principal.ID, featureID)
		return apperrors.NewAuth("you do not have delete access to this feature")
	}

	if err := s.store.Delete(ctx, template.Storage, featureID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("storage = ? AND feature_id = ?", template.Storage, featureID).
			Delete(&models.FeatureACL{}).Error; err != nil {
			return err
		}
		return tx.Where("storage = ? AND feature_id = ?", template.Storage, featureID).
			Delete(&models.Attachment{}).Error
	})
}

func (s *FeatureService) canViewRecord(ctx context.Context, principal *models.User, template *models.Template, record *FeatureRecord) (bool, error) {
	if principal.IsAnonymous() {
		return false, apperrors.NewAuth("authentication required")
	}
	if record.OwnerID == principal.ID {
		return true, nil
	}

	if record.Status != models.FeatureStatusActive {
		return s.hasTemplateCap(ctx, principal, template.ID, access.CapModerate)
	}

	viewer, err := s.hasTemplateCap(ctx, principal, template.ID, access.CapView)
	if err != nil || viewer {
		return viewer, err
	}
	return s.hasFeatureCap(ctx, principal, template.Storage, record.ID, access.CapView)
}

func (s *FeatureService) canEditRecord(ctx context.Context, principal *models.User, template *models.Template, record *FeatureRecord) (bool, error) {
	if principal.IsAnonymous() {
		return false, apperrors.NewAuth("authentication required")
	}
	if record.OwnerID == principal.ID {
		return true, nil
	}

	editor, err := s.hasTemplateCap(ctx, principal, template.ID, access.CapEdit)
	if err != nil || editor {
		return editor, err
	}
	return s.hasFeatureCap(ctx, principal, template.Storage, record.ID, access.CapEdit)
}

func (s *FeatureService) canDeleteRecord(ctx context.Context, principal *models.User, template *models.Template, record *FeatureRecord) (bool, error) {
	if principal.IsAnonymous() {
		return false, apperrors.NewAuth("authentication required")
	}
	if record.OwnerID == principal.ID {
		return true, nil
	}

	deleter, err := s.hasTemplateCap(ctx, principal, template.ID, access.CapDelete)
	if err != nil || deleter {
		return deleter, err
	}
	return s.hasFeatureCap(ctx, principal, template.Storage, record.ID, access.CapDelete)
}

func (s *FeatureService) hasTemplateCap(ctx context.Context, principal *models.User, templateID string, capability access.Capability) (bool, error) {
	if principal.IsAnonymous() {
		return false, nil
	}
	allowed, err := s.resolver.AllowedTemplateIDs(ctx, principal, capability)
	if err != nil {
		return false, err
	}
	return allowed.Contains(templateID), nil
}

func (s *FeatureService) hasFeatureCap(ctx context.Context, principal *models.User, storage, featureID string, capability access.Capability) (bool, error) {
	allowed, err := s.resolver.AllowedFeatureIDs(ctx, principal, storage, capability)
	if err != nil {
		return false, err
	}
	return allowed.Contains(featureID), nil
}

func (s *FeatureService) findTemplate(ctx context.Context, id string) (*models.Template, error) {
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
