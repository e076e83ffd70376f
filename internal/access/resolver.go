package access

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"geocommons/internal/apperrors"
	"geocommons/internal/models"
)

// Resolver computes the set of resource IDs a principal holds a capability
// on. It merges explicit grant rows with resource-level public flags for
// read-class capabilities; write and admin capabilities never fall back to
// the public flag.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// AllowedApplicationIDs returns the applications the principal holds the
// capability on. Fails closed: an anonymous principal gets an AuthError,
// never an empty set. Public-capable callers must special-case anonymous
// principals before calling this.
func (r *Resolver) AllowedApplicationIDs(ctx context.Context, principal *models.User, capability Capability) (IDSet, error) {
	if principal.IsAnonymous() {
		return nil, apperrors.NewAuth("authentication required")
	}

	column, ok := applicationColumns[capability]
	if !ok {
		return nil, fmt.Errorf("unknown application capability %q", capability)
	}

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.UserApplication{}).
		Where(fmt.Sprintf("user_id = ? AND %q = ?", column), principal.ID, true).
		Pluck("application_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return NewIDSet(ids...), nil
}

// AllowedTemplateIDs returns the templates the principal holds the
// capability on. Same fail-closed contract as AllowedApplicationIDs.
func (r *Resolver) AllowedTemplateIDs(ctx context.Context, principal *models.User, capability Capability) (IDSet, error) {
	if principal.IsAnonymous() {
		return nil, apperrors.NewAuth("authentication required")
	}

	column, ok := templateColumns[capability]
	if !ok {
		return nil, fmt.Errorf("unknown template capability %q", capability)
	}

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.UserTemplate{}).
		Where(fmt.Sprintf("user_id = ? AND %q = ?", column), principal.ID, true).
		Pluck("template_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return NewIDSet(ids...), nil
}

// AllowedFeatureIDs returns the feature rows within one storage table the
// principal holds the capability on through per-feature ACL rows.
func (r *Resolver) AllowedFeatureIDs(ctx context.Context, principal *models.User, storage string, capability Capability) (IDSet, error) {
	if principal.IsAnonymous() {
		return nil, apperrors.NewAuth("authentication required")
	}

	column, ok := templateColumns[capability]
	if !ok {
		return nil, fmt.Errorf("unknown feature capability %q", capability)
	}

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.FeatureACL{}).
		Where(fmt.Sprintf("user_id = ? AND storage = ? AND %q = ?", column), principal.ID, storage, true).
		Pluck("feature_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return NewIDSet(ids...), nil
}

// PublicApplicationIDs returns all applications flagged is_public. Only
// unioned into visible sets for read-class capabilities.
func (r *Resolver) PublicApplicationIDs(ctx context.Context) (IDSet, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("is_public = ? AND is_deleted = ?", true, false).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	return NewIDSet(ids...), nil
}

// PublicTemplateIDs returns all templates flagged is_public
func (r *Resolver) PublicTemplateIDs(ctx context.Context) (IDSet, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Template{}).
		Where("is_public = ? AND is_deleted = ?", true, false).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	return NewIDSet(ids...), nil
}

// ApplicationTemplateIDs returns the templates linked to one application,
// used to scope template listings to their owning application.
func (r *Resolver) ApplicationTemplateIDs(ctx context.Context, applicationID string) (IDSet, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.ApplicationTemplate{}).
		Where("application_id = ?", applicationID).
		Pluck("template_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return NewIDSet(ids...), nil
}

// VisibleTemplateIDs applies the listing composition rule for one
// application: (allowed(view) ∪ public) ∩ templates-of-application. An
// anonymous principal contributes only the public set.
func (r *Resolver) VisibleTemplateIDs(ctx context.Context, principal *models.User, applicationID string) (IDSet, error) {
	public, err := r.PublicTemplateIDs(ctx)
	if err != nil {
		return nil, err
	}

	visible := public
	if !principal.IsAnonymous() {
		allowed, err := r.AllowedTemplateIDs(ctx, principal, CapView)
		if err != nil {
			return nil, err
		}
		visible = allowed.Union(public)
	}

	scoped, err := r.ApplicationTemplateIDs(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	return visible.Intersect(scoped), nil
}
