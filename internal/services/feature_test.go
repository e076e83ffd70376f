package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"geocommons/internal/apperrors"
	"geocommons/internal/models"
)

// featureFixture sets up an application with one template and returns the
// owner, who holds every capability on it.
func featureFixture(t *testing.T, env *testEnv, opts CreateTemplateInput) (*models.User, *models.Template) {
	t.Helper()
	ctx := context.Background()

	owner := env.createUser(t, "owner@example.com")
	app, err := env.apps.Create(ctx, owner, CreateApplicationInput{Name: "Trails"})
	require.NoError(t, err)

	if opts.Name == "" {
		opts.Name = "Trailheads"
	}
	template, err := env.templates.Create(ctx, owner, app.ID, opts)
	require.NoError(t, err)

	return owner, template
}

func TestFeatureCreateRequiresEditUnlessCrowdsourced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, template := featureFixture(t, env, CreateTemplateInput{})
	stranger := env.createUser(t, "stranger@example.com")

	geometry := datatypes.JSON(`{"type":"Point","coordinates":[-82.55,35.59]}`)

	// The creator holds edit and moderator, so the row lands ACTIVE
	record, err := env.features.Create(ctx, template.ID, owner, CreateFeatureInput{Geometry: geometry})
	require.NoError(t, err)
	assert.Equal(t, models.FeatureStatusActive, record.Status)
	assert.Equal(t, owner.ID, record.OwnerID)

	// No grant, not crowdsourced: rejected
	_, err = env.features.Create(ctx, template.ID, stranger, CreateFeatureInput{Geometry: geometry})
	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)

	// Anonymous: rejected regardless
	_, err = env.features.Create(ctx, template.ID, nil, CreateFeatureInput{Geometry: geometry})
	require.ErrorAs(t, err, &authErr)
}

func TestFeatureCrowdsourcedSubmissionsArePending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	crowdsourced := true
	owner, template := featureFixture(t, env, CreateTemplateInput{IsCrowdsourced: &crowdsourced})
	contributor := env.createUser(t, "contributor@example.com")

	// Any authenticated user may contribute, but moderation holds the row
	record, err := env.features.Create(ctx, template.ID, contributor, CreateFeatureInput{
		Attributes: datatypes.JSON(`{"name":"Hidden Falls"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, models.FeatureStatusPending, record.Status)

	// The contributor got an ACL row for their own submission
	var acl models.FeatureACL
	require.NoError(t, env.db.
		Where("user_id = ? AND storage = ? AND feature_id = ?", contributor.ID, template.Storage, record.ID).
		First(&acl).Error)
	assert.True(t, acl.View)
	assert.True(t, acl.Edit)

	// Pending rows stay out of the public listing but moderators see them
	records, err := env.features.List(ctx, template.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = env.features.List(ctx, template.ID, owner)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.ID, records[0].ID)

	// Approval by a moderator makes the row publicly visible
	active := models.FeatureStatusActive
	_, err = env.features.Update(ctx, template.ID, record.ID, owner, UpdateFeatureInput{Status: &active})
	require.NoError(t, err)

	records, err = env.features.List(ctx, template.ID, nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// The contributor cannot moderate their own submission
	pending := models.FeatureStatusPending
	_, err = env.features.Update(ctx, template.ID, record.ID, contributor, UpdateFeatureInput{Status: &pending})
	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestFeatureGetPublicBypass(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, template := featureFixture(t, env, CreateTemplateInput{})

	record, err := env.features.Create(ctx, template.ID, owner, CreateFeatureInput{
		Geometry: datatypes.JSON(`{"type":"Point","coordinates":[0,1]}`),
	})
	require.NoError(t, err)

	// ACTIVE row on a public template: anonymous read is fine
	got, err := env.features.Get(ctx, template.ID, record.ID, nil, true)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)

	// Missing row is NotFound, not an access failure
	_, err = env.features.Get(ctx, template.ID, "missing", nil, true)
	var notFoundErr *apperrors.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)

	// Flip the template private: anonymous read now fails closed
	isPublic := false
	_, err = env.templates.Update(ctx, template.ID, owner, UpdateTemplateInput{IsPublic: &isPublic})
	require.NoError(t, err)

	_, err = env.features.Get(ctx, template.ID, record.ID, nil, true)
	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestFeatureUpdateMergesOnlyPresentFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, template := featureFixture(t, env, CreateTemplateInput{})

	record, err := env.features.Create(ctx, template.ID, owner, CreateFeatureInput{
		Geometry:   datatypes.JSON(`{"type":"Point","coordinates":[0,1]}`),
		Attributes: datatypes.JSON(`{"name":"Lookout"}`),
	})
	require.NoError(t, err)

	updated, err := env.features.Update(ctx, template.ID, record.ID, owner, UpdateFeatureInput{
		Attributes: datatypes.JSON(`{"name":"Lookout Tower"}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Lookout Tower"}`, string(updated.Attributes))
	assert.JSONEq(t, `{"type":"Point","coordinates":[0,1]}`, string(updated.Geometry))
}

func TestFeatureDeleteRemovesACLRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, template := featureFixture(t, env, CreateTemplateInput{})
	viewer := env.createUser(t, "viewer@example.com")

	record, err := env.features.Create(ctx, template.ID, owner, CreateFeatureInput{
		Attributes: datatypes.JSON(`{"name":"Old Bridge"}`),
	})
	require.NoError(t, err)

	_, err = env.templates.GrantPermission(ctx, owner, template.ID, viewer.ID, TemplateGrantInput{View: true})
	require.NoError(t, err)

	// View alone cannot delete
	err = env.features.Delete(ctx, template.ID, record.ID, viewer)
	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)

	require.NoError(t, env.features.Delete(ctx, template.ID, record.ID, owner))

	_, err = env.features.Get(ctx, template.ID, record.ID, owner, true)
	var notFoundErr *apperrors.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)

	var aclCount int64
	env.db.Model(&models.FeatureACL{}).
		Where("storage = ? AND feature_id = ?", template.Storage, record.ID).
		Count(&aclCount)
	assert.Zero(t, aclCount)
}

func TestFeatureCreateCommitsRowAndGrantTogether(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, template := featureFixture(t, env, CreateTemplateInput{})

	// With the grant table gone the create cannot complete, and the
	// feature row has to roll back with it
	require.NoError(t, env.db.Migrator().DropTable(&models.FeatureACL{}))

	_, err := env.features.Create(ctx, template.ID, owner, CreateFeatureInput{
		Attributes: datatypes.JSON(`{"name":"Shelter"}`),
	})
	require.Error(t, err)

	records, err := env.store.List(ctx, template.Storage, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}
