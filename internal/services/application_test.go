package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geocommons/internal/apperrors"
	"geocommons/internal/models"
)

func TestApplicationCreateGrantsCreatorFullAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")

	app, err := env.apps.Create(ctx, owner, CreateApplicationInput{Name: "Trail Map"})
	require.NoError(t, err)
	require.NotEmpty(t, app.ID)

	var grant models.UserApplication
	require.NoError(t, env.db.
		Where("user_id = ? AND application_id = ?", owner.ID, app.ID).
		First(&grant).Error)
	assert.True(t, grant.Read)
	assert.True(t, grant.Write)
	assert.True(t, grant.IsAdmin)

	// Creator can read back their private application without the public bypass
	got, err := env.apps.Get(ctx, app.ID, owner, false)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)
}

func TestApplicationCreateRejectsAnonymousAndEmptyName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")

	_, err := env.apps.Create(ctx, nil, CreateApplicationInput{Name: "Trail Map"})
	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)

	_, err = env.apps.Create(ctx, owner, CreateApplicationInput{})
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "name", validationErr.Field)
}

func TestApplicationGetDistinguishesMissingFromForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")
	outsider := env.createUser(t, "outsider@example.com")

	app, err := env.apps.Create(ctx, owner, CreateApplicationInput{Name: "Private App"})
	require.NoError(t, err)

	// Exists but no grant: AuthError
	_, err = env.apps.Get(ctx, app.ID, outsider, false)
	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)

	// Does not exist at all: NotFoundError
	_, err = env.apps.Get(ctx, uuid.New().String(), outsider, false)
	var notFoundErr *apperrors.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestApplicationPublicGetBypassesGrants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")
	outsider := env.createUser(t, "outsider@example.com")

	app, err := env.apps.Create(ctx, owner, CreateApplicationInput{Name: "Open Data", IsPublic: true})
	require.NoError(t, err)

	// Authenticated without a grant
	got, err := env.apps.Get(ctx, app.ID, outsider, true)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)

	// Anonymous
	got, err = env.apps.Get(ctx, app.ID, nil, true)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)

	// Without the bypass even a public application needs a grant
	_, err = env.apps.Get(ctx, app.ID, outsider, false)
	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestApplicationListNeverRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")
	viewer := env.createUser(t, "viewer@example.com")

	private, err := env.apps.Create(ctx, owner, CreateApplicationInput{Name: "Private"})
	require.NoError(t, err)
	public, err := env.apps.Create(ctx, owner, CreateApplicationInput{Name: "Public", IsPublic: true})
	require.NoError(t, err)

	// Anonymous sees exactly the public set
	apps, err := env.apps.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, public.ID, apps[0].ID)

	// A user with no grants sees the same
	apps, err = env.apps.List(ctx, viewer)
	require.NoError(t, err)
	require.Len(t, apps, 1)

	// Granting read widens the listing to allowed ∪ public
	_, err = env.apps.GrantPermission(ctx, owner, private.ID, viewer.ID, ApplicationGrantInput{Read: true})
	require.NoError(t, err)

	apps, err = env.apps.List(ctx, viewer)
	require.NoError(t, err)
	assert.Len(t, apps, 2)
}

func TestApplicationUpdateMergesOnlyPresentFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")
	outsider := env.createUser(t, "outsider@example.com")

	app, err := env.apps.Create(ctx, owner, CreateApplicationInput{
		Name:        "Trail Map",
		Description: "Hiking trails",
	})
	require.NoError(t, err)

	description := "Hiking and biking trails"
	updated, err := env.apps.Update(ctx, app.ID, owner, UpdateApplicationInput{Description: &description})
	require.NoError(t, err)
	assert.Equal(t, description, updated.Description)
	assert.Equal(t, "Trail Map", updated.Name)

	empty := ""
	_, err = env.apps.Update(ctx, app.ID, owner, UpdateApplicationInput{Name: &empty})
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)

	_, err = env.apps.Update(ctx, app.ID, outsider, UpdateApplicationInput{Description: &description})
	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestApplicationDeleteRequiresAdminAndCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")
	writer := env.createUser(t, "writer@example.com")

	app, err := env.apps.Create(ctx, owner, CreateApplicationInput{Name: "Doomed"})
	require.NoError(t, err)
	template, err := env.templates.Create(ctx, owner, app.ID, CreateTemplateInput{Name: "Points"})
	require.NoError(t, err)

	attachment := &models.Attachment{
		Storage:   template.Storage,
		FeatureID: uuid.New().String(),
		OwnerID:   owner.ID,
		Path:      "attachments/site.jpg",
		Name:      "site.jpg",
		Size:      3,
		Type:      "image/jpeg",
	}
	require.NoError(t, env.db.Create(attachment).Error)

	_, err = env.apps.GrantPermission(ctx, owner, app.ID, writer.ID, ApplicationGrantInput{Read: true, Write: true})
	require.NoError(t, err)

	// Write alone is not enough to delete
	err = env.apps.Delete(ctx, app.ID, writer)
	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)

	require.NoError(t, env.apps.Delete(ctx, app.ID, owner))

	// The application is gone from every read path
	_, err = env.apps.Get(ctx, app.ID, owner, true)
	var notFoundErr *apperrors.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)

	// Grants, links and template grants went with it
	var grantCount int64
	env.db.Model(&models.UserApplication{}).Where("application_id = ?", app.ID).Count(&grantCount)
	assert.Zero(t, grantCount)

	var linkCount int64
	env.db.Model(&models.ApplicationTemplate{}).Where("application_id = ?", app.ID).Count(&linkCount)
	assert.Zero(t, linkCount)

	var templateGrantCount int64
	env.db.Model(&models.UserTemplate{}).Where("template_id = ?", template.ID).Count(&templateGrantCount)
	assert.Zero(t, templateGrantCount)

	// Attachment rows of the templates' storages go too
	var attachmentCount int64
	env.db.Model(&models.Attachment{}).Where("storage = ?", template.Storage).Count(&attachmentCount)
	assert.Zero(t, attachmentCount)

	_, err = env.templates.Get(ctx, template.ID, owner, true)
	require.ErrorAs(t, err, &notFoundErr)
}

func TestApplicationGrantLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")
	member := env.createUser(t, "member@example.com")

	app, err := env.apps.Create(ctx, owner, CreateApplicationInput{Name: "Shared"})
	require.NoError(t, err)

	grant, err := env.apps.GrantPermission(ctx, owner, app.ID, member.ID, ApplicationGrantInput{Read: true})
	require.NoError(t, err)
	assert.True(t, grant.Read)
	assert.False(t, grant.Write)

	// One row per (user, application)
	_, err = env.apps.GrantPermission(ctx, owner, app.ID, member.ID, ApplicationGrantInput{Write: true})
	var conflictErr *apperrors.ConflictError
	require.ErrorAs(t, err, &conflictErr)

	// Partial grant update leaves untouched capabilities alone
	write := true
	grant, err = env.apps.UpdatePermission(ctx, owner, app.ID, member.ID, UpdateApplicationGrantInput{Write: &write})
	require.NoError(t, err)
	assert.True(t, grant.Read)
	assert.True(t, grant.Write)

	require.NoError(t, env.apps.RevokePermission(ctx, owner, app.ID, member.ID))

	_, err = env.apps.GetPermission(ctx, owner, app.ID, member.ID)
	var notFoundErr *apperrors.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)

	// Granting to an unknown user is NotFound
	_, err = env.apps.GrantPermission(ctx, owner, app.ID, uuid.New().String(), ApplicationGrantInput{Read: true})
	require.ErrorAs(t, err, &notFoundErr)
}
