package access

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"geocommons/internal/apperrors"
	"geocommons/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Application{},
		&models.Template{},
		&models.ApplicationTemplate{},
		&models.UserApplication{},
		&models.UserTemplate{},
		&models.FeatureACL{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Password: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestResolverFailsClosedForAnonymous(t *testing.T) {
	db := newTestDB(t)
	resolver := NewResolver(db)
	ctx := context.Background()

	var authErr *apperrors.AuthError

	_, err := resolver.AllowedApplicationIDs(ctx, nil, CapRead)
	require.ErrorAs(t, err, &authErr)

	_, err = resolver.AllowedTemplateIDs(ctx, nil, CapView)
	require.ErrorAs(t, err, &authErr)

	_, err = resolver.AllowedFeatureIDs(ctx, nil, "features_x", CapView)
	require.ErrorAs(t, err, &authErr)

	// A zero-value principal counts as anonymous too
	_, err = resolver.AllowedApplicationIDs(ctx, &models.User{}, CapRead)
	require.ErrorAs(t, err, &authErr)
}

func TestResolverSelectsByCapabilityColumn(t *testing.T) {
	db := newTestDB(t)
	resolver := NewResolver(db)
	ctx := context.Background()
	user := seedUser(t, db, "user@example.com")

	reader := &models.Application{Name: "ReadOnly"}
	editor := &models.Application{Name: "ReadWrite"}
	require.NoError(t, db.Create(reader).Error)
	require.NoError(t, db.Create(editor).Error)

	require.NoError(t, db.Create(&models.UserApplication{
		UserID: user.ID, ApplicationID: reader.ID, Read: true,
	}).Error)
	require.NoError(t, db.Create(&models.UserApplication{
		UserID: user.ID, ApplicationID: editor.ID, Read: true, Write: true,
	}).Error)

	readable, err := resolver.AllowedApplicationIDs(ctx, user, CapRead)
	require.NoError(t, err)
	assert.True(t, readable.Contains(reader.ID))
	assert.True(t, readable.Contains(editor.ID))

	writable, err := resolver.AllowedApplicationIDs(ctx, user, CapWrite)
	require.NoError(t, err)
	assert.False(t, writable.Contains(reader.ID))
	assert.True(t, writable.Contains(editor.ID))

	admin, err := resolver.AllowedApplicationIDs(ctx, user, CapAdmin)
	require.NoError(t, err)
	assert.Empty(t, admin)

	// Capabilities of the wrong resource class are rejected outright
	_, err = resolver.AllowedApplicationIDs(ctx, user, CapView)
	require.Error(t, err)
	_, err = resolver.AllowedTemplateIDs(ctx, user, CapRead)
	require.Error(t, err)
}

func TestPublicSetsExcludeSoftDeleted(t *testing.T) {
	db := newTestDB(t)
	resolver := NewResolver(db)
	ctx := context.Background()

	visible := &models.Application{Name: "Visible", IsPublic: true}
	hidden := &models.Application{Name: "Hidden", IsPublic: false}
	deleted := &models.Application{Name: "Deleted", IsPublic: true}
	require.NoError(t, db.Create(visible).Error)
	require.NoError(t, db.Create(hidden).Error)
	require.NoError(t, db.Create(deleted).Error)
	require.NoError(t, db.Model(deleted).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_at": time.Now()}).Error)

	public, err := resolver.PublicApplicationIDs(ctx)
	require.NoError(t, err)
	assert.True(t, public.Contains(visible.ID))
	assert.False(t, public.Contains(hidden.ID))
	assert.False(t, public.Contains(deleted.ID))
}

func TestVisibleTemplateIDsComposition(t *testing.T) {
	db := newTestDB(t)
	resolver := NewResolver(db)
	ctx := context.Background()
	user := seedUser(t, db, "user@example.com")

	app := &models.Application{Name: "Trails"}
	require.NoError(t, db.Create(app).Error)

	public := &models.Template{Name: "Public", Storage: "features_a", IsPublic: true}
	granted := &models.Template{Name: "Granted", Storage: "features_b", IsPublic: false}
	unrelated := &models.Template{Name: "Unrelated", Storage: "features_c", IsPublic: true}
	require.NoError(t, db.Create(public).Error)
	require.NoError(t, db.Create(granted).Error)
	require.NoError(t, db.Create(unrelated).Error)

	// Only the first two belong to the application
	require.NoError(t, db.Create(&models.ApplicationTemplate{ApplicationID: app.ID, TemplateID: public.ID}).Error)
	require.NoError(t, db.Create(&models.ApplicationTemplate{ApplicationID: app.ID, TemplateID: granted.ID}).Error)

	require.NoError(t, db.Create(&models.UserTemplate{
		UserID: user.ID, TemplateID: granted.ID, View: true,
	}).Error)

	// Anonymous: public ∩ application
	visible, err := resolver.VisibleTemplateIDs(ctx, nil, app.ID)
	require.NoError(t, err)
	assert.True(t, visible.Contains(public.ID))
	assert.False(t, visible.Contains(granted.ID))
	assert.False(t, visible.Contains(unrelated.ID))

	// Authenticated: (allowed ∪ public) ∩ application
	visible, err = resolver.VisibleTemplateIDs(ctx, user, app.ID)
	require.NoError(t, err)
	assert.True(t, visible.Contains(public.ID))
	assert.True(t, visible.Contains(granted.ID))
	assert.False(t, visible.Contains(unrelated.ID))
}

func TestIDSetOperations(t *testing.T) {
	a := NewIDSet("1", "2", "3")
	b := NewIDSet("2", "3", "4")

	union := a.Union(b)
	assert.Len(t, union, 4)
	assert.True(t, union.Contains("1"))
	assert.True(t, union.Contains("4"))

	intersection := a.Intersect(b)
	assert.Len(t, intersection, 2)
	assert.True(t, intersection.Contains("2"))
	assert.False(t, intersection.Contains("1"))

	assert.ElementsMatch(t, []string{"2", "3"}, intersection.IDs())

	empty := NewIDSet()
	assert.Empty(t, empty.Intersect(a))
	assert.Len(t, empty.Union(a), 3)
}

func TestCapabilityReadClass(t *testing.T) {
	assert.True(t, CapRead.IsReadClass())
	assert.True(t, CapView.IsReadClass())
	assert.False(t, CapWrite.IsReadClass())
	assert.False(t, CapEdit.IsReadClass())
	assert.False(t, CapDelete.IsReadClass())
	assert.False(t, CapAdmin.IsReadClass())
}
