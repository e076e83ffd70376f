package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"geocommons/internal/access"
	"geocommons/internal/models"
)

type testEnv struct {
	db        *gorm.DB
	resolver  *access.Resolver
	store     FeatureStore
	apps      *ApplicationService
	templates *TemplateService
	features  *FeatureService
}

func newTestEnv(t *testing.T) *testEnv {
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
		&models.Attachment{},
	))

	resolver := access.NewResolver(db)
	store := NewFeatureStore(db)
	features := NewFeatureService(db, resolver, store)

	return &testEnv{
		db:        db,
		resolver:  resolver,
		store:     store,
		apps:      NewApplicationService(db, resolver),
		templates: NewTemplateService(db, resolver, store),
		features:  features,
	}
}

func (e *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()

	user := &models.User{
		Email:    email,
		Password: "not-a-real-hash",
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}
