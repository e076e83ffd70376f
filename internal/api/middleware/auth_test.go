package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"geocommons/internal/config"
	"geocommons/internal/models"
	"geocommons/internal/utils"
)

// setTestSecret points JWT signing at the test configuration's secret
func setTestSecret(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", config.LoadTestConfig().JWT.Secret)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func echoHandler(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return c.String(http.StatusOK, "anonymous")
	}
	return c.String(http.StatusOK, user.Email)
}

func TestRequiredRejectsMissingAndInvalidTokens(t *testing.T) {
	setTestSecret(t)
	db := newTestDB(t)
	e := echo.New()
	m := NewAuthMiddleware(db)
	handler := m.Required()(echoHandler)

	// No header at all
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	err := handler(e.NewContext(req, rec))
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)

	// Garbage token
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	err = handler(e.NewContext(req, rec))
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestRequiredResolvesPrincipal(t *testing.T) {
	setTestSecret(t)
	db := newTestDB(t)
	user := &models.User{Email: "user@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)

	token, err := utils.GenerateJWT(*user)
	require.NoError(t, err)

	e := echo.New()
	m := NewAuthMiddleware(db)
	handler := m.Required()(echoHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, "user@example.com", rec.Body.String())
}

func TestRequiredRejectsTokenForDeletedUser(t *testing.T) {
	setTestSecret(t)
	db := newTestDB(t)
	user := &models.User{Email: "gone@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)

	token, err := utils.GenerateJWT(*user)
	require.NoError(t, err)

	require.NoError(t, db.Model(user).Update("is_deleted", true).Error)

	e := echo.New()
	m := NewAuthMiddleware(db)
	handler := m.Required()(echoHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	err = handler(e.NewContext(req, rec))
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestOptionalAllowsAnonymousButRejectsBadTokens(t *testing.T) {
	setTestSecret(t)
	db := newTestDB(t)
	e := echo.New()
	m := NewAuthMiddleware(db)
	handler := m.Optional()(echoHandler)

	// Absent credentials pass through with a nil principal
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, "anonymous", rec.Body.String())

	// A present but invalid token is still an error
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer junk")
	rec = httptest.NewRecorder()
	err := handler(e.NewContext(req, rec))
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}
