package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"geocommons/internal/models"
	"geocommons/internal/utils"
	"geocommons/internal/utils/logger"
)

var log = logger.New("auth_middleware")

const principalKey = "principal"

// AuthMiddleware resolves the bearer token into the request principal.
// Required rejects requests without a valid token; Optional lets them
// through with a nil principal so public resources stay reachable.
type AuthMiddleware struct {
	db *gorm.DB
}

func NewAuthMiddleware(db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{db: db}
}

// Required authenticates the request or rejects it with 401
func (m *AuthMiddleware) Required() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			user, err := m.resolve(c, token)
			if err != nil {
				return err
			}

			c.Set(principalKey, user)
			return next(c)
		}
	}
}

// Optional authenticates when a bearer token is present and otherwise
// leaves the principal unset. A token that is present but invalid is still
// rejected; absence of credentials is the only anonymous path.
func (m *AuthMiddleware) Optional() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				return next(c)
			}

			user, err := m.resolve(c, token)
			if err != nil {
				return err
			}

			c.Set(principalKey, user)
			return next(c)
		}
	}
}

func (m *AuthMiddleware) resolve(c echo.Context, token string) (*models.User, error) {
	claims, err := utils.ParseJWT(token)
	if err != nil {
		log.Warn("Rejected token: %v", err)
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	user, err := models.GetUserByID(claims.UserID, m.db.WithContext(c.Request().Context()))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "User not found")
	}

	return user, nil
}

func bearerToken(c echo.Context) (string, bool) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// CurrentUser returns the request principal, or nil when anonymous
func CurrentUser(c echo.Context) *models.User {
	if user, ok := c.Get(principalKey).(*models.User); ok {
		return user
	}
	return nil
}
