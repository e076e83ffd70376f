package routes

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"geocommons/internal/api/middleware"
	"geocommons/internal/config"
	"geocommons/internal/handlers"
)

func SetupAuthRoutes(e *echo.Echo, db *gorm.DB, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db)
	authMiddleware := middleware.NewAuthMiddleware(db)

	base := e.Group("/api/v1")

	// Public auth routes
	auth := base.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	// Routes requiring authentication
	users := base.Group("/users")
	users.Use(authMiddleware.Required())
	users.GET("/me", authHandler.GetMe)
}
