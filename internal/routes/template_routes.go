package routes

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"geocommons/internal/access"
	"geocommons/internal/api/middleware"
	"geocommons/internal/config"
	"geocommons/internal/handlers"
	"geocommons/internal/services"
)

func SetupTemplateRoutes(e *echo.Echo, db *gorm.DB, cfg *config.Config) {
	resolver := access.NewResolver(db)
	store := services.NewFeatureStore(db)

	templateHandler := handlers.NewTemplateHandler(services.NewTemplateService(db, resolver, store))
	authMiddleware := middleware.NewAuthMiddleware(db)

	templates := e.Group("/api/v1/templates")

	read := templates.Group("")
	read.Use(authMiddleware.Optional())
	read.GET("/:id", templateHandler.Get)

	write := templates.Group("")
	write.Use(authMiddleware.Required())
	write.PUT("/:id", templateHandler.Update)
	write.DELETE("/:id", templateHandler.Delete)

	write.GET("/:id/users", templateHandler.Users)
	write.POST("/:id/users/:userId", templateHandler.GrantPermission)
	write.GET("/:id/users/:userId", templateHandler.GetPermission)
	write.PUT("/:id/users/:userId", templateHandler.UpdatePermission)
	write.DELETE("/:id/users/:userId", templateHandler.RevokePermission)
}
