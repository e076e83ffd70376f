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

func SetupApplicationRoutes(e *echo.Echo, db *gorm.DB, cfg *config.Config) {
	resolver := access.NewResolver(db)
	store := services.NewFeatureStore(db)

	applicationHandler := handlers.NewApplicationHandler(services.NewApplicationService(db, resolver))
	templateHandler := handlers.NewTemplateHandler(services.NewTemplateService(db, resolver, store))
	authMiddleware := middleware.NewAuthMiddleware(db)

	apps := e.Group("/api/v1/applications")

	// Read routes: anonymous callers reach public resources, so auth is
	// optional here and the access layer decides
	read := apps.Group("")
	read.Use(authMiddleware.Optional())
	read.GET("", applicationHandler.List)
	read.GET("/:id", applicationHandler.Get)
	read.GET("/:applicationId/templates", templateHandler.List)

	// Everything else requires a principal
	write := apps.Group("")
	write.Use(authMiddleware.Required())
	write.POST("", applicationHandler.Create)
	write.PUT("/:id", applicationHandler.Update)
	write.DELETE("/:id", applicationHandler.Delete)
	write.POST("/:applicationId/templates", templateHandler.Create)

	write.GET("/:id/users", applicationHandler.Users)
	write.POST("/:id/users/:userId", applicationHandler.GrantPermission)
	write.GET("/:id/users/:userId", applicationHandler.GetPermission)
	write.PUT("/:id/users/:userId", applicationHandler.UpdatePermission)
	write.DELETE("/:id/users/:userId", applicationHandler.RevokePermission)
}
