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

func SetupFeatureRoutes(e *echo.Echo, db *gorm.DB, cfg *config.Config) {
	resolver := access.NewResolver(db)
	store := services.NewFeatureStore(db)

	featureService := services.NewFeatureService(db, resolver, store)
	featureHandler := handlers.NewFeatureHandler(featureService)
	attachmentHandler := handlers.NewAttachmentHandler(
		services.NewAttachmentService(db, featureService, handlers.GetFileStorage()))
	authMiddleware := middleware.NewAuthMiddleware(db)

	features := e.Group("/api/v1/templates/:templateId/features")

	read := features.Group("")
	read.Use(authMiddleware.Optional())
	read.GET("", featureHandler.List)
	read.GET("/:id", featureHandler.Get)
	read.GET("/:featureId/attachments", attachmentHandler.List)

	write := features.Group("")
	write.Use(authMiddleware.Required())
	write.POST("", featureHandler.Create)
	write.PUT("/:id", featureHandler.Update)
	write.DELETE("/:id", featureHandler.Delete)
	write.POST("/:featureId/attachments", attachmentHandler.Upload)
	write.DELETE("/:featureId/attachments/:id", attachmentHandler.Delete)
}
