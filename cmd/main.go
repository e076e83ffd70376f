package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"geocommons/docs/swagger"
	"geocommons/internal/api"
	"geocommons/internal/config"
	"geocommons/internal/db"
	"geocommons/internal/events"
	"geocommons/internal/handlers"
	"geocommons/internal/models"
	"geocommons/internal/services"
	"geocommons/internal/tasks"
	"geocommons/internal/utils/logger"
)

// @title GeoCommons API
// @version 1.0
// @description Multi-tenant geospatial content API.
// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {

	logger := logger.New("geocommons")

	// check if .env file exists
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		logger.Info("No .env file found, skipping environment variable loading")
	} else {
		logger.Info("Loading environment variables from .env file")
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := db.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		err := db.Close()
		if err != nil {
			log.Fatalf("Failed to close database connection: %v", err)
		}
	}()

	dbInstance := db.GetDB()

	// Audit trail for resource creation
	events.On("application.created", func(data interface{}) {
		if app, ok := data.(*models.Application); ok {
			logger.Info("Application created: %s (%s)", app.Name, app.ID)
		}
	})
	events.On("template.created", func(data interface{}) {
		if template, ok := data.(*models.Template); ok {
			logger.Info("Template created: %s backed by %s", template.ID, template.Storage)
		}
	})

	// Initialize task handlers
	taskHandler := tasks.NewTaskHandler(dbInstance)

	// Initialize task server
	taskServer := tasks.NewServer(
		cfg.Redis.Addr,
		cfg.Redis.Username,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Worker.Concurrency,
		taskHandler,
		logger,
	)

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	// Start task server
	go func() {
		if err := taskServer.Start(serverCtx); err != nil {
			logger.Error("Task server error", err)
		}
	}()

	// Initialize task scheduler
	taskScheduler := tasks.NewScheduler(
		cfg.Redis.Addr,
		cfg.Redis.Username,
		cfg.Redis.Password,
		cfg.Redis.DB,
		logger,
	)

	// Start task scheduler
	go func() {
		if err := taskScheduler.Start(); err != nil {
			logger.Error("Task scheduler error", err)
		}
	}()

	// Attachment storage is optional; without it the API runs but uploads
	// are rejected
	if cfg.S3.BucketName != "" {
		s3Service, err := services.NewS3Service(cfg.S3)
		if err != nil {
			log.Fatalf("Failed to initialize S3 service: %v", err)
		}
		models.RegisterAttachmentSigner(s3Service)
		handlers.RegisterFileStorage(s3Service)
	} else {
		logger.Warn("S3 bucket not configured, attachment uploads disabled")
	}

	// Initialize API server
	apiServer := api.NewServer(cfg, dbInstance)
	go func() {
		logger.Success("API server started")

		// Swagger documentation
		swagger.SwaggerInfo.Title = "GeoCommons API Documentation"
		swagger.SwaggerInfo.Description = "Multi-tenant geospatial content API."
		swagger.SwaggerInfo.Version = "1.0"

		if err := apiServer.Start(); err != nil {
			logger.Error("API server error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the servers
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop task scheduler
	taskScheduler.Stop()

	// Stop task server
	serverCancel()

	// Shutdown API server
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown API server", err)
	}

	logger.Info("Servers shutdown gracefully")
}
