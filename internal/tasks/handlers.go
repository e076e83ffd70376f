package tasks

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"geocommons/internal/config"
	"geocommons/internal/models"
	"geocommons/internal/services"
	"geocommons/internal/tasks/rate"
	"geocommons/internal/utils/logger"
)

var (
	cfg, _ = config.Load()
)

// TaskHandler handles task processing with improved error handling and logging
type TaskHandler struct {
	db          *gorm.DB
	logger      *logger.Logger
	taskClient  *TaskClient
	store       services.FeatureStore
	dropLimiter *rate.QueueRateLimiter
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(db *gorm.DB) *TaskHandler {
	taskClient := NewTaskClient(cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)

	return &TaskHandler{
		db:         db,
		logger:     logger.New("task_handler"),
		taskClient: taskClient,
		store:      services.NewFeatureStore(db),
		dropLimiter: rate.NewQueueRateLimiter(taskClient.GetRedisClient(), rate.QueueConfig{
			Name: QueueLow,
			RateLimit: rate.RateLimit{
				Window:  time.Minute,
				MaxJobs: 30,
			},
		}),
	}
}

// HandlePurgeSoftDeleted permanently removes resources that have been
// soft-deleted for longer than the retention window. Feature tables of
// purged templates are dropped; drops go through the rate limiter so one
// purge run cannot saturate the database with DDL.
func (h *TaskHandler) HandlePurgeSoftDeleted(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().AddDate(0, 0, -cfg.Worker.PurgeAfterDays)
	h.logger.Info("Purging resources soft-deleted before %s", cutoff.Format(time.RFC3339))

	var templates []models.Template
	err := h.db.WithContext(ctx).
		Where("is_deleted = ? AND deleted_at < ?", true, cutoff).
		Find(&templates).Error
	if err != nil {
		return h.logger.Error("Failed to load purgeable templates", err)
	}

	for _, template := range templates {
		allowed, err := h.dropLimiter.Allow(ctx, "drop_table")
		if err != nil {
			return h.logger.Error("Rate limiter check failed", err)
		}
		if !allowed {
			// Leave the remainder for the next scheduled run
			h.logger.Warn("Drop rate limit reached, deferring remaining templates")
			break
		}

		if err := h.store.DropTable(ctx, template.Storage); err != nil {
			h.logger.Warn("Failed to drop %s, will retry next run: %v", template.Storage, err)
			continue
		}

		if err := h.db.WithContext(ctx).
			Delete(&models.Template{}, "id = ?", template.ID).Error; err != nil {
			return h.logger.Error("Failed to purge template row", err)
		}

		h.logger.Success("Purged template %s and its table %s", template.ID, template.Storage)
	}

	if err := h.db.WithContext(ctx).
		Where("is_deleted = ? AND deleted_at < ?", true, cutoff).
		Delete(&models.Application{}).Error; err != nil {
		return h.logger.Error("Failed to purge application rows", err)
	}

	if err := h.db.WithContext(ctx).
		Where("is_deleted = ? AND deleted_at < ?", true, cutoff).
		Delete(&models.Attachment{}).Error; err != nil {
		return h.logger.Error("Failed to purge attachment rows", err)
	}

	return nil
}
