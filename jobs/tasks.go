package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotification is the task type for delivering user notifications.
	TaskTypeNotification = "notification:deliver"
)

// NotificationPayload describes one user notification to deliver.
type NotificationPayload struct {
	UserID     int64  `json:"user_id"`
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
}

// NewNotificationTask constructs an Asynq task.
func NewNotificationTask(payload NotificationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotification, data), nil
}

// NotificationDeliverer processes TaskTypeNotification tasks. Delivery writes
// the inbox row; push transport sits behind an external gateway and is out of
// scope here.
type NotificationDeliverer struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewNotificationDeliverer constructs a NotificationDeliverer.
func NewNotificationDeliverer(pool *pgxpool.Pool, logger *slog.Logger) *NotificationDeliverer {
	return &NotificationDeliverer{pool: pool, logger: logger}
}

// Handle stores the notification for the user's inbox.
func (d *NotificationDeliverer) Handle(ctx context.Context, t *asynq.Task) error {
	var payload NotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if d.pool == nil {
		d.logger.Info("notification (no store)",
			slog.Int64("user_id", payload.UserID), slog.String("message", payload.Message))
		return nil
	}
	_, err := d.pool.Exec(ctx, `INSERT INTO notifications (user_id, message, document_id, created_at)
VALUES ($1, $2, $3, NOW())`, payload.UserID, payload.Message, payload.DocumentID)
	if err != nil {
		d.logger.Error("store notification", slog.Any("error", err))
		return err
	}
	return nil
}
