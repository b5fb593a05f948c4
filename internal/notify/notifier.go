// Package notify implements the fire-and-forget notification port of the
// lifecycle engine. Failures are logged, never propagated: a lost
// notification must not roll back a completed transition.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/sipaten-app/sipaten/jobs"
)

// AsynqNotifier enqueues notification delivery onto the background queue.
type AsynqNotifier struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewAsynqNotifier constructs an AsynqNotifier.
func NewAsynqNotifier(client *asynq.Client, logger *slog.Logger) *AsynqNotifier {
	return &AsynqNotifier{client: client, logger: logger}
}

// Notify enqueues one notification task.
func (n *AsynqNotifier) Notify(ctx context.Context, userID int64, message string, documentID uuid.UUID) {
	task, err := jobs.NewNotificationTask(jobs.NotificationPayload{
		UserID:     userID,
		Message:    message,
		DocumentID: documentID.String(),
	})
	if err != nil {
		n.logger.Warn("build notification task", slog.Any("error", err))
		return
	}
	if _, err := n.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault)); err != nil {
		n.logger.Warn("enqueue notification",
			slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

// LogNotifier writes notifications to the log only. Used when no queue is
// configured, and in tests.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification.
func (n *LogNotifier) Notify(_ context.Context, userID int64, message string, documentID uuid.UUID) {
	n.logger.Info("notification",
		slog.Int64("user_id", userID),
		slog.String("document_id", documentID.String()),
		slog.String("message", message))
}
