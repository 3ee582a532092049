package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/aegis-platform/aegis/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditPrune is the task type for audit retention pruning.
	TaskAuditPrune = "audit:prune"
)

// NewAuditPruneTask constructs an Asynq task for one retention pass.
func NewAuditPruneTask() *asynq.Task {
	return asynq.NewTask(TaskAuditPrune, nil)
}

// NewAuditPruneHandler builds the handler running audit retention.
// Metrics may be nil.
func NewAuditPruneHandler(retention *audit.Retention, metrics *Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskAuditPrune)
		deleted, err := retention.Prune(ctx)
		if err = tracker.End(err); err != nil {
			if logger != nil {
				logger.Error("audit prune", slog.Any("error", err))
			}
			return err
		}
		if logger != nil {
			logger.Info("audit prune complete", slog.Int64("deleted", deleted))
		}
		return nil
	}
}
