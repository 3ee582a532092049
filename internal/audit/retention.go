package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetentionRepository deletes aged audit events.
type RetentionRepository interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retention prunes audit events past the configured window. The
// background worker runs it on a schedule.
type Retention struct {
	repo   RetentionRepository
	window time.Duration
	logger *slog.Logger
}

// NewRetention constructs a retention pruner keeping `window` worth of
// events.
func NewRetention(repo RetentionRepository, window time.Duration, logger *slog.Logger) *Retention {
	return &Retention{repo: repo, window: window, logger: logger}
}

// Prune deletes events older than the retention window.
func (r *Retention) Prune(ctx context.Context) (int64, error) {
	if r.repo == nil {
		return 0, fmt.Errorf("audit: retention repository not configured")
	}
	if r.window <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-r.window)
	deleted, err := r.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if r.logger != nil && deleted > 0 {
		r.logger.Info("audit retention prune",
			slog.Int64("deleted", deleted),
			slog.Time("cutoff", cutoff))
	}
	return deleted, nil
}
