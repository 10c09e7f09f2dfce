package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
	"github.com/kirillkom/invoice-hub-agent/internal/core/ports"
)

// TaskWatcher polls a processing task until it stops being "processing".
type TaskWatcher struct {
	api      ports.UploadAPI
	interval time.Duration
}

func NewTaskWatcher(api ports.UploadAPI, interval time.Duration) *TaskWatcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &TaskWatcher{api: api, interval: interval}
}

// Watch returns on completed, failed or duplicate_detected with at least one duplicate.
// Transient errors are logged and retried on the next tick; ErrTaskGone ends the watch.
func (w *TaskWatcher) Watch(ctx context.Context, taskID string, onUpdate func(domain.ProcessingTask)) (*domain.ProcessingTask, error) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		task, err := w.api.GetProcessStatus(ctx, taskID)
		switch {
		case err == nil:
			if onUpdate != nil {
				onUpdate(*task)
			}
			if settled(task) {
				return task, nil
			}
		case domain.IsKind(err, domain.ErrTaskGone), domain.IsKind(err, domain.ErrUnauthorized):
			return nil, fmt.Errorf("watch task %s: %w", taskID, err)
		default:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("task_status_poll_failed", "task_id", taskID, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func settled(task *domain.ProcessingTask) bool {
	if task.Status.Terminal() {
		return true
	}
	return task.Status == domain.TaskDuplicateDetected && len(task.Duplicates) > 0
}
