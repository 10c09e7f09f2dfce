package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
	"github.com/kirillkom/invoice-hub-agent/internal/core/ports"
)

const (
	DefaultStatsInterval = 10 * time.Second
	DefaultTaskInterval  = 2 * time.Second

	timerStats = "stats"
	timerTask  = "task"
)

type PollerConfig struct {
	StatsInterval time.Duration
	TaskInterval  time.Duration
}

// StatusPoller keeps GlobalStatus current for the whole session, independent of the upload workflow.
type StatusPoller struct {
	review   ports.ReviewAPI
	invoices ports.InvoiceAPI
	uploads  ports.UploadAPI
	session  ports.SessionStore
	status   *StatusStore
	observer ports.WorkflowObserver

	stats *PeriodicTask
	task  *PeriodicTask

	mu         sync.Mutex
	parent     context.Context
	started    bool
	suppressed bool
}

func NewStatusPoller(
	review ports.ReviewAPI,
	invoices ports.InvoiceAPI,
	uploads ports.UploadAPI,
	session ports.SessionStore,
	status *StatusStore,
	observer ports.WorkflowObserver,
	cfg PollerConfig,
) *StatusPoller {
	if observer == nil {
		observer = noopObserver{}
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = DefaultStatsInterval
	}
	if cfg.TaskInterval <= 0 {
		cfg.TaskInterval = DefaultTaskInterval
	}
	p := &StatusPoller{
		review:   review,
		invoices: invoices,
		uploads:  uploads,
		session:  session,
		status:   status,
		observer: observer,
	}
	p.stats = NewPeriodicTask(timerStats, cfg.StatsInterval, true, p.statsTick)
	p.task = NewPeriodicTask(timerTask, cfg.TaskInterval, true, p.checkTask)
	return p
}

// Start runs the stats timer and, when a task id is stored, the task timer. Both stop with ctx.
func (p *StatusPoller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.parent = ctx
	p.started = true
	p.mu.Unlock()

	p.stats.Start(ctx)
	p.EnsureTaskTimer(ctx)
}

func (p *StatusPoller) Stop() {
	p.mu.Lock()
	p.started = false
	p.mu.Unlock()

	p.stats.Stop()
	p.task.Stop()
}

// SuppressTaskPolling pauses the task timer while another workflow polls the same task.
func (p *StatusPoller) SuppressTaskPolling(suppressed bool) {
	p.mu.Lock()
	p.suppressed = suppressed
	parent := p.parent
	p.mu.Unlock()

	if suppressed {
		p.task.Stop()
		return
	}
	if parent != nil {
		p.EnsureTaskTimer(parent)
	}
}

// EnsureTaskTimer starts the task timer if polling is allowed and a task id is stored.
func (p *StatusPoller) EnsureTaskTimer(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || p.suppressed || p.task.Running() {
		return false
	}

	taskID, ok, err := p.session.Get(ctx, domain.SessionKeyActiveTaskID)
	if err != nil {
		slog.Warn("active_task_read_failed", "error", err)
		return false
	}
	if !ok || taskID == "" {
		return false
	}
	return p.task.Start(p.parent)
}

func (p *StatusPoller) TaskPolling() bool {
	return p.task.Running()
}

// RefreshStats recomputes review and sync counts from the date and amount review sets.
func (p *StatusPoller) RefreshStats(ctx context.Context) (domain.ReviewStats, error) {
	var dates, amounts []domain.ReviewRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dates, err = p.review.GetDateRecords(gctx)
		if err != nil {
			return fmt.Errorf("get date records: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		amounts, err = p.review.GetAmountRecords(gctx)
		if err != nil {
			return fmt.Errorf("get amount records: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.ReviewStats{}, err
	}

	rows := make([]domain.ReviewRecord, 0, len(dates)+len(amounts))
	rows = append(rows, dates...)
	rows = append(rows, amounts...)
	stats := domain.AggregateReviewStats(rows)

	p.status.Set(ctx, domain.StatusPatch{
		ReviewCount: domain.Int(stats.ReviewCount()),
		SyncCount:   domain.Int(stats.SyncCount()),
	})
	return stats, nil
}

func (p *StatusPoller) statsTick(ctx context.Context) bool {
	if _, err := p.RefreshStats(ctx); err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.observer.PollerTick(timerStats, "error")
		slog.Warn("poller_tick_failed", "timer", timerStats, "error", err)
		return true
	}
	p.observer.PollerTick(timerStats, "ok")
	p.EnsureTaskTimer(ctx)
	return true
}

// checkTask is the task timer tick. Returning false stops the timer.
func (p *StatusPoller) checkTask(ctx context.Context) bool {
	p.mu.Lock()
	suppressed := p.suppressed
	p.mu.Unlock()
	if suppressed {
		return false
	}

	taskID, ok, err := p.session.Get(ctx, domain.SessionKeyActiveTaskID)
	if err != nil {
		slog.Warn("poller_tick_failed", "timer", timerTask, "error", err)
		p.observer.PollerTick(timerTask, "error")
		return true
	}
	if !ok || taskID == "" {
		return false
	}

	task, err := p.uploads.GetProcessStatus(ctx, taskID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		if domain.IsKind(err, domain.ErrTaskGone) {
			p.observer.PollerTick(timerTask, "gone")
			slog.Info("active_task_gone", "task_id", taskID)
			p.clearTask(ctx)
			return false
		}
		p.observer.PollerTick(timerTask, "error")
		slog.Warn("poller_tick_failed", "timer", timerTask, "task_id", taskID, "error", err)
		return true
	}
	p.observer.PollerTick(timerTask, "ok")

	total := task.Progress.Total
	processed := task.Progress.Processed

	switch task.Status {
	case domain.TaskCompleted:
		p.status.Set(ctx, domain.StatusPatch{
			IsUploading:     domain.Bool(false),
			ProcessingCount: domain.Int(0),
			TotalProcessing: domain.Int(0),
			SyncCount:       domain.Int(processed),
			IsComplete:      domain.Bool(true),
		})
		p.clearTask(ctx)
		p.observer.TaskFinished(task.Status)
		p.refreshAfterCompletion(ctx)
		return false

	case domain.TaskFailed:
		p.status.Set(ctx, domain.StatusPatch{
			IsUploading:     domain.Bool(false),
			ProcessingCount: domain.Int(0),
			TotalProcessing: domain.Int(0),
			ReviewCount:     domain.Int(0),
			SyncCount:       domain.Int(0),
			IsComplete:      domain.Bool(false),
		})
		p.clearTask(ctx)
		p.observer.TaskFinished(task.Status)
		return false

	case domain.TaskDuplicateDetected:
		p.status.Set(ctx, domain.StatusPatch{
			IsUploading:     domain.Bool(false),
			ProcessingCount: domain.Int(0),
			IsComplete:      domain.Bool(false),
		})
		return true

	default:
		p.status.Set(ctx, domain.StatusPatch{
			IsUploading:     domain.Bool(false),
			ProcessingCount: domain.Int(task.Progress.Remaining()),
			TotalProcessing: domain.Int(total),
			SyncCount:       domain.Int(processed),
			IsComplete:      domain.Bool(false),
		})
		return true
	}
}

func (p *StatusPoller) refreshAfterCompletion(ctx context.Context) {
	stats, err := p.invoices.GetStats(ctx)
	if err != nil {
		slog.Warn("invoice_stats_refresh_failed", "error", err)
		return
	}
	p.status.Set(ctx, domain.StatusPatch{ReviewCount: domain.Int(stats.PendingReview)})
}

func (p *StatusPoller) clearTask(ctx context.Context) {
	if err := p.session.Delete(ctx, domain.SessionKeyActiveTaskID); err != nil {
		slog.Warn("active_task_clear_failed", "error", err)
	}
}
