package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
	"github.com/kirillkom/invoice-hub-agent/internal/core/ports"
)

// TaskPollingGate lets the upload workflow pause background task polling while it owns the task.
type TaskPollingGate interface {
	SuppressTaskPolling(suppressed bool)
}

type UploadUseCase struct {
	api       ports.UploadAPI
	session   ports.SessionStore
	status    *StatusStore
	caches    *CacheRegistry
	watcher   *TaskWatcher
	sequencer *DuplicateSequencer
	gate      TaskPollingGate
	observer  ports.WorkflowObserver
	batchSize int

	mu           sync.Mutex
	batch        domain.UploadBatch
	phase        domain.UploadPhase
	progress     int
	task         *domain.ProcessingTask
	lastErr      string
	running      bool
	generation   uint64
	keyToFile    map[string]domain.FileHandle
	runFiles     []domain.FileHandle
	skippedKeys  []string
	skippedFiles []domain.FileHandle
}

func NewUploadUseCase(
	api ports.UploadAPI,
	session ports.SessionStore,
	status *StatusStore,
	caches *CacheRegistry,
	watcher *TaskWatcher,
	sequencer *DuplicateSequencer,
	gate TaskPollingGate,
	observer ports.WorkflowObserver,
) *UploadUseCase {
	if observer == nil {
		observer = noopObserver{}
	}
	uc := &UploadUseCase{
		api:       api,
		session:   session,
		status:    status,
		caches:    caches,
		watcher:   watcher,
		sequencer: sequencer,
		gate:      gate,
		observer:  observer,
		batchSize: domain.UploadBatchSize,
		phase:     domain.PhaseIdle,
		keyToFile: make(map[string]domain.FileHandle),
	}
	sequencer.OnFinalize(uc.finishDuplicates)
	return uc
}

// AddFiles extends the selection. Files already selected or skipped as duplicates are dropped.
func (uc *UploadUseCase) AddFiles(files ...domain.FileHandle) int {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	dropped := 0
	accepted := make([]domain.FileHandle, 0, len(files))
	for _, f := range files {
		if uc.skippedLocked(f) {
			dropped++
			continue
		}
		accepted = append(accepted, f)
	}
	dropped += uc.batch.Add(accepted...)
	return dropped
}

func (uc *UploadUseCase) RemoveFile(index int) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.running {
		return domain.ErrUploadInProgress
	}
	return uc.batch.Remove(index)
}

func (uc *UploadUseCase) State() domain.UploadState {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.stateLocked()
}

// Upload sends the selection in batches, starts processing and waits for the task to settle.
func (uc *UploadUseCase) Upload(ctx context.Context, forceUpload bool) (domain.UploadState, error) {
	gen, files, err := uc.begin()
	if err != nil {
		return uc.State(), err
	}
	return uc.run(ctx, gen, files, forceUpload)
}

// StartUpload validates and claims the workflow synchronously, then runs it in the background.
func (uc *UploadUseCase) StartUpload(ctx context.Context, forceUpload bool) (domain.UploadState, error) {
	gen, files, err := uc.begin()
	if err != nil {
		return uc.State(), err
	}
	state := uc.State()
	go func() {
		if _, err := uc.run(ctx, gen, files, forceUpload); err != nil {
			slog.Warn("upload_failed", "error", err)
		}
	}()
	return state, nil
}

// Resume re-attaches to the task id left in the session store by a previous run.
func (uc *UploadUseCase) Resume(ctx context.Context) (domain.UploadState, error) {
	taskID, ok, err := uc.session.Get(ctx, domain.SessionKeyActiveTaskID)
	if err != nil {
		return uc.State(), fmt.Errorf("read active task id: %w", err)
	}
	if !ok || taskID == "" {
		return uc.State(), nil
	}

	uc.mu.Lock()
	if uc.running || uc.sequencer.Busy() {
		uc.mu.Unlock()
		return uc.State(), domain.ErrUploadInProgress
	}
	uc.generation++
	gen := uc.generation
	uc.running = true
	uc.runFiles = nil
	uc.phase = domain.PhaseProcessing
	uc.lastErr = ""
	uc.mu.Unlock()

	uc.suppress(true)
	return uc.watch(ctx, gen, taskID)
}

// Reset drops all workflow state; in-flight results of the previous generation are discarded.
func (uc *UploadUseCase) Reset() {
	uc.mu.Lock()
	uc.generation++
	uc.batch.Clear()
	uc.phase = domain.PhaseIdle
	uc.progress = 0
	uc.task = nil
	uc.lastErr = ""
	uc.running = false
	uc.keyToFile = make(map[string]domain.FileHandle)
	uc.runFiles = nil
	uc.skippedKeys = nil
	uc.skippedFiles = nil
	uc.mu.Unlock()

	uc.sequencer.Reset()
	uc.suppress(false)
}

func (uc *UploadUseCase) begin() (uint64, []domain.FileHandle, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.running || uc.sequencer.Busy() {
		return 0, nil, domain.ErrUploadInProgress
	}
	if uc.batch.Len() == 0 {
		return 0, nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("no files selected"))
	}

	uc.generation++
	uc.running = true
	uc.runFiles = uc.batch.Files()
	uc.phase = domain.PhaseUploading
	uc.progress = 0
	uc.task = nil
	uc.lastErr = ""
	return uc.generation, uc.batch.Files(), nil
}

func (uc *UploadUseCase) run(ctx context.Context, gen uint64, files []domain.FileHandle, forceUpload bool) (domain.UploadState, error) {
	uc.suppress(true)
	uc.status.Set(ctx, domain.StatusPatch{IsUploading: domain.Bool(true), IsComplete: domain.Bool(false)})

	keys, err := uc.sendBatches(ctx, gen, files)
	if err != nil {
		return uc.fail(ctx, gen, err)
	}

	taskID, err := uc.api.ProcessInvoices(ctx, keys, forceUpload)
	if err != nil {
		return uc.fail(ctx, gen, fmt.Errorf("start processing: %w", err))
	}
	if !uc.storeActiveTask(ctx, gen, taskID) {
		return uc.State(), nil
	}

	if !uc.apply(gen, func() { uc.phase = domain.PhaseProcessing }) {
		return uc.State(), nil
	}
	return uc.watch(ctx, gen, taskID)
}

// storeActiveTask records taskID for the background poller unless gen was
// superseded (logout, reset) meanwhile. A write that loses that race is undone.
func (uc *UploadUseCase) storeActiveTask(ctx context.Context, gen uint64, taskID string) bool {
	if !uc.current(gen) {
		return false
	}
	if err := uc.session.Set(ctx, domain.SessionKeyActiveTaskID, taskID); err != nil {
		slog.Warn("active_task_store_failed", "task_id", taskID, "error", err)
	}
	if !uc.current(gen) {
		uc.clearActiveTask(ctx)
		return false
	}
	return true
}

func (uc *UploadUseCase) current(gen uint64) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return gen == uc.generation
}

func (uc *UploadUseCase) sendBatches(ctx context.Context, gen uint64, files []domain.FileHandle) ([]string, error) {
	chunks := chunkFiles(files, uc.batchSize)
	total := len(files)
	keys := make([]string, 0, total)
	sent := 0

	for i, chunk := range chunks {
		done := sent
		inFlight := len(chunk)
		progress := func(written, size int64) {
			if size <= 0 {
				return
			}
			frac := float64(written) / float64(size)
			uc.raiseProgress(gen, uploadProgress(done, inFlight, frac, total))
		}

		started := time.Now()
		batchKeys, err := uc.api.UploadFiles(ctx, chunk, progress)
		uc.observer.UploadBatch(len(chunk), time.Since(started), err)
		if err != nil {
			return nil, fmt.Errorf("upload batch %d/%d: %w", i+1, len(chunks), err)
		}

		uc.apply(gen, func() {
			if len(batchKeys) == len(chunk) {
				for j, key := range batchKeys {
					uc.keyToFile[key] = chunk[j]
				}
			}
		})
		keys = append(keys, batchKeys...)
		sent += len(chunk)
		uc.raiseProgress(gen, uploadProgress(sent, 0, 0, total))
	}
	return keys, nil
}

// uploadProgress is the cumulative percentage across batches, capped at 99 until every file is sent.
func uploadProgress(done, inFlight int, frac float64, total int) int {
	if total <= 0 {
		return 0
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	if done >= total {
		return 100
	}
	p := int(math.Round(100 * (float64(done) + frac*float64(inFlight)) / float64(total)))
	if p > 99 {
		p = 99
	}
	return p
}

func (uc *UploadUseCase) raiseProgress(gen uint64, p int) {
	uc.apply(gen, func() {
		if p > uc.progress {
			uc.progress = p
		}
	})
}

func (uc *UploadUseCase) watch(ctx context.Context, gen uint64, taskID string) (domain.UploadState, error) {
	task, err := uc.watcher.Watch(ctx, taskID, func(t domain.ProcessingTask) {
		if !uc.apply(gen, func() { uc.task = &t }) {
			return
		}
		if t.Status == domain.TaskProcessing {
			uc.status.Set(ctx, domain.StatusPatch{
				ProcessingCount: domain.Int(t.Progress.Remaining()),
				TotalProcessing: domain.Int(t.Progress.Total),
			})
		}
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrTaskGone) {
			uc.clearActiveTask(ctx)
		}
		return uc.fail(ctx, gen, err)
	}
	return uc.settle(ctx, gen, task)
}

func (uc *UploadUseCase) settle(ctx context.Context, gen uint64, task *domain.ProcessingTask) (domain.UploadState, error) {
	uc.observer.TaskFinished(task.Status)

	switch task.Status {
	case domain.TaskCompleted:
		if !uc.apply(gen, func() {
			uc.dropRunFilesLocked()
			uc.keyToFile = make(map[string]domain.FileHandle)
			uc.phase = domain.PhaseCompleted
			uc.progress = 100
			uc.task = task
			uc.running = false
		}) {
			return uc.State(), nil
		}
		uc.clearActiveTask(ctx)
		uc.caches.Invalidate(CacheInvoices, CacheReview)
		uc.status.Set(ctx, domain.StatusPatch{
			IsUploading:     domain.Bool(false),
			ProcessingCount: domain.Int(0),
			TotalProcessing: domain.Int(0),
			IsComplete:      domain.Bool(true),
		})
		uc.suppress(false)
		return uc.State(), nil

	case domain.TaskDuplicateDetected:
		if !uc.apply(gen, func() {
			uc.phase = domain.PhaseDuplicateDetected
			uc.task = task
			uc.running = false
		}) {
			return uc.State(), nil
		}
		uc.sequencer.Begin(gen, task.Duplicates)
		uc.status.Set(ctx, domain.StatusPatch{
			IsUploading:     domain.Bool(false),
			ProcessingCount: domain.Int(0),
			IsComplete:      domain.Bool(false),
		})
		slog.Info("duplicates_detected", "task_id", task.TaskID, "count", len(task.Duplicates))
		return uc.State(), nil

	default:
		msg := task.Message
		if msg == "" {
			msg = "processing failed"
		}
		uc.clearActiveTask(ctx)
		return uc.fail(ctx, gen, fmt.Errorf("task %s: %s", task.TaskID, msg))
	}
}

// finishDuplicates runs once per duplicate sequence after the last decision.
// A sequence that belongs to a superseded generation changes nothing.
func (uc *UploadUseCase) finishDuplicates(ctx context.Context, result FinalizeResult) {
	applied := uc.apply(result.Owner, func() {
		for _, key := range result.Skipped {
			uc.skippedKeys = append(uc.skippedKeys, key)
			if f, ok := uc.keyToFile[key]; ok {
				uc.skippedFiles = append(uc.skippedFiles, f)
			}
		}
		uc.dropRunFilesLocked()
		uc.keyToFile = make(map[string]domain.FileHandle)
		uc.progress = 0
		uc.task = result.Task
		uc.running = false
		switch {
		case result.Err != nil:
			uc.phase = domain.PhaseFailed
			uc.lastErr = result.Err.Error()
		case result.Task != nil && result.Task.Status == domain.TaskFailed:
			uc.phase = domain.PhaseFailed
			uc.lastErr = result.Task.Message
		default:
			uc.phase = domain.PhaseIdle
			uc.lastErr = ""
		}
	})
	if result.Task != nil {
		uc.observer.TaskFinished(result.Task.Status)
	}
	if !applied {
		slog.Info("duplicates_resolved_stale", "skipped", len(result.Skipped), "forced", len(result.Forced))
		return
	}

	uc.clearActiveTask(ctx)
	uc.caches.Invalidate(CacheInvoices, CacheReview)
	uc.status.Set(ctx, domain.StatusPatch{
		IsUploading:     domain.Bool(false),
		ProcessingCount: domain.Int(0),
		TotalProcessing: domain.Int(0),
	})
	uc.suppress(false)
	slog.Info("duplicates_resolved", "skipped", len(result.Skipped), "forced", len(result.Forced))
}

func (uc *UploadUseCase) fail(ctx context.Context, gen uint64, err error) (domain.UploadState, error) {
	if !uc.apply(gen, func() {
		uc.phase = domain.PhaseFailed
		uc.lastErr = err.Error()
		uc.running = false
	}) {
		return uc.State(), err
	}
	uc.status.Set(ctx, domain.StatusPatch{
		IsUploading:     domain.Bool(false),
		ProcessingCount: domain.Int(0),
		TotalProcessing: domain.Int(0),
	})
	uc.suppress(false)
	return uc.State(), err
}

// apply runs fn under the lock only if gen is still the current generation.
func (uc *UploadUseCase) apply(gen uint64, fn func()) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if gen != uc.generation {
		return false
	}
	fn()
	return true
}

func (uc *UploadUseCase) clearActiveTask(ctx context.Context) {
	if err := uc.session.Delete(ctx, domain.SessionKeyActiveTaskID); err != nil {
		slog.Warn("active_task_clear_failed", "error", err)
	}
}

func (uc *UploadUseCase) suppress(v bool) {
	if uc.gate != nil {
		uc.gate.SuppressTaskPolling(v)
	}
}

// dropRunFilesLocked removes the files of the finished run from the selection.
// Files selected while the run was in flight stay selected.
func (uc *UploadUseCase) dropRunFilesLocked() {
	var kept []domain.FileHandle
	for _, f := range uc.batch.Files() {
		sent := false
		for _, r := range uc.runFiles {
			if r.SameFile(f) {
				sent = true
				break
			}
		}
		if !sent {
			kept = append(kept, f)
		}
	}
	uc.batch.Clear()
	uc.batch.Add(kept...)
	uc.runFiles = nil
}

func (uc *UploadUseCase) skippedLocked(f domain.FileHandle) bool {
	for _, s := range uc.skippedFiles {
		if s.SameFile(f) {
			return true
		}
	}
	return false
}

func (uc *UploadUseCase) stateLocked() domain.UploadState {
	state := domain.UploadState{
		Phase:       uc.phase,
		Files:       uc.batch.Files(),
		Progress:    uc.progress,
		Error:       uc.lastErr,
		SkippedKeys: append([]string(nil), uc.skippedKeys...),
	}
	if uc.task != nil {
		task := *uc.task
		state.Task = &task
	}
	return state
}

func chunkFiles(files []domain.FileHandle, size int) [][]domain.FileHandle {
	var batch domain.UploadBatch
	batch.Add(files...)
	return batch.Chunks(size)
}
