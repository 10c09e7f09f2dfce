package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
	"github.com/kirillkom/invoice-hub-agent/internal/core/ports"
)

// FinalizeResult is handed to the finalize hook once every duplicate has a decision.
type FinalizeResult struct {
	// Owner is the tag given to Begin, so the hook can ignore a sequence it no longer owns.
	Owner   uint64
	Skipped []string
	Forced  []string
	Task    *domain.ProcessingTask
	Err     error
}

// DuplicateSequencer presents duplicates one at a time and collects skip/force decisions.
type DuplicateSequencer struct {
	api     ports.UploadAPI
	watcher *TaskWatcher

	mu         sync.Mutex
	queue      []domain.DuplicateCandidate
	index      int
	skipped    []string
	forced     []string
	owner      uint64
	epoch      uint64
	active     bool
	finalizing bool
	finalized  bool
	onFinalize func(context.Context, FinalizeResult)
}

func NewDuplicateSequencer(api ports.UploadAPI, watcher *TaskWatcher) *DuplicateSequencer {
	return &DuplicateSequencer{api: api, watcher: watcher}
}

// OnFinalize registers the hook run after the last decision, exactly once per sequence.
func (s *DuplicateSequencer) OnFinalize(fn func(context.Context, FinalizeResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFinalize = fn
}

// Begin starts a new sequence over queue, replacing any previous one. owner is
// passed back to the finalize hook unchanged.
func (s *DuplicateSequencer) Begin(owner uint64, queue []domain.DuplicateCandidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner
	s.epoch++
	s.queue = append([]domain.DuplicateCandidate(nil), queue...)
	s.index = 0
	s.skipped = nil
	s.forced = nil
	s.active = len(queue) > 0
	s.finalized = false
}

func (s *DuplicateSequencer) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Busy reports whether decisions are pending or the forced files of the last
// decision are still being processed.
func (s *DuplicateSequencer) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active || s.finalizing
}

// Reset drops the sequence without finalizing it.
func (s *DuplicateSequencer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
	s.index = 0
	s.skipped = nil
	s.forced = nil
	s.epoch++
	s.active = false
	s.finalizing = false
	s.finalized = false
}

func (s *DuplicateSequencer) Current() (domain.DuplicatePrompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return s.promptLocked(), s.inactiveErrLocked()
	}
	return s.promptLocked(), nil
}

func (s *DuplicateSequencer) Skip(ctx context.Context) (domain.DuplicatePrompt, error) {
	return s.decide(ctx, false)
}

func (s *DuplicateSequencer) UploadAnyway(ctx context.Context) (domain.DuplicatePrompt, error) {
	return s.decide(ctx, true)
}

// ViewExisting never advances the sequence.
func (s *DuplicateSequencer) ViewExisting(ctx context.Context) (domain.DuplicateView, error) {
	s.mu.Lock()
	if !s.active {
		err := s.inactiveErrLocked()
		s.mu.Unlock()
		return domain.DuplicateView{}, err
	}
	candidate := s.queue[s.index]
	s.mu.Unlock()

	view := domain.DuplicateView{Candidate: candidate}
	if candidate.FileKey == "" {
		return view, nil
	}
	url, err := s.api.GetFileURL(ctx, candidate.FileKey)
	if err != nil {
		return view, fmt.Errorf("resolve file url: %w", err)
	}
	view.FileURL = url
	return view, nil
}

func (s *DuplicateSequencer) decide(ctx context.Context, force bool) (domain.DuplicatePrompt, error) {
	s.mu.Lock()
	if !s.active {
		err := s.inactiveErrLocked()
		prompt := s.promptLocked()
		s.mu.Unlock()
		return prompt, err
	}

	key := s.queue[s.index].FileKey
	if force {
		s.forced = append(s.forced, key)
	} else {
		s.skipped = append(s.skipped, key)
	}
	s.index++

	last := s.index >= len(s.queue)
	if last {
		s.active = false
		s.finalizing = true
		s.finalized = true
	}
	prompt := s.promptLocked()
	skipped := append([]string(nil), s.skipped...)
	forced := append([]string(nil), s.forced...)
	hook := s.onFinalize
	owner, epoch := s.owner, s.epoch
	s.mu.Unlock()

	if last {
		result := s.finalize(ctx, skipped, forced)
		result.Owner = owner
		if hook != nil {
			hook(ctx, result)
		}
		s.mu.Lock()
		if s.epoch == epoch {
			s.finalizing = false
		}
		s.mu.Unlock()
		if result.Err != nil {
			return prompt, result.Err
		}
	}
	return prompt, nil
}

func (s *DuplicateSequencer) finalize(ctx context.Context, skipped, forced []string) FinalizeResult {
	result := FinalizeResult{Skipped: skipped, Forced: forced}
	if len(forced) == 0 {
		return result
	}

	taskID, err := s.api.ProcessInvoices(ctx, forced, true)
	if err != nil {
		result.Err = fmt.Errorf("process forced duplicates: %w", err)
		return result
	}
	task, err := s.watcher.Watch(ctx, taskID, nil)
	if err != nil {
		result.Err = fmt.Errorf("wait forced duplicates: %w", err)
		return result
	}
	result.Task = task
	return result
}

func (s *DuplicateSequencer) inactiveErrLocked() error {
	if s.finalized {
		return domain.ErrSequenceFinished
	}
	return domain.ErrNoPendingDuplicates
}

func (s *DuplicateSequencer) promptLocked() domain.DuplicatePrompt {
	prompt := domain.DuplicatePrompt{
		Index:     s.index,
		Total:     len(s.queue),
		Finalized: s.finalized,
		Skipped:   append([]string(nil), s.skipped...),
		Forced:    append([]string(nil), s.forced...),
	}
	if s.active && s.index < len(s.queue) {
		candidate := s.queue[s.index]
		prompt.Candidate = &candidate
	}
	return prompt
}
