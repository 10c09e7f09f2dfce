package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
	"github.com/kirillkom/invoice-hub-agent/internal/core/ports"
)

type processCall struct {
	keys  []string
	force bool
}

type uploadAPIFake struct {
	mu           sync.Mutex
	batches      [][]domain.FileHandle
	uploadErr    error
	processCalls []processCall
	processErr   error
	statuses     map[string][]domain.ProcessingTask
	statusErr    map[string]error
	fileURL      string
	urlCalls     int
	onBatch      func(index int)
	onProgress   func()
	onStatus     func(taskID string)
}

func newUploadAPIFake() *uploadAPIFake {
	return &uploadAPIFake{
		statuses:  make(map[string][]domain.ProcessingTask),
		statusErr: make(map[string]error),
	}
}

func (f *uploadAPIFake) UploadFiles(_ context.Context, files []domain.FileHandle, progress ports.UploadProgressFunc) ([]string, error) {
	f.mu.Lock()
	index := len(f.batches)
	f.batches = append(f.batches, files)
	err := f.uploadErr
	onBatch, onProgress := f.onBatch, f.onProgress
	f.mu.Unlock()

	if onBatch != nil {
		onBatch(index)
	}
	if err != nil {
		return nil, err
	}
	for _, sent := range []int64{50, 100} {
		progress(sent, 100)
		if onProgress != nil {
			onProgress()
		}
	}
	keys := make([]string, 0, len(files))
	for _, file := range files {
		keys = append(keys, "key-"+file.Name)
	}
	return keys, nil
}

func (f *uploadAPIFake) ProcessInvoices(_ context.Context, keys []string, force bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.processErr != nil {
		return "", f.processErr
	}
	f.processCalls = append(f.processCalls, processCall{keys: append([]string(nil), keys...), force: force})
	return fmt.Sprintf("task-%d", len(f.processCalls)), nil
}

// GetProcessStatus pops the queued status for the task; the last one repeats.
func (f *uploadAPIFake) GetProcessStatus(_ context.Context, taskID string) (*domain.ProcessingTask, error) {
	f.mu.Lock()
	onStatus := f.onStatus
	f.mu.Unlock()
	if onStatus != nil {
		onStatus(taskID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.statusErr[taskID]; err != nil {
		return nil, err
	}
	queue := f.statuses[taskID]
	if len(queue) == 0 {
		return nil, domain.WrapError(domain.ErrTaskGone, "get process status", errors.New("unknown task"))
	}
	task := queue[0]
	if len(queue) > 1 {
		f.statuses[taskID] = queue[1:]
	}
	task.TaskID = taskID
	return &task, nil
}

func (f *uploadAPIFake) GetFileURL(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urlCalls++
	return f.fileURL + key, nil
}

func (f *uploadAPIFake) processCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.processCalls)
}

type sessionStoreFake struct {
	mu     sync.Mutex
	values map[string]string
}

func newSessionStoreFake() *sessionStoreFake {
	return &sessionStoreFake{values: make(map[string]string)}
}

func (f *sessionStoreFake) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *sessionStoreFake) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *sessionStoreFake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

func (f *sessionStoreFake) has(key string) bool {
	_, ok, _ := f.Get(context.Background(), key)
	return ok
}

type gateFake struct {
	mu    sync.Mutex
	calls []bool
}

func (f *gateFake) SuppressTaskPolling(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, v)
}

func (f *gateFake) last() (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return false, false
	}
	return f.calls[len(f.calls)-1], true
}

type reviewAPIFake struct {
	dates   []domain.ReviewRecord
	amounts []domain.ReviewRecord
	err     error
}

func (f *reviewAPIFake) GetDateRecords(context.Context) ([]domain.ReviewRecord, error) {
	return f.dates, f.err
}

func (f *reviewAPIFake) GetAmountRecords(context.Context) ([]domain.ReviewRecord, error) {
	return f.amounts, f.err
}

type invoiceAPIFake struct {
	stats domain.InvoiceStats
	calls int
}

func (f *invoiceAPIFake) GetStats(context.Context) (domain.InvoiceStats, error) {
	f.calls++
	return f.stats, nil
}

type objectStorageFake struct {
	saved map[string][]byte
}

func (f *objectStorageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[key] = raw
	return nil
}

func (f *objectStorageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.saved[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}
