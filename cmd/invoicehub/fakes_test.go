package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/invoice-hub-agent/internal/bootstrap"
	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
	"github.com/kirillkom/invoice-hub-agent/internal/core/ports"
	"github.com/kirillkom/invoice-hub-agent/internal/core/usecase"
)

// backendFake serves the upload and purchase order endpoints from memory.
type backendFake struct {
	mu           sync.Mutex
	calls        []string
	draft        []domain.DraftPOItem
	proceed      domain.ProceedResult
	statuses     map[string]domain.ProcessingTask
	processCalls []processCall
}

type processCall struct {
	keys  []string
	force bool
}

func newBackendFake() *backendFake {
	return &backendFake{statuses: make(map[string]domain.ProcessingTask)}
}

func (f *backendFake) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *backendFake) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *backendFake) UploadFiles(_ context.Context, files []domain.FileHandle, progress ports.UploadProgressFunc) ([]string, error) {
	f.record("upload")
	keys := make([]string, 0, len(files))
	for _, file := range files {
		keys = append(keys, "key-"+file.Name)
	}
	progress(1, 1)
	return keys, nil
}

func (f *backendFake) ProcessInvoices(_ context.Context, keys []string, force bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processCalls = append(f.processCalls, processCall{keys: append([]string(nil), keys...), force: force})
	return fmt.Sprintf("task-%d", len(f.processCalls)), nil
}

func (f *backendFake) GetProcessStatus(_ context.Context, taskID string) (*domain.ProcessingTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.statuses[taskID]
	if !ok {
		return nil, domain.WrapError(domain.ErrTaskGone, "get process status", errors.New("unknown task"))
	}
	task.TaskID = taskID
	return &task, nil
}

func (f *backendFake) GetFileURL(_ context.Context, key string) (string, error) {
	f.record("file_url")
	return "https://files.local/" + key, nil
}

func (f *backendFake) ListDraftItems(context.Context) ([]domain.DraftPOItem, error) {
	f.record("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.DraftPOItem(nil), f.draft...), nil
}

func (f *backendFake) AddDraftItem(_ context.Context, item domain.DraftPOItem) (*domain.DraftPOItem, error) {
	f.record("add")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = append(f.draft, item)
	return &item, nil
}

func (f *backendFake) QuickAddToDraft(_ context.Context, partNumber string) (*domain.DraftPOItem, error) {
	return f.AddDraftItem(context.Background(), domain.DraftPOItem{PartNumber: partNumber, ItemName: partNumber, ReorderQty: 1})
}

func (f *backendFake) UpdateDraftQuantity(_ context.Context, partNumber string, quantity int) error {
	f.record("qty")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.draft {
		if f.draft[i].PartNumber == partNumber {
			f.draft[i].ReorderQty = quantity
			return nil
		}
	}
	return domain.WrapError(domain.ErrNotFound, "update draft quantity", errors.New(partNumber))
}

func (f *backendFake) RemoveDraftItem(_ context.Context, partNumber string) error {
	f.record("rm")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.draft {
		if f.draft[i].PartNumber == partNumber {
			f.draft = append(f.draft[:i], f.draft[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *backendFake) ClearDraft(context.Context) (int, error) {
	f.record("clear")
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.draft)
	f.draft = nil
	return n, nil
}

func (f *backendFake) ProceedToPO(context.Context, domain.ProceedRequest) (*domain.ProceedResult, error) {
	f.record("proceed")
	f.mu.Lock()
	defer f.mu.Unlock()
	result := f.proceed
	return &result, nil
}

func (f *backendFake) ListPurchaseOrders(context.Context, int, int, string) ([]domain.PurchaseOrder, error) {
	f.record("history")
	return nil, nil
}

func (f *backendFake) DownloadPOPDF(context.Context, string) ([]byte, error) {
	f.record("pdf")
	return []byte("%PDF-1.4"), nil
}

type sessionStoreFake struct {
	mu     sync.Mutex
	values map[string]string
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
	if f.values == nil {
		f.values = make(map[string]string)
	}
	f.values[key] = value
	return nil
}

func (f *sessionStoreFake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

type objectsFake struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func (f *objectsFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[key] = raw
	return nil
}

func (f *objectsFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.saved[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "open object", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type onePageInspector struct{}

func (onePageInspector) PageCount([]byte) (int, error) { return 1, nil }

// newFakeCLI wires the real use cases over backendFake, answering prompts from input.
func newFakeCLI(api *backendFake, input string) (*cli, *bytes.Buffer, *objectsFake) {
	objects := &objectsFake{}
	status := usecase.NewStatusStore(nil, nil)
	caches := usecase.NewCacheRegistry()
	watcher := usecase.NewTaskWatcher(api, time.Millisecond)
	sequencer := usecase.NewDuplicateSequencer(api, watcher)
	app := &bootstrap.App{
		Objects:    objects,
		Status:     status,
		Caches:     caches,
		Duplicates: sequencer,
		Uploads:    usecase.NewUploadUseCase(api, &sessionStoreFake{}, status, caches, watcher, sequencer, nil, nil),
		Drafts:     usecase.NewDraftPOUseCase(api, objects, onePageInspector{}, nil),
	}
	out := &bytes.Buffer{}
	return &cli{app: app, out: out, in: bufio.NewReader(strings.NewReader(input))}, out, objects
}
