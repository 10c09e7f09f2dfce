package httpadapter

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/kirillkom/invoice-hub-agent/internal/config"
	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

type uploadsFake struct {
	mu        sync.Mutex
	files     []domain.FileHandle
	started   chan bool
	startErr  error
	removeErr error
}

func (f *uploadsFake) AddFiles(files ...domain.FileHandle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	dropped := 0
	for _, file := range files {
		dup := false
		for _, existing := range f.files {
			if existing.SameFile(file) {
				dup = true
			}
		}
		if dup {
			dropped++
			continue
		}
		f.files = append(f.files, file)
	}
	return dropped
}

func (f *uploadsFake) RemoveFile(int) error { return f.removeErr }

func (f *uploadsFake) Upload(context.Context, bool) (domain.UploadState, error) {
	return domain.UploadState{Phase: domain.PhaseCompleted, Progress: 100}, f.startErr
}

func (f *uploadsFake) StartUpload(_ context.Context, force bool) (domain.UploadState, error) {
	if f.startErr != nil {
		return domain.UploadState{Phase: domain.PhaseUploading}, f.startErr
	}
	if f.started != nil {
		f.started <- force
	}
	return domain.UploadState{Phase: domain.PhaseUploading}, nil
}

func (f *uploadsFake) Resume(context.Context) (domain.UploadState, error) {
	return domain.UploadState{Phase: domain.PhaseProcessing}, nil
}

func (f *uploadsFake) State() domain.UploadState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.UploadState{Phase: domain.PhaseIdle, Files: append([]domain.FileHandle(nil), f.files...)}
}

type duplicatesFake struct {
	prompt  domain.DuplicatePrompt
	err     error
	skips   int
	forced  int
	ctxErrs []error
}

func (f *duplicatesFake) Current() (domain.DuplicatePrompt, error) { return f.prompt, f.err }

func (f *duplicatesFake) Skip(ctx context.Context) (domain.DuplicatePrompt, error) {
	f.skips++
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.prompt, f.err
}

func (f *duplicatesFake) UploadAnyway(ctx context.Context) (domain.DuplicatePrompt, error) {
	f.forced++
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.prompt, f.err
}

func (f *duplicatesFake) ViewExisting(context.Context) (domain.DuplicateView, error) {
	return domain.DuplicateView{}, f.err
}

type draftsFake struct {
	items     []domain.DraftPOItem
	qtyCalls  []int
	cleared   bool
	exportErr error
	err       error
}

func (f *draftsFake) Load(context.Context) error             { return f.err }
func (f *draftsFake) Items() []domain.DraftPOItem            { return f.items }
func (f *draftsFake) Summary() domain.DraftSummary           { return domain.SummarizeDraft(f.items) }
func (f *draftsFake) QuickAdd(context.Context, string) error { return f.err }
func (f *draftsFake) Remove(context.Context, string) error   { return f.err }

func (f *draftsFake) Add(_ context.Context, item domain.DraftPOItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	f.items = append(f.items, item)
	return nil
}

func (f *draftsFake) UpdateQuantity(_ context.Context, _ string, quantity int) error {
	if quantity <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "update quantity", io.ErrUnexpectedEOF)
	}
	f.qtyCalls = append(f.qtyCalls, quantity)
	return f.err
}

func (f *draftsFake) Clear(_ context.Context, confirm func() bool) (int, error) {
	if !confirm() {
		return 0, domain.ErrClearNotConfirmed
	}
	f.cleared = true
	return len(f.items), nil
}

func (f *draftsFake) Proceed(context.Context, domain.ProceedRequest) (*domain.PurchaseOrderConfirmation, error) {
	return &domain.PurchaseOrderConfirmation{PONumber: "PO-7"}, f.err
}

func (f *draftsFake) DownloadPDF(context.Context, string) (string, error) { return "po/PO_7.pdf", f.err }

func (f *draftsFake) Export(w io.Writer) error {
	if f.exportErr != nil {
		return f.exportErr
	}
	_, err := w.Write([]byte("PK"))
	return err
}

func (f *draftsFake) History(context.Context, int, int, string) ([]domain.PurchaseOrder, error) {
	return nil, f.err
}

type statusFake struct{ status domain.GlobalStatus }

func (f statusFake) Snapshot() domain.GlobalStatus { return f.status }

type sessionFake struct {
	loggedIn bool
	logouts  int
}

func (f *sessionFake) Login(_ context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
	if creds.Password != "secret" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "login", io.EOF)
	}
	f.loggedIn = true
	return &domain.LoginResult{AccessToken: "access-xyz", TokenType: "bearer", User: domain.User{Username: creds.Username}}, nil
}

func (f *sessionFake) Logout(context.Context) {
	f.logouts++
	f.loggedIn = false
}

func (f *sessionFake) LoggedIn(context.Context) bool { return f.loggedIn }

func (f *sessionFake) Me(context.Context) (*domain.User, error) {
	return &domain.User{Username: "alice"}, nil
}

type reviewFake struct{}

func (reviewFake) Records(_ context.Context, kind string) ([]map[string]any, error) {
	if kind != "dates" && kind != "amounts" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "review records", io.EOF)
	}
	return []map[string]any{{"Receipt Number": "R1"}}, nil
}

type userConfigFake struct{}

func (userConfigFake) Get(context.Context) (*domain.UserConfig, error) {
	return &domain.UserConfig{Username: "alice", Industry: "automobile"}, nil
}

type spoolFake struct{ dir string }

func (s spoolFake) Spool(_ context.Context, name string, data io.Reader) (string, int64, error) {
	n, err := io.Copy(io.Discard, data)
	return s.dir + "/" + name, n, err
}

type testDeps struct {
	uploads    *uploadsFake
	duplicates *duplicatesFake
	drafts     *draftsFake
	session    *sessionFake
}

func newTestRouter(cfg config.Config) (http.Handler, testDeps) {
	td := testDeps{
		uploads:    &uploadsFake{},
		duplicates: &duplicatesFake{},
		drafts:     &draftsFake{},
		session:    &sessionFake{},
	}
	handler := NewRouter(cfg, Deps{
		Uploads:    td.uploads,
		Duplicates: td.duplicates,
		Drafts:     td.drafts,
		Status:     statusFake{status: domain.GlobalStatus{ReviewCount: 4, SyncCount: 2}},
		Session:    td.session,
		Review:     reviewFake{},
		UserConfig: userConfigFake{},
		Spool:      spoolFake{dir: "/spool"},
	}).Handler()
	return handler, td
}

func newTestHandler(cfg config.Config) http.Handler {
	handler, _ := newTestRouter(cfg)
	return handler
}

func jsonBody(s string) io.Reader { return strings.NewReader(s) }
