package ports

import (
	"context"
	"io"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

// UploadWorkflow is the inbound contract for file selection, upload and processing.
type UploadWorkflow interface {
	AddFiles(files ...domain.FileHandle) int
	RemoveFile(index int) error
	Upload(ctx context.Context, forceUpload bool) (domain.UploadState, error)
	StartUpload(ctx context.Context, forceUpload bool) (domain.UploadState, error)
	Resume(ctx context.Context) (domain.UploadState, error)
	State() domain.UploadState
}

// DuplicateResolver walks the user through detected duplicates one at a time.
type DuplicateResolver interface {
	Current() (domain.DuplicatePrompt, error)
	Skip(ctx context.Context) (domain.DuplicatePrompt, error)
	UploadAnyway(ctx context.Context) (domain.DuplicatePrompt, error)
	ViewExisting(ctx context.Context) (domain.DuplicateView, error)
}

// DraftPurchaseOrders is the inbound contract for the draft purchase order.
type DraftPurchaseOrders interface {
	Load(ctx context.Context) error
	Items() []domain.DraftPOItem
	Summary() domain.DraftSummary
	Add(ctx context.Context, item domain.DraftPOItem) error
	QuickAdd(ctx context.Context, partNumber string) error
	UpdateQuantity(ctx context.Context, partNumber string, quantity int) error
	Remove(ctx context.Context, partNumber string) error
	Clear(ctx context.Context, confirm func() bool) (int, error)
	Proceed(ctx context.Context, req domain.ProceedRequest) (*domain.PurchaseOrderConfirmation, error)
	DownloadPDF(ctx context.Context, poID string) (string, error)
	Export(w io.Writer) error
	History(ctx context.Context, limit, offset int, statusFilter string) ([]domain.PurchaseOrder, error)
}

// StatusReader exposes the GlobalStatus snapshot.
type StatusReader interface {
	Snapshot() domain.GlobalStatus
}

type SessionManager interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error)
	Logout(ctx context.Context)
	LoggedIn(ctx context.Context) bool
	Me(ctx context.Context) (*domain.User, error)
}

// ReviewRecords lists review rows for "dates" or "amounts".
type ReviewRecords interface {
	Records(ctx context.Context, kind string) ([]map[string]any, error)
}

type UserConfigReader interface {
	Get(ctx context.Context) (*domain.UserConfig, error)
}
