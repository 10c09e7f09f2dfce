package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

// UploadProgressFunc reports bytes sent for the in-flight request.
type UploadProgressFunc func(sent, total int64)

// UploadAPI is the backend upload and processing surface.
type UploadAPI interface {
	UploadFiles(ctx context.Context, files []domain.FileHandle, progress UploadProgressFunc) ([]string, error)
	ProcessInvoices(ctx context.Context, fileKeys []string, forceUpload bool) (string, error)
	GetProcessStatus(ctx context.Context, taskID string) (*domain.ProcessingTask, error)
	GetFileURL(ctx context.Context, fileKey string) (string, error)
}

// ReviewAPI reads the date and amount review record sets.
type ReviewAPI interface {
	GetDateRecords(ctx context.Context) ([]domain.ReviewRecord, error)
	GetAmountRecords(ctx context.Context) ([]domain.ReviewRecord, error)
}

type InvoiceAPI interface {
	GetStats(ctx context.Context) (domain.InvoiceStats, error)
}

// PurchaseOrderAPI is the backend draft and purchase order surface.
type PurchaseOrderAPI interface {
	ListDraftItems(ctx context.Context) ([]domain.DraftPOItem, error)
	AddDraftItem(ctx context.Context, item domain.DraftPOItem) (*domain.DraftPOItem, error)
	QuickAddToDraft(ctx context.Context, partNumber string) (*domain.DraftPOItem, error)
	UpdateDraftQuantity(ctx context.Context, partNumber string, quantity int) error
	RemoveDraftItem(ctx context.Context, partNumber string) error
	ClearDraft(ctx context.Context) (int, error)
	ProceedToPO(ctx context.Context, req domain.ProceedRequest) (*domain.ProceedResult, error)
	ListPurchaseOrders(ctx context.Context, limit, offset int, statusFilter string) ([]domain.PurchaseOrder, error)
	DownloadPOPDF(ctx context.Context, poID string) ([]byte, error)
}

type AuthAPI interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error)
	Me(ctx context.Context) (*domain.User, error)
	Logout(ctx context.Context) error
}

type ConfigAPI interface {
	GetConfig(ctx context.Context) (*domain.UserConfig, error)
}

// SessionStore holds durable client-side values such as the auth token and active task id.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// StatusPublisher fans GlobalStatus changes out to other processes.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, status domain.GlobalStatus) error
}

// ObjectStorage stores purchase order PDFs and spooled upload files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type PDFInspector interface {
	PageCount(data []byte) (int, error)
}

type DraftExporter interface {
	ExportDraft(w io.Writer, items []domain.DraftPOItem, summary domain.DraftSummary) error
}

// WorkflowObserver receives workflow events for metrics.
type WorkflowObserver interface {
	PollerTick(timer, result string)
	UploadBatch(files int, duration time.Duration, err error)
	TaskFinished(status domain.TaskStatus)
	StatusChanged(status domain.GlobalStatus)
}
