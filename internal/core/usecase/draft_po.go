package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
	"github.com/kirillkom/invoice-hub-agent/internal/core/ports"
)

const defaultHistoryLimit = 50

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DraftPOUseCase keeps the local draft map convergent with the backend draft store.
type DraftPOUseCase struct {
	api      ports.PurchaseOrderAPI
	storage  ports.ObjectStorage
	pdf      ports.PDFInspector
	exporter ports.DraftExporter
	now      func() time.Time

	mu    sync.Mutex
	items map[string]domain.DraftPOItem
}

func NewDraftPOUseCase(
	api ports.PurchaseOrderAPI,
	storage ports.ObjectStorage,
	pdf ports.PDFInspector,
	exporter ports.DraftExporter,
) *DraftPOUseCase {
	return &DraftPOUseCase{
		api:      api,
		storage:  storage,
		pdf:      pdf,
		exporter: exporter,
		now:      time.Now,
		items:    make(map[string]domain.DraftPOItem),
	}
}

// Load reconciles with the backend list. An empty backend list leaves the local map as is.
func (uc *DraftPOUseCase) Load(ctx context.Context) error {
	remote, err := uc.api.ListDraftItems(ctx)
	if err != nil {
		return fmt.Errorf("list draft items: %w", err)
	}
	if len(remote) == 0 {
		return nil
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	next := make(map[string]domain.DraftPOItem, len(remote))
	for _, item := range remote {
		if item.AddedAt.IsZero() {
			if local, ok := uc.items[item.PartNumber]; ok {
				item.AddedAt = local.AddedAt
			} else {
				item.AddedAt = uc.now()
			}
		}
		next[item.PartNumber] = item
	}
	uc.items = next
	return nil
}

// Items lists the draft newest first.
func (uc *DraftPOUseCase) Items() []domain.DraftPOItem {
	uc.mu.Lock()
	out := make([]domain.DraftPOItem, 0, len(uc.items))
	for _, item := range uc.items {
		out = append(out, item)
	}
	uc.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.After(out[j].AddedAt)
		}
		return out[i].PartNumber < out[j].PartNumber
	})
	return out
}

func (uc *DraftPOUseCase) Summary() domain.DraftSummary {
	return domain.SummarizeDraft(uc.Items())
}

func (uc *DraftPOUseCase) Add(ctx context.Context, item domain.DraftPOItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = uc.now()
	}

	saved, err := uc.api.AddDraftItem(ctx, item)
	if err != nil {
		return fmt.Errorf("add draft item %s: %w", item.PartNumber, err)
	}
	if saved != nil && saved.PartNumber != "" {
		if saved.AddedAt.IsZero() {
			saved.AddedAt = item.AddedAt
		}
		item = *saved
	}
	uc.put(item)
	uc.reload(ctx)
	return nil
}

// QuickAdd adds a stock item to the draft by part number, using backend reorder defaults.
func (uc *DraftPOUseCase) QuickAdd(ctx context.Context, partNumber string) error {
	if partNumber == "" {
		return domain.WrapError(domain.ErrInvalidInput, "quick add", errors.New("part number is required"))
	}
	saved, err := uc.api.QuickAddToDraft(ctx, partNumber)
	if err != nil {
		return fmt.Errorf("quick add %s: %w", partNumber, err)
	}
	if saved != nil && saved.PartNumber != "" {
		if saved.AddedAt.IsZero() {
			saved.AddedAt = uc.now()
		}
		uc.put(*saved)
	}
	uc.reload(ctx)
	return nil
}

// UpdateQuantity rejects quantities below 1 without touching the backend or the stored item.
func (uc *DraftPOUseCase) UpdateQuantity(ctx context.Context, partNumber string, quantity int) error {
	if quantity <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "update quantity", fmt.Errorf("quantity %d must be at least 1", quantity))
	}
	if err := uc.api.UpdateDraftQuantity(ctx, partNumber, quantity); err != nil {
		return fmt.Errorf("update quantity %s: %w", partNumber, err)
	}

	uc.mu.Lock()
	if item, ok := uc.items[partNumber]; ok {
		item.ReorderQty = quantity
		uc.items[partNumber] = item
	}
	uc.mu.Unlock()

	uc.reload(ctx)
	return nil
}

func (uc *DraftPOUseCase) Remove(ctx context.Context, partNumber string) error {
	if err := uc.api.RemoveDraftItem(ctx, partNumber); err != nil {
		return fmt.Errorf("remove draft item %s: %w", partNumber, err)
	}

	uc.mu.Lock()
	delete(uc.items, partNumber)
	uc.mu.Unlock()

	uc.reload(ctx)
	return nil
}

// Clear empties the draft only after confirm returns true.
func (uc *DraftPOUseCase) Clear(ctx context.Context, confirm func() bool) (int, error) {
	if confirm == nil || !confirm() {
		return 0, domain.ErrClearNotConfirmed
	}
	deleted, err := uc.api.ClearDraft(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear draft: %w", err)
	}
	uc.Reset()
	return deleted, nil
}

// Proceed turns the draft into a purchase order and archives the returned PDF.
// The backend list is consulted when nothing is held locally. Once the backend
// has created the order the draft is always cleared; an archive failure only
// leaves PDFKey empty so the PDF can be fetched again by id.
func (uc *DraftPOUseCase) Proceed(ctx context.Context, req domain.ProceedRequest) (*domain.PurchaseOrderConfirmation, error) {
	if uc.localCount() == 0 {
		if err := uc.Load(ctx); err != nil {
			return nil, fmt.Errorf("proceed to po: %w", err)
		}
	}
	if uc.localCount() == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "proceed to po", errors.New("draft is empty"))
	}

	result, err := uc.api.ProceedToPO(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("proceed to po: %w", err)
	}

	confirmation := &domain.PurchaseOrderConfirmation{
		PONumber:   result.PONumber,
		POID:       result.POID,
		TotalItems: result.TotalItems,
		TotalCost:  result.TotalCost,
	}
	uc.Reset()
	if _, err := uc.api.ClearDraft(ctx); err != nil {
		slog.Warn("draft_clear_after_proceed_failed", "po_number", result.PONumber, "error", err)
	}

	if len(result.PDF) > 0 {
		key, pages, err := uc.archivePDF(ctx, "PO_"+result.PONumber, result.PDF)
		if err != nil {
			slog.Warn("po_pdf_archive_failed", "po_number", result.PONumber, "po_id", result.POID, "error", err)
			confirmation.PDFError = err.Error()
		} else {
			confirmation.PDFKey = key
			confirmation.PDFPages = pages
		}
	}

	slog.Info("purchase_order_created", "po_number", result.PONumber, "po_id", result.POID, "items", result.TotalItems)
	return confirmation, nil
}

func (uc *DraftPOUseCase) localCount() int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return len(uc.items)
}

// DownloadPDF fetches a stored purchase order PDF again and archives it locally.
func (uc *DraftPOUseCase) DownloadPDF(ctx context.Context, poID string) (string, error) {
	if poID == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "download po pdf", errors.New("po id is required"))
	}
	data, err := uc.api.DownloadPOPDF(ctx, poID)
	if err != nil {
		return "", fmt.Errorf("download po pdf %s: %w", poID, err)
	}
	key, _, err := uc.archivePDF(ctx, "PurchaseOrder_"+poID, data)
	return key, err
}

func (uc *DraftPOUseCase) Export(w io.Writer) error {
	if uc.exporter == nil {
		return errors.New("draft exporter is not configured")
	}
	items := uc.Items()
	return uc.exporter.ExportDraft(w, items, domain.SummarizeDraft(items))
}

func (uc *DraftPOUseCase) History(ctx context.Context, limit, offset int, statusFilter string) ([]domain.PurchaseOrder, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	orders, err := uc.api.ListPurchaseOrders(ctx, limit, offset, statusFilter)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	return orders, nil
}

// Reset drops the local draft, used on logout and after the draft is consumed.
func (uc *DraftPOUseCase) Reset() {
	uc.mu.Lock()
	uc.items = make(map[string]domain.DraftPOItem)
	uc.mu.Unlock()
}

func (uc *DraftPOUseCase) archivePDF(ctx context.Context, name string, data []byte) (string, int, error) {
	pages := 0
	if uc.pdf != nil {
		n, err := uc.pdf.PageCount(data)
		if err != nil {
			slog.Warn("po_pdf_inspect_failed", "name", name, "error", err)
		} else {
			pages = n
		}
	}

	key := "purchase-orders/" + unsafeKeyChars.ReplaceAllString(name, "_") + ".pdf"
	if uc.storage != nil {
		if err := uc.storage.Save(ctx, key, bytes.NewReader(data)); err != nil {
			return "", 0, fmt.Errorf("save po pdf: %w", err)
		}
	}
	return key, pages, nil
}

func (uc *DraftPOUseCase) put(item domain.DraftPOItem) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if existing, ok := uc.items[item.PartNumber]; ok && !existing.AddedAt.IsZero() {
		item.AddedAt = existing.AddedAt
	}
	uc.items[item.PartNumber] = item
}

func (uc *DraftPOUseCase) reload(ctx context.Context) {
	if err := uc.Load(ctx); err != nil {
		slog.Warn("draft_reload_failed", "error", err)
	}
}
