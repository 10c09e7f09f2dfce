package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

type poAPIFake struct {
	remote       []domain.DraftPOItem
	listErr      error
	calls        []string
	qtyCalls     int
	cleared      int
	proceed      *domain.ProceedResult
	history      []domain.PurchaseOrder
	historyLimit int
}

func (f *poAPIFake) ListDraftItems(context.Context) ([]domain.DraftPOItem, error) {
	f.calls = append(f.calls, "list")
	return append([]domain.DraftPOItem(nil), f.remote...), f.listErr
}

func (f *poAPIFake) AddDraftItem(_ context.Context, item domain.DraftPOItem) (*domain.DraftPOItem, error) {
	f.calls = append(f.calls, "add")
	return &item, nil
}

func (f *poAPIFake) QuickAddToDraft(_ context.Context, part string) (*domain.DraftPOItem, error) {
	f.calls = append(f.calls, "quick-add")
	return &domain.DraftPOItem{PartNumber: part, ItemName: "quick", ReorderQty: 4}, nil
}

func (f *poAPIFake) UpdateDraftQuantity(context.Context, string, int) error {
	f.calls = append(f.calls, "qty")
	f.qtyCalls++
	return nil
}

func (f *poAPIFake) RemoveDraftItem(context.Context, string) error {
	f.calls = append(f.calls, "remove")
	return nil
}

func (f *poAPIFake) ClearDraft(context.Context) (int, error) {
	f.calls = append(f.calls, "clear")
	f.cleared++
	return len(f.remote), nil
}

func (f *poAPIFake) ProceedToPO(context.Context, domain.ProceedRequest) (*domain.ProceedResult, error) {
	f.calls = append(f.calls, "proceed")
	if f.proceed == nil {
		return nil, errors.New("no draft")
	}
	return f.proceed, nil
}

func (f *poAPIFake) ListPurchaseOrders(_ context.Context, limit, _ int, _ string) ([]domain.PurchaseOrder, error) {
	f.historyLimit = limit
	return f.history, nil
}

func (f *poAPIFake) DownloadPOPDF(context.Context, string) ([]byte, error) {
	return []byte("%PDF-1.4 again"), nil
}

type pdfInspectorFake struct{ pages int }

func (f pdfInspectorFake) PageCount([]byte) (int, error) { return f.pages, nil }

type exporterFake struct{ items []domain.DraftPOItem }

func (f *exporterFake) ExportDraft(w io.Writer, items []domain.DraftPOItem, _ domain.DraftSummary) error {
	f.items = items
	_, err := w.Write([]byte("xlsx"))
	return err
}

func floatPtr(v float64) *float64 { return &v }

func TestDraftUpdateQuantityRejectsNonPositive(t *testing.T) {
	api := &poAPIFake{}
	uc := NewDraftPOUseCase(api, nil, nil, nil)
	if err := uc.Add(context.Background(), domain.DraftPOItem{PartNumber: "P1", ReorderQty: 3}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	for _, qty := range []int{0, -2} {
		err := uc.UpdateQuantity(context.Background(), "P1", qty)
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("expected invalid input for %d, got %v", qty, err)
		}
	}
	if api.qtyCalls != 0 {
		t.Fatalf("expected no backend call, got %d", api.qtyCalls)
	}
	if got := uc.Items()[0].ReorderQty; got != 3 {
		t.Fatalf("expected quantity unchanged at 3, got %d", got)
	}

	if err := uc.UpdateQuantity(context.Background(), "P1", 7); err != nil {
		t.Fatalf("UpdateQuantity() error = %v", err)
	}
	if got := uc.Items()[0].ReorderQty; got != 7 {
		t.Fatalf("expected quantity 7, got %d", got)
	}
}

func TestDraftMutationsReloadAndBootstrapFromLocal(t *testing.T) {
	api := &poAPIFake{}
	uc := NewDraftPOUseCase(api, nil, nil, nil)

	if err := uc.Add(context.Background(), domain.DraftPOItem{PartNumber: "P1", ReorderQty: 1}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if len(api.calls) != 2 || api.calls[0] != "add" || api.calls[1] != "list" {
		t.Fatalf("expected add then list, got %v", api.calls)
	}
	if len(uc.Items()) != 1 {
		t.Fatalf("empty backend list must keep the local item")
	}

	api.remote = []domain.DraftPOItem{
		{PartNumber: "P2", ReorderQty: 2, UnitValue: floatPtr(10)},
		{PartNumber: "P3", ReorderQty: 1, UnitValue: floatPtr(5)},
	}
	if err := uc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	items := uc.Items()
	if len(items) != 2 {
		t.Fatalf("expected backend list to replace local map, got %d items", len(items))
	}
	if summary := uc.Summary(); summary.TotalItems != 2 || summary.TotalEstimatedCost != 25 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestDraftItemsNewestFirst(t *testing.T) {
	uc := NewDraftPOUseCase(&poAPIFake{}, nil, nil, nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, part := range []string{"old", "mid", "new"} {
		item := domain.DraftPOItem{PartNumber: part, ReorderQty: 1, AddedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := uc.Add(context.Background(), item); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	items := uc.Items()
	if items[0].PartNumber != "new" || items[2].PartNumber != "old" {
		t.Fatalf("unexpected order %v", []string{items[0].PartNumber, items[1].PartNumber, items[2].PartNumber})
	}
}

func TestDraftAddValidatesBeforeNetwork(t *testing.T) {
	api := &poAPIFake{}
	uc := NewDraftPOUseCase(api, nil, nil, nil)
	if err := uc.Add(context.Background(), domain.DraftPOItem{PartNumber: "", ReorderQty: 1}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if err := uc.Add(context.Background(), domain.DraftPOItem{PartNumber: "P", ReorderQty: 0}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(api.calls) != 0 {
		t.Fatalf("expected no backend calls, got %v", api.calls)
	}
}

func TestDraftClearRequiresConfirmation(t *testing.T) {
	api := &poAPIFake{}
	uc := NewDraftPOUseCase(api, nil, nil, nil)
	_ = uc.QuickAdd(context.Background(), "P1")

	if _, err := uc.Clear(context.Background(), func() bool { return false }); !errors.Is(err, domain.ErrClearNotConfirmed) {
		t.Fatalf("expected ErrClearNotConfirmed, got %v", err)
	}
	if api.cleared != 0 || len(uc.Items()) != 1 {
		t.Fatalf("unconfirmed clear must not touch the draft")
	}

	if _, err := uc.Clear(context.Background(), func() bool { return true }); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if api.cleared != 1 || len(uc.Items()) != 0 {
		t.Fatalf("expected cleared draft")
	}
}

func TestDraftProceedArchivesPDF(t *testing.T) {
	api := &poAPIFake{proceed: &domain.ProceedResult{
		PONumber:   "PO-2026/001",
		POID:       "42",
		TotalItems: 1,
		TotalCost:  99.5,
		PDF:        []byte("%PDF-1.4 body"),
	}}
	storage := &objectStorageFake{}
	uc := NewDraftPOUseCase(api, storage, pdfInspectorFake{pages: 2}, nil)
	_ = uc.QuickAdd(context.Background(), "P1")

	conf, err := uc.Proceed(context.Background(), domain.ProceedRequest{SupplierName: "Acme"})
	if err != nil {
		t.Fatalf("Proceed() error = %v", err)
	}
	if conf.PDFKey != "purchase-orders/PO_PO-2026_001.pdf" {
		t.Fatalf("unexpected pdf key %q", conf.PDFKey)
	}
	if conf.PDFPages != 2 || conf.PONumber != "PO-2026/001" {
		t.Fatalf("unexpected confirmation %+v", conf)
	}
	if !bytes.Equal(storage.saved[conf.PDFKey], []byte("%PDF-1.4 body")) {
		t.Fatalf("expected archived pdf")
	}
	if len(uc.Items()) != 0 || api.cleared != 1 {
		t.Fatalf("expected local and backend draft cleared")
	}
}

func TestDraftProceedEmptyDraft(t *testing.T) {
	api := &poAPIFake{}
	uc := NewDraftPOUseCase(api, nil, nil, nil)
	if _, err := uc.Proceed(context.Background(), domain.ProceedRequest{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(api.calls) != 1 || api.calls[0] != "list" {
		t.Fatalf("expected only the draft list lookup, got %v", api.calls)
	}
}

func TestDraftProceedLoadsBackendDraftWhenLocalIsEmpty(t *testing.T) {
	api := &poAPIFake{
		remote:  []domain.DraftPOItem{{PartNumber: "P1", ReorderQty: 2}},
		proceed: &domain.ProceedResult{PONumber: "PO-9", POID: "9", TotalItems: 1},
	}
	uc := NewDraftPOUseCase(api, nil, nil, nil)

	conf, err := uc.Proceed(context.Background(), domain.ProceedRequest{})
	if err != nil {
		t.Fatalf("Proceed() error = %v", err)
	}
	if conf.PONumber != "PO-9" {
		t.Fatalf("unexpected confirmation %+v", conf)
	}
	if len(api.calls) < 2 || api.calls[0] != "list" || api.calls[1] != "proceed" {
		t.Fatalf("expected list then proceed, got %v", api.calls)
	}
}

type failingStorage struct{ objectStorageFake }

func (failingStorage) Save(context.Context, string, io.Reader) error {
	return errors.New("disk full")
}

func TestDraftProceedArchiveFailureStillClearsDraft(t *testing.T) {
	api := &poAPIFake{proceed: &domain.ProceedResult{PONumber: "PO-3", POID: "3", PDF: []byte("%PDF-1.4")}}
	uc := NewDraftPOUseCase(api, &failingStorage{}, nil, nil)
	_ = uc.QuickAdd(context.Background(), "P1")

	conf, err := uc.Proceed(context.Background(), domain.ProceedRequest{})
	if err != nil {
		t.Fatalf("Proceed() error = %v", err)
	}
	if conf.POID != "3" || conf.PDFKey != "" || conf.PDFError == "" {
		t.Fatalf("expected confirmation without archived pdf, got %+v", conf)
	}
	if len(uc.Items()) != 0 || api.cleared != 1 {
		t.Fatalf("expected local and backend draft cleared")
	}

	api.remote = nil
	if _, err := uc.Proceed(context.Background(), domain.ProceedRequest{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected empty draft on retry, got %v", err)
	}
	proceeds := 0
	for _, c := range api.calls {
		if c == "proceed" {
			proceeds++
		}
	}
	if proceeds != 1 {
		t.Fatalf("expected a single purchase order, got %d proceed calls", proceeds)
	}
}

func TestDraftExportAndHistory(t *testing.T) {
	api := &poAPIFake{history: []domain.PurchaseOrder{{PONumber: "PO-1"}}}
	exporter := &exporterFake{}
	uc := NewDraftPOUseCase(api, nil, nil, exporter)
	_ = uc.QuickAdd(context.Background(), "P1")

	var buf bytes.Buffer
	if err := uc.Export(&buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if buf.String() != "xlsx" || len(exporter.items) != 1 {
		t.Fatalf("unexpected export output")
	}

	orders, err := uc.History(context.Background(), 0, -1, "")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(orders) != 1 || api.historyLimit != 50 {
		t.Fatalf("expected default limit 50, got %d", api.historyLimit)
	}
}
