package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

// draftItemPayload keeps timestamps as strings: the backend emits naive ISO times.
type draftItemPayload struct {
	PartNumber   string   `json:"part_number"`
	ItemName     string   `json:"item_name"`
	CurrentStock float64  `json:"current_stock"`
	ReorderPoint float64  `json:"reorder_point"`
	ReorderQty   int      `json:"reorder_qty"`
	UnitValue    *float64 `json:"unit_value,omitempty"`
	Priority     string   `json:"priority,omitempty"`
	SupplierName string   `json:"supplier_name,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	AddedAt      string   `json:"added_at,omitempty"`
}

func (p draftItemPayload) toDomain() domain.DraftPOItem {
	return domain.DraftPOItem{
		PartNumber:   p.PartNumber,
		ItemName:     p.ItemName,
		CurrentStock: p.CurrentStock,
		ReorderPoint: p.ReorderPoint,
		ReorderQty:   p.ReorderQty,
		UnitValue:    p.UnitValue,
		Priority:     p.Priority,
		SupplierName: p.SupplierName,
		Notes:        p.Notes,
		AddedAt:      parseTimestamp(p.AddedAt),
	}
}

func draftPayload(item domain.DraftPOItem) draftItemPayload {
	return draftItemPayload{
		PartNumber:   item.PartNumber,
		ItemName:     item.ItemName,
		CurrentStock: item.CurrentStock,
		ReorderPoint: item.ReorderPoint,
		ReorderQty:   item.ReorderQty,
		UnitValue:    item.UnitValue,
		Priority:     item.Priority,
		SupplierName: item.SupplierName,
		Notes:        item.Notes,
	}
}

type purchaseOrderPayload struct {
	ID                 string  `json:"id"`
	PONumber           string  `json:"po_number"`
	PODate             string  `json:"po_date"`
	SupplierName       string  `json:"supplier_name"`
	TotalItems         int     `json:"total_items"`
	TotalEstimatedCost float64 `json:"total_estimated_cost"`
	Status             string  `json:"status"`
	Notes              string  `json:"notes"`
	CreatedAt          string  `json:"created_at"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

// parseTimestamp returns the zero time for empty or unrecognized values.
func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (c *Client) ListDraftItems(ctx context.Context) ([]domain.DraftPOItem, error) {
	var out struct {
		Items []draftItemPayload `json:"items"`
	}
	if err := c.getJSON(ctx, "/api/purchase-orders/draft/items", nil, &out, "draft_items"); err != nil {
		return nil, err
	}
	items := make([]domain.DraftPOItem, 0, len(out.Items))
	for _, item := range out.Items {
		items = append(items, item.toDomain())
	}
	return items, nil
}

type itemResponse struct {
	Item *draftItemPayload `json:"item"`
}

func (r itemResponse) item(fallback domain.DraftPOItem) *domain.DraftPOItem {
	if r.Item == nil {
		return &fallback
	}
	item := r.Item.toDomain()
	return &item
}

func (c *Client) AddDraftItem(ctx context.Context, item domain.DraftPOItem) (*domain.DraftPOItem, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	var out itemResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/api/purchase-orders/draft/items", draftPayload(item), &out, "draft_add"); err != nil {
		return nil, err
	}
	return out.item(item), nil
}

func (c *Client) QuickAddToDraft(ctx context.Context, partNumber string) (*domain.DraftPOItem, error) {
	segment, err := partSegment(partNumber)
	if err != nil {
		return nil, err
	}
	var out itemResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/api/purchase-orders/quick-add/"+segment, nil, &out, "draft_quick_add"); err != nil {
		return nil, err
	}
	return out.item(domain.DraftPOItem{PartNumber: partNumber}), nil
}

func (c *Client) UpdateDraftQuantity(ctx context.Context, partNumber string, quantity int) error {
	if quantity < 1 {
		return domain.WrapError(domain.ErrInvalidInput, "update draft quantity", fmt.Errorf("quantity %d must be at least 1", quantity))
	}
	segment, err := partSegment(partNumber)
	if err != nil {
		return err
	}
	payload := map[string]int{"reorder_qty": quantity}
	return c.sendJSON(ctx, http.MethodPut, "/api/purchase-orders/draft/items/"+segment+"/quantity", payload, nil, "draft_update_quantity")
}

func (c *Client) RemoveDraftItem(ctx context.Context, partNumber string) error {
	segment, err := partSegment(partNumber)
	if err != nil {
		return err
	}
	return c.sendJSON(ctx, http.MethodDelete, "/api/purchase-orders/draft/items/"+segment, nil, nil, "draft_remove")
}

func (c *Client) ClearDraft(ctx context.Context) (int, error) {
	var out struct {
		DeletedCount int `json:"deleted_count"`
	}
	if err := c.sendJSON(ctx, http.MethodDelete, "/api/purchase-orders/draft/clear", nil, &out, "draft_clear"); err != nil {
		return 0, err
	}
	return out.DeletedCount, nil
}

// ProceedToPO reads the PDF body and the purchase order metadata from x-* headers.
func (c *Client) ProceedToPO(ctx context.Context, req domain.ProceedRequest) (*domain.ProceedResult, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal proceed request: %w", err)
	}
	resp, err := c.send(ctx, call{
		method:      http.MethodPost,
		path:        "/api/purchase-orders/draft/proceed",
		body:        bytes.NewReader(raw),
		contentType: "application/json",
		operation:   "draft_proceed",
	})
	if err != nil {
		return nil, mapBackendError("draft_proceed", err)
	}
	defer resp.Body.Close()

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read proceed response: %w", err)
	}

	result := &domain.ProceedResult{
		PONumber: headerOr(resp.Header, "X-PO-Number", "Unknown"),
		POID:     headerOr(resp.Header, "X-PO-ID", "Unknown"),
		PDF:      pdf,
	}
	if v := resp.Header.Get("X-Total-Items"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			result.TotalItems = n
		}
	}
	if v := resp.Header.Get("X-Total-Cost"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			result.TotalCost = f
		}
	}
	return result, nil
}

func (c *Client) ListPurchaseOrders(ctx context.Context, limit, offset int, statusFilter string) ([]domain.PurchaseOrder, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	if statusFilter != "" {
		query.Set("status_filter", statusFilter)
	}

	var out struct {
		PurchaseOrders []purchaseOrderPayload `json:"purchase_orders"`
	}
	if err := c.getJSON(ctx, "/api/purchase-orders/history", query, &out, "po_history"); err != nil {
		return nil, err
	}
	orders := make([]domain.PurchaseOrder, 0, len(out.PurchaseOrders))
	for _, po := range out.PurchaseOrders {
		orders = append(orders, domain.PurchaseOrder{
			ID:                 po.ID,
			PONumber:           po.PONumber,
			PODate:             po.PODate,
			SupplierName:       po.SupplierName,
			TotalItems:         po.TotalItems,
			TotalEstimatedCost: po.TotalEstimatedCost,
			Status:             po.Status,
			Notes:              po.Notes,
			CreatedAt:          parseTimestamp(po.CreatedAt),
		})
	}
	return orders, nil
}

func (c *Client) DownloadPOPDF(ctx context.Context, poID string) ([]byte, error) {
	if strings.TrimSpace(poID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "download po pdf", fmt.Errorf("po id is required"))
	}
	segment, err := pathParam("po_id", poID)
	if err != nil {
		return nil, err
	}
	return c.getBytes(ctx, "/api/purchase-orders/"+segment+"/pdf", "po_pdf")
}

func partSegment(partNumber string) (string, error) {
	if strings.TrimSpace(partNumber) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "draft item", fmt.Errorf("part number is required"))
	}
	return pathParam("part_number", partNumber)
}

func headerOr(h http.Header, key, fallback string) string {
	if v := strings.TrimSpace(h.Get(key)); v != "" {
		return v
	}
	return fallback
}
