package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	errPartNumberRequired = errors.New("part number is required")
	errQuantityPositive   = errors.New("reorder quantity must be at least 1")
)

type DraftPOItem struct {
	PartNumber   string    `json:"part_number"`
	ItemName     string    `json:"item_name"`
	CurrentStock float64   `json:"current_stock"`
	ReorderPoint float64   `json:"reorder_point"`
	ReorderQty   int       `json:"reorder_qty"`
	UnitValue    *float64  `json:"unit_value,omitempty"`
	Priority     string    `json:"priority,omitempty"`
	SupplierName string    `json:"supplier_name,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	AddedAt      time.Time `json:"added_at"`
}

// EstimatedCost is zero when the unit value is unknown.
func (i DraftPOItem) EstimatedCost() float64 {
	if i.UnitValue == nil {
		return 0
	}
	return *i.UnitValue * float64(i.ReorderQty)
}

func (i DraftPOItem) Validate() error {
	if strings.TrimSpace(i.PartNumber) == "" {
		return WrapError(ErrInvalidInput, "validate draft item", errPartNumberRequired)
	}
	if i.ReorderQty < 1 {
		return WrapError(ErrInvalidInput, "validate draft item", errQuantityPositive)
	}
	return nil
}

type DraftSummary struct {
	TotalItems         int     `json:"total_items"`
	TotalEstimatedCost float64 `json:"total_estimated_cost"`
}

func SummarizeDraft(items []DraftPOItem) DraftSummary {
	summary := DraftSummary{TotalItems: len(items)}
	for _, item := range items {
		summary.TotalEstimatedCost += item.EstimatedCost()
	}
	return summary
}

type ProceedRequest struct {
	SupplierName string `json:"supplier_name,omitempty"`
	Notes        string `json:"notes,omitempty"`
	DeliveryDate string `json:"delivery_date,omitempty"`
}

// ProceedResult is what the backend returns when a draft becomes a purchase order.
type ProceedResult struct {
	PONumber   string  `json:"po_number"`
	POID       string  `json:"po_id"`
	TotalItems int     `json:"total_items"`
	TotalCost  float64 `json:"total_cost"`
	PDF        []byte  `json:"-"`
}

// PurchaseOrderConfirmation is shown to the user after a successful proceed.
type PurchaseOrderConfirmation struct {
	PONumber   string  `json:"po_number"`
	POID       string  `json:"po_id"`
	TotalItems int     `json:"total_items"`
	TotalCost  float64 `json:"total_cost"`
	PDFKey     string  `json:"pdf_key"`
	PDFPages   int     `json:"pdf_pages"`
	PDFError   string  `json:"pdf_error,omitempty"`
}

type PurchaseOrder struct {
	ID                 string    `json:"id"`
	PONumber           string    `json:"po_number"`
	PODate             string    `json:"po_date"`
	SupplierName       string    `json:"supplier_name,omitempty"`
	TotalItems         int       `json:"total_items"`
	TotalEstimatedCost float64   `json:"total_estimated_cost"`
	Status             string    `json:"status"`
	Notes              string    `json:"notes,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}
