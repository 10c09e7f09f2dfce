package domain

import "strings"

type VerificationStatus string

const (
	VerificationPending   VerificationStatus = "pending"
	VerificationDone      VerificationStatus = "done"
	VerificationDuplicate VerificationStatus = "duplicate receipt number"
)

// ReviewRecord is one row of the date or amount review sets.
type ReviewRecord struct {
	RowID              string         `json:"row_id,omitempty"`
	ReceiptNumber      string         `json:"receipt_number"`
	VerificationStatus string         `json:"verification_status"`
	Fields             map[string]any `json:"-"`
}

// NormalizedStatus lowercases the row status; an empty status counts as pending.
func (r ReviewRecord) NormalizedStatus() VerificationStatus {
	s := strings.ToLower(strings.TrimSpace(r.VerificationStatus))
	if s == "" {
		return VerificationPending
	}
	return VerificationStatus(s)
}

type ReceiptState string

const (
	ReceiptPending   ReceiptState = "pending"
	ReceiptCompleted ReceiptState = "completed"
	ReceiptDuplicate ReceiptState = "duplicate"
	ReceiptOther     ReceiptState = "other"
)

// ReviewStats counts unique receipts by reduced state.
type ReviewStats struct {
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Duplicate int `json:"duplicate"`
}

func (s ReviewStats) ReviewCount() int { return s.Pending + s.Duplicate }

func (s ReviewStats) SyncCount() int { return s.Completed }

// ReduceReceipt folds the row statuses of a single receipt into one state.
func ReduceReceipt(rows []ReviewRecord) ReceiptState {
	if len(rows) == 0 {
		return ReceiptOther
	}
	allDone := true
	hasPending := false
	for _, row := range rows {
		switch row.NormalizedStatus() {
		case VerificationDuplicate:
			return ReceiptDuplicate
		case VerificationPending:
			hasPending = true
			allDone = false
		case VerificationDone:
		default:
			allDone = false
		}
	}
	switch {
	case allDone:
		return ReceiptCompleted
	case hasPending:
		return ReceiptPending
	default:
		return ReceiptOther
	}
}

// AggregateReviewStats groups rows by receipt number and counts reduced states.
// Rows without a receipt number are ignored.
func AggregateReviewStats(rows []ReviewRecord) ReviewStats {
	byReceipt := make(map[string][]ReviewRecord)
	for _, row := range rows {
		key := strings.TrimSpace(row.ReceiptNumber)
		if key == "" {
			continue
		}
		byReceipt[key] = append(byReceipt[key], row)
	}

	var stats ReviewStats
	for _, receiptRows := range byReceipt {
		switch ReduceReceipt(receiptRows) {
		case ReceiptDuplicate:
			stats.Duplicate++
		case ReceiptCompleted:
			stats.Completed++
		case ReceiptPending:
			stats.Pending++
		}
	}
	return stats
}

type InvoiceStats struct {
	TotalInvoices int `json:"total_invoices"`
	Verified      int `json:"verified"`
	PendingReview int `json:"pending_review"`
	ThisMonth     int `json:"this_month"`
}
