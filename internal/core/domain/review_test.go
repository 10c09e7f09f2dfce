package domain

import "testing"

func rows(receipt string, statuses ...string) []ReviewRecord {
	out := make([]ReviewRecord, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, ReviewRecord{ReceiptNumber: receipt, VerificationStatus: s})
	}
	return out
}

func TestReduceReceipt(t *testing.T) {
	cases := []struct {
		name     string
		statuses []string
		want     ReceiptState
	}{
		{"pending and done", []string{"Pending", "Done"}, ReceiptPending},
		{"all done", []string{"Done", "done"}, ReceiptCompleted},
		{"duplicate wins", []string{"Duplicate Receipt Number", "Done"}, ReceiptDuplicate},
		{"duplicate wins over pending", []string{"Pending", "DUPLICATE RECEIPT NUMBER"}, ReceiptDuplicate},
		{"missing status is pending", []string{""}, ReceiptPending},
		{"unknown status only", []string{"Archived"}, ReceiptOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ReduceReceipt(rows("R1", tc.statuses...)); got != tc.want {
				t.Fatalf("ReduceReceipt(%v) = %s, want %s", tc.statuses, got, tc.want)
			}
		})
	}
}

func TestAggregateReviewStatsCountsUniqueReceipts(t *testing.T) {
	var all []ReviewRecord
	all = append(all, rows("R1", "Pending", "Done")...)
	all = append(all, rows("R2", "Done", "Done")...)
	all = append(all, rows("R3", "Duplicate Receipt Number", "Done")...)
	all = append(all, rows("R4", "Done")...)
	all = append(all, rows("", "Pending")...)

	stats := AggregateReviewStats(all)
	if stats.Pending != 1 || stats.Completed != 2 || stats.Duplicate != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.ReviewCount() != 2 {
		t.Fatalf("expected review count 2, got %d", stats.ReviewCount())
	}
	if stats.SyncCount() != 2 {
		t.Fatalf("expected sync count 2, got %d", stats.SyncCount())
	}
}
