package backend

import (
	"context"
	"fmt"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

type recordsResponse struct {
	Records []map[string]any `json:"records"`
}

func (c *Client) GetDateRecords(ctx context.Context) ([]domain.ReviewRecord, error) {
	return c.reviewRecords(ctx, "/api/review/dates", "review_dates")
}

func (c *Client) GetAmountRecords(ctx context.Context) ([]domain.ReviewRecord, error) {
	return c.reviewRecords(ctx, "/api/review/amounts", "review_amounts")
}

func (c *Client) reviewRecords(ctx context.Context, path, operation string) ([]domain.ReviewRecord, error) {
	var out recordsResponse
	if err := c.getJSON(ctx, path, nil, &out, operation); err != nil {
		return nil, err
	}
	records := make([]domain.ReviewRecord, 0, len(out.Records))
	for _, row := range out.Records {
		records = append(records, reviewRecord(row))
	}
	return records, nil
}

// reviewRecord accepts both display-labelled and snake_case rows.
func reviewRecord(row map[string]any) domain.ReviewRecord {
	return domain.ReviewRecord{
		RowID:              field(row, "Row_Id", "row_id"),
		ReceiptNumber:      field(row, "Receipt Number", "receipt_number"),
		VerificationStatus: field(row, "Verification Status", "verification_status"),
		Fields:             row,
	}
}

func field(row map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}
		switch typed := v.(type) {
		case string:
			return typed
		case float64:
			if typed == float64(int64(typed)) {
				return fmt.Sprintf("%d", int64(typed))
			}
			return fmt.Sprint(typed)
		default:
			return fmt.Sprint(typed)
		}
	}
	return ""
}
