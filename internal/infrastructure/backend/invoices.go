package backend

import (
	"context"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

func (c *Client) GetStats(ctx context.Context) (domain.InvoiceStats, error) {
	var out domain.InvoiceStats
	if err := c.getJSON(ctx, "/api/invoices/stats", nil, &out, "invoice_stats"); err != nil {
		return domain.InvoiceStats{}, err
	}
	return out, nil
}
