package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
	"github.com/kirillkom/invoice-hub-agent/internal/core/ports"
)

const (
	ReviewDates   = "dates"
	ReviewAmounts = "amounts"
)

// ReviewUseCase presents review records with display column labels.
type ReviewUseCase struct {
	api    ports.ReviewAPI
	config *UserConfigUseCase
}

func NewReviewUseCase(api ports.ReviewAPI, config *UserConfigUseCase) *ReviewUseCase {
	return &ReviewUseCase{api: api, config: config}
}

func (uc *ReviewUseCase) Records(ctx context.Context, kind string) ([]map[string]any, error) {
	var (
		rows []domain.ReviewRecord
		err  error
	)
	switch kind {
	case ReviewDates:
		rows, err = uc.api.GetDateRecords(ctx)
	case ReviewAmounts:
		rows, err = uc.api.GetAmountRecords(ctx)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "review records", fmt.Errorf("unknown review set %q", kind))
	}
	if err != nil {
		return nil, fmt.Errorf("get %s records: %w", kind, err)
	}

	// Default labels still apply without the user config.
	if _, err := uc.config.Get(ctx); err != nil {
		slog.Warn("user_config_unavailable", "error", err)
	}
	mapping := uc.config.Mapping()

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		fields := make(map[string]any, len(row.Fields)+2)
		for k, v := range row.Fields {
			fields[k] = v
		}
		fields["receipt_number"] = row.ReceiptNumber
		fields["verification_status"] = row.VerificationStatus
		out = append(out, mapping.ToDisplay(mapping.ToBackend(fields)))
	}
	return out, nil
}
