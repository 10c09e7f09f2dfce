package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

const sheetName = "Draft PO"

var draftHeaders = []any{
	"Part Number", "Item Name", "Current Stock", "Reorder Point",
	"Reorder Qty", "Unit Value", "Estimated Cost", "Priority", "Supplier", "Added At",
}

// DraftExporter writes the draft purchase order as a single sheet workbook.
type DraftExporter struct{}

func NewDraftExporter() *DraftExporter {
	return &DraftExporter{}
}

func (e *DraftExporter) ExportDraft(w io.Writer, items []domain.DraftPOItem, summary domain.DraftSummary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}
	if err := sw.SetRow("A1", draftHeaders, excelize.RowOpts{StyleID: bold}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := 2
	for _, item := range items {
		var unit any
		if item.UnitValue != nil {
			unit = *item.UnitValue
		}
		addedAt := ""
		if !item.AddedAt.IsZero() {
			addedAt = item.AddedAt.Format("2006-01-02 15:04")
		}
		cells := []any{
			item.PartNumber, item.ItemName, item.CurrentStock, item.ReorderPoint,
			item.ReorderQty, unit, item.EstimatedCost(), item.Priority, item.SupplierName, addedAt,
		}
		if err := sw.SetRow(axis(row), cells); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		row++
	}

	totals := []any{"Total", fmt.Sprintf("%d items", summary.TotalItems), nil, nil, nil, nil, summary.TotalEstimatedCost}
	if err := sw.SetRow(axis(row+1), totals, excelize.RowOpts{StyleID: bold}); err != nil {
		return fmt.Errorf("write totals: %w", err)
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func axis(row int) string {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	return cell
}
