package csvio

import (
	"fmt"
	"io"

	"trade-journal-go/internal/models"

	"github.com/xuri/excelize/v2"
)

// SheetName is the single worksheet of the exported workbook.
const SheetName = "Trades"

// columnWidths are the fixed display widths, one per interchange column.
var columnWidths = []float64{28, 42, 12, 12, 12, 12, 15, 40}

// WriteXLSX serializes trades as a single-sheet workbook with the same
// column semantics as the CSV export. Format conversion only; numeric
// columns stay numeric so the spreadsheet can compute over them.
func WriteXLSX(w io.Writer, trades []models.Trade) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name worksheet: %w", err)
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to resolve column %d: %w", i+1, err)
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i := range trades {
		t := &trades[i]
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to resolve row %d: %w", i+2, err)
		}
		row := []interface{}{
			t.Date.UTC().Format(exportDateLayout),
			t.CoinSlugOrAddress,
			t.EntryPrice,
			t.Quantity,
			t.TargetPrice,
			t.StopLoss,
			string(t.Status),
			t.Notes,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
