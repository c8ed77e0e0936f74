package csvio

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"trade-journal-go/internal/models"
)

// utf8BOM precedes CSV payloads so spreadsheet applications detect the
// encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// exportDateLayout matches the ISO-8601 instant format the importer
// round-trips losslessly.
const exportDateLayout = "2006-01-02T15:04:05.000Z07:00"

// escapeValue quotes a field containing a separator, quote character or
// newline, doubling internal quotes. This exactly inverts the
// importer's unquoting.
func escapeValue(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// tradeRow renders one trade in the fixed column order.
func tradeRow(t *models.Trade) []string {
	return []string{
		t.Date.UTC().Format(exportDateLayout),
		t.CoinSlugOrAddress,
		formatNumber(t.EntryPrice),
		formatNumber(t.Quantity),
		formatNumber(t.TargetPrice),
		formatNumber(t.StopLoss),
		string(t.Status),
		t.Notes,
	}
}

func writeCSVRow(w io.Writer, fields []string) error {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = escapeValue(f)
	}
	_, err := io.WriteString(w, strings.Join(escaped, ",")+"\n")
	return err
}

// WriteCSV serializes trades as BOM-prefixed CSV text. Only the 8
// persistent interchange fields are written; ids and transient values
// never appear in the file.
func WriteCSV(w io.Writer, trades []models.Trade) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	if err := writeCSVRow(w, Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for i := range trades {
		if err := writeCSVRow(w, tradeRow(&trades[i])); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	return nil
}

// Template writes an import template: the header row plus one example
// trade showing the expected value formats.
func Template(w io.Writer) error {
	example := models.Trade{
		CoinSlugOrAddress: "0xDeAdBeef...",
		EntryPrice:        100,
		Quantity:          1.5,
		TargetPrice:       120,
		StopLoss:          90,
		Status:            models.StatusOpen,
		Date:              time.Now(),
		Notes:             "Example trade, you can add notes with commas here",
	}
	return WriteCSV(w, []models.Trade{example})
}
