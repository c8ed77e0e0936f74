package csvio

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"trade-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTrades() []models.Trade {
	return []models.Trade{
		{
			CoinSlugOrAddress: "0xabc",
			EntryPrice:        1.5,
			TargetPrice:       3,
			StopLoss:          1,
			Quantity:          100,
			Notes:             "plain note",
			Date:              time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			Status:            models.StatusOpen,
		},
		{
			CoinSlugOrAddress: "pepe",
			EntryPrice:        0.0000012,
			TargetPrice:       0.0000025,
			StopLoss:          0.0000008,
			Quantity:          50000000,
			Notes:             `notes, with commas and "quotes"`,
			Date:              time.Date(2024, 3, 2, 18, 30, 45, 0, time.UTC),
			Status:            models.StatusClosedLoss,
		},
	}
}

func TestWriteCSVFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTrades()))

	out := buf.Bytes()
	assert.True(t, bytes.HasPrefix(out, utf8BOM), "csv payload must start with a BOM")

	lines := strings.Split(strings.TrimRight(string(out[len(utf8BOM):]), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(Columns, ","), lines[0])
	assert.Contains(t, lines[1], "2024-03-01T10:00:00.000Z")
	assert.Contains(t, lines[2], `"notes, with commas and ""quotes"""`)
}

func TestExportImportRoundTrip(t *testing.T) {
	trades := sampleTrades()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, trades))

	// Re-import the exact exported bytes, BOM included.
	result, err := Parse(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, result.Trades, len(trades))
	assert.Empty(t, result.Warnings)

	for i, got := range result.Trades {
		want := trades[i]
		assert.Equal(t, want.CoinSlugOrAddress, got.CoinSlugOrAddress)
		assert.Equal(t, want.EntryPrice, got.EntryPrice)
		assert.Equal(t, want.Quantity, got.Quantity)
		assert.Equal(t, want.TargetPrice, got.TargetPrice)
		assert.Equal(t, want.StopLoss, got.StopLoss)
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.Notes, got.Notes)
		assert.True(t, want.Date.Equal(got.Date), "date %v != %v", want.Date, got.Date)
	}
}

func TestTemplateParses(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Template(&buf))

	result, err := Parse(bytes.TrimPrefix(buf.Bytes(), utf8BOM))
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, models.StatusOpen, result.Trades[0].Status)
	assert.Equal(t, 1.5, result.Trades[0].Quantity)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleTrades()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "0xabc", rows[1][1])
	assert.Equal(t, "closed-loss", rows[2][6])

	width, err := f.GetColWidth(SheetName, "B")
	require.NoError(t, err)
	assert.InDelta(t, 42, width, 0.01)
}
