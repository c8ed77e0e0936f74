// Package csvio converts trade sets to and from the journal's fixed
// 8-column interchange format, as CSV text or a single-sheet workbook.
// The importer and exporters share one column order so that an exported
// file re-imports losslessly.
package csvio

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"trade-journal-go/internal/models"
)

// Columns is the single source of truth for the interchange column
// order. Import accepts them in any order; export always emits this one.
var Columns = []string{
	"date",
	"coinSlugOrAddress",
	"entryPrice",
	"quantity",
	"targetPrice",
	"stopLoss",
	"status",
	"notes",
}

// ImportResult carries the rows that survived validation together with
// the warnings for the rows that did not. Skipped rows are diagnostics,
// not failures.
type ImportResult struct {
	Trades   []models.Trade
	Warnings []string
}

// dateLayouts are tried in order when parsing the date column.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("number %q is not finite", s)
	}
	return v, nil
}

// normalizeHeader casefolds a header cell and strips all whitespace, so
// "Entry Price" and "entryprice" match the same column.
func normalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(h)), "")
}

// splitFields tokenizes one line into fields, honoring double-quoted
// spans that may contain embedded separators; a doubled quote inside a
// quoted span is one literal quote. Quoted fields spanning multiple raw
// lines are not supported.
func splitFields(line string) []string {
	var fields []string
	start := 0
	inQuotes := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				fields = append(fields, unquoteField(line[start:i]))
				start = i + 1
			}
		}
	}
	fields = append(fields, unquoteField(line[start:]))
	return fields
}

func unquoteField(raw string) string {
	v := strings.TrimSpace(raw)
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		v = strings.ReplaceAll(v[1:len(v)-1], `""`, `"`)
	}
	return v
}

// Parse converts a raw CSV blob into trade records without ids.
//
// Structural problems (empty file, missing required columns, zero rows
// surviving validation) abort the whole import with a single error.
// Individual invalid rows are skipped and reported as warnings while
// the remaining rows import normally.
func Parse(raw []byte) (*ImportResult, error) {
	// Our own export prefixes a BOM for spreadsheet apps; drop it.
	text := strings.TrimPrefix(string(raw), "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("csv must have a header row and at least one data row")
	}

	headerIndex := make(map[string]int)
	for i, h := range splitFields(lines[0]) {
		headerIndex[normalizeHeader(h)] = i
	}

	var missing []string
	for _, col := range Columns {
		if _, ok := headerIndex[normalizeHeader(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv is missing required columns: %s", strings.Join(missing, ", "))
	}

	field := func(row []string, col string) string {
		idx := headerIndex[normalizeHeader(col)]
		if idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	result := &ImportResult{}
	for n, line := range lines[1:] {
		rowNum := n + 2 // 1-based, counting the header
		row := splitFields(line)

		date, dateErr := parseDate(field(row, "date"))
		entryPrice, entryErr := parseNumber(field(row, "entryPrice"))
		quantity, qtyErr := parseNumber(field(row, "quantity"))
		targetPrice, targetErr := parseNumber(field(row, "targetPrice"))
		stopLoss, stopErr := parseNumber(field(row, "stopLoss"))
		if dateErr != nil || entryErr != nil || qtyErr != nil || targetErr != nil || stopErr != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("skipping row %d: invalid or incomplete data", rowNum))
			continue
		}

		status, ok := models.ParseTradeStatus(field(row, "status"))
		if !ok {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("skipping row %d: invalid status %q, must be open, closed-profit or closed-loss",
					rowNum, field(row, "status")))
			continue
		}

		result.Trades = append(result.Trades, models.Trade{
			CoinSlugOrAddress: strings.TrimSpace(field(row, "coinSlugOrAddress")),
			EntryPrice:        entryPrice,
			TargetPrice:       targetPrice,
			StopLoss:          stopLoss,
			Quantity:          quantity,
			Date:              date,
			Notes:             field(row, "notes"),
			Status:            status,
		})
	}

	if len(result.Trades) == 0 {
		return nil, fmt.Errorf("no valid trades could be parsed from the file")
	}
	return result, nil
}
