// Package overlay loads secondary trade events and projects them onto a bar series.
package overlay

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"TradeChart/internal/model"
	"TradeChart/internal/normalizer"
)

// ErrDegenerate marks an overlay that exists but cannot be drawn. Callers
// downgrade to "no overlay" instead of aborting.
var ErrDegenerate = errors.New("overlay degenerate")

// Load reads overlay events from a CSV or XLSX file. A missing file is not an
// error: it returns no events.
func Load(path string, loc *time.Location) ([]model.OverlayEvent, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat overlay: %w", err)
	}

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	return ParseTable(rows, loc)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open overlay: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read csv: %v", ErrDegenerate, err)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open xlsx: %v", ErrDegenerate, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrDegenerate)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrDegenerate, sheets[0], err)
	}
	return rows, nil
}

type columns struct {
	time, price, premium, size int
}

var columnAliases = map[string]string{
	"time":      "time",
	"datetime":  "time",
	"timestamp": "time",
	"date":      "time",
	"price":     "price",
	"premium":   "premium",
	"prem":      "premium",
	"size":      "size",
	"qty":       "size",
	"quantity":  "size",
}

func findColumns(header []string) (columns, error) {
	c := columns{time: -1, price: -1, premium: -1, size: -1}
	for i, h := range header {
		switch columnAliases[strings.ToLower(strings.TrimSpace(h))] {
		case "time":
			// an exact Time header beats datetime/timestamp/date
			if c.time < 0 || strings.EqualFold(strings.TrimSpace(h), "time") {
				c.time = i
			}
		case "price":
			c.price = i
		case "premium":
			c.premium = i
		case "size":
			c.size = i
		}
	}
	if c.time < 0 || c.price < 0 {
		return c, fmt.Errorf("%w: need Time and Price columns, got %v", ErrDegenerate, header)
	}
	return c, nil
}

// ParseTable turns a header row plus data rows into events. Rows with an
// unparseable time or price are skipped; a missing premium or size stays null.
func ParseTable(rows [][]string, loc *time.Location) ([]model.OverlayEvent, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrDegenerate)
	}
	cols, err := findColumns(rows[0])
	if err != nil {
		return nil, err
	}

	var events []model.OverlayEvent
	skipped := 0
	for _, row := range rows[1:] {
		ts, err := normalizer.ParseLocal(cell(row, cols.time), loc)
		if err != nil {
			skipped++
			continue
		}
		price := parseAmount(cell(row, cols.price))
		if !price.Valid {
			skipped++
			continue
		}
		events = append(events, model.OverlayEvent{
			Time:    ts,
			Price:   price.Float64,
			Premium: parseAmount(cell(row, cols.premium)),
			Size:    parseAmount(cell(row, cols.size)),
		})
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: no usable rows (%d skipped)", ErrDegenerate, skipped)
	}
	return events, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

var suffixes = map[byte]decimal.Decimal{
	'K': decimal.NewFromInt(1_000),
	'M': decimal.NewFromInt(1_000_000),
	'B': decimal.NewFromInt(1_000_000_000),
}

// parseAmount reads values such as "231.5", "$12,500" or "1.2M".
func parseAmount(s string) null.Float {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return null.Float{}
	}
	mult := decimal.NewFromInt(1)
	if m, ok := suffixes[strings.ToUpper(s[len(s)-1:])[0]]; ok {
		mult = m
		s = s[:len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return null.Float{}
	}
	f, _ := d.Mul(mult).Float64()
	return null.FloatFrom(f)
}
