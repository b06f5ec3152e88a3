// Package snapshot writes and reads the delimited on-disk copy of a Series.
package snapshot

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"TradeChart/internal/model"
)

// Header is the canonical column order of a snapshot file.
var Header = []string{"datetime", "Open", "High", "Low", "Close", "Volume"}

// WriteFile writes series to path, creating parent directories.
func WriteFile(path string, series *model.Series) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := Write(f, series); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes series as CSV.
func Write(w io.Writer, series *model.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, b := range series.Bars {
		row := []string{
			b.Time.Format(time.RFC3339Nano),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatInt(b.Volume, 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFile loads a snapshot written by WriteFile; timestamps are converted to loc.
func ReadFile(path string, loc *time.Location) (*model.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return Read(f, loc)
}

// Read decodes a CSV snapshot.
func Read(r io.Reader, loc *time.Location) (*model.Series, error) {
	if loc == nil {
		loc = time.UTC
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}
	for i, h := range Header {
		if header[i] != h {
			return nil, fmt.Errorf("snapshot column %d: got %q, want %q", i, header[i], h)
		}
	}

	series := &model.Series{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read snapshot line %d: %w", line, err)
		}
		b, err := parseRow(rec, loc)
		if err != nil {
			return nil, fmt.Errorf("snapshot line %d: %w", line, err)
		}
		series.Bars = append(series.Bars, b)
	}
	return series, nil
}

func parseRow(rec []string, loc *time.Location) (model.Bar, error) {
	var b model.Bar
	t, err := time.Parse(time.RFC3339Nano, rec[0])
	if err != nil {
		return b, err
	}
	b.Time = t.In(loc)
	vals := make([]float64, 4)
	for i := range vals {
		if vals[i], err = strconv.ParseFloat(rec[i+1], 64); err != nil {
			return b, fmt.Errorf("%s: %w", Header[i+1], err)
		}
	}
	b.Open, b.High, b.Low, b.Close = vals[0], vals[1], vals[2], vals[3]
	if b.Volume, err = strconv.ParseInt(rec[5], 10, 64); err != nil {
		return b, fmt.Errorf("Volume: %w", err)
	}
	return b, nil
}
