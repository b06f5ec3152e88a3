package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"time"

	"TradeChart/internal/model"
)

// ErrSchema is returned when a provider record does not match its FieldMap.
var ErrSchema = errors.New("provider schema mismatch")

// RawBar is one provider record as decoded from the wire, keyed by provider field names.
type RawBar map[string]any

// Normalize maps raw provider records onto canonical bars in loc, sorted
// ascending by time. Ties keep provider order and later duplicates of a
// timestamp are dropped.
func Normalize(raw []RawBar, fields FieldMap, loc *time.Location) ([]model.Bar, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	keys := fields.reverse()

	bars := make([]model.Bar, 0, len(raw))
	for i, rec := range raw {
		var vals [6]float64
		for _, f := range canonicalFields {
			key := keys[f]
			v, ok := rec[key]
			if !ok || v == nil {
				return nil, fmt.Errorf("%w: record %d missing %q (%s)", ErrSchema, i, key, f)
			}
			n, err := toFloat(v)
			if err != nil {
				return nil, fmt.Errorf("%w: record %d field %q: %v", ErrSchema, i, key, err)
			}
			vals[f] = n
		}
		bars = append(bars, model.Bar{
			Time:   FromEpochMillis(int64(vals[FieldTime]), loc),
			Open:   vals[FieldOpen],
			High:   vals[FieldHigh],
			Low:    vals[FieldLow],
			Close:  vals[FieldClose],
			Volume: int64(math.Round(vals[FieldVolume])),
		})
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	out := bars[:0]
	dropped := 0
	for _, b := range bars {
		if len(out) > 0 && b.Time.Equal(out[len(out)-1].Time) {
			dropped++
			continue
		}
		out = append(out, b)
	}
	if dropped > 0 {
		log.Printf("[WARN] normalizer dropped %d duplicate timestamps", dropped)
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			f = float64(i)
			break
		}
		p, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0, err
		}
		f = p
	default:
		return 0, fmt.Errorf("not numeric: %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite: %v", f)
	}
	return f, nil
}
