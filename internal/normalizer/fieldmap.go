package normalizer

import (
	"fmt"
	"sort"
)

// Field identifies one canonical OHLCV column.
type Field int

const (
	FieldTime Field = iota
	FieldOpen
	FieldHigh
	FieldLow
	FieldClose
	FieldVolume
)

var canonicalFields = []Field{FieldTime, FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume}

func (f Field) String() string {
	switch f {
	case FieldTime:
		return "datetime"
	case FieldOpen:
		return "Open"
	case FieldHigh:
		return "High"
	case FieldLow:
		return "Low"
	case FieldClose:
		return "Close"
	case FieldVolume:
		return "Volume"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// FieldMap maps a provider record key to the canonical field it carries.
// Keys not present in the map are dropped during normalization.
type FieldMap map[string]Field

// PolygonFields is the aggregate-bar schema of the Polygon v2 aggs endpoint.
// The time key carries epoch milliseconds.
var PolygonFields = FieldMap{
	"t": FieldTime,
	"o": FieldOpen,
	"h": FieldHigh,
	"l": FieldLow,
	"c": FieldClose,
	"v": FieldVolume,
}

// YahooFields is the per-row schema the Yahoo fetcher produces from the chart API columns.
var YahooFields = FieldMap{
	"timestamp": FieldTime,
	"open":      FieldOpen,
	"high":      FieldHigh,
	"low":       FieldLow,
	"close":     FieldClose,
	"volume":    FieldVolume,
}

// Validate checks that every canonical field is mapped exactly once.
func (m FieldMap) Validate() error {
	seen := make(map[Field]string, len(canonicalFields))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f := m[k]
		if f < FieldTime || f > FieldVolume {
			return fmt.Errorf("field map: key %q maps to unknown field %d", k, int(f))
		}
		if prev, dup := seen[f]; dup {
			return fmt.Errorf("field map: %s mapped by both %q and %q", f, prev, k)
		}
		seen[f] = k
	}
	for _, f := range canonicalFields {
		if _, ok := seen[f]; !ok {
			return fmt.Errorf("field map: no provider key for %s", f)
		}
	}
	return nil
}

// reverse returns the provider key for each canonical field.
func (m FieldMap) reverse() map[Field]string {
	out := make(map[Field]string, len(m))
	for k, f := range m {
		out[f] = k
	}
	return out
}
