package overlay

import (
	"math"

	"TradeChart/internal/model"
)

// Marker size bounds used when none are configured.
const (
	DefaultMinWeight = 30.0
	DefaultMaxWeight = 500.0
)

// ScaleWeights sets each event's Weight by mapping its premium linearly from
// the observed [min, max] premium onto [minW, maxW]. Missing premiums count
// as 0. When every premium is equal all weights are minW.
func ScaleWeights(events []model.OverlayEvent, minW, maxW float64) {
	if len(events) == 0 {
		return
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, e := range events {
		p := premium(e)
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	span := hi - lo
	for i := range events {
		if span == 0 {
			events[i].Weight = minW
			continue
		}
		events[i].Weight = minW + (premium(events[i])-lo)/span*(maxW-minW)
	}
}

func premium(e model.OverlayEvent) float64 {
	if !e.Premium.Valid || math.IsNaN(e.Premium.Float64) || math.IsInf(e.Premium.Float64, 0) {
		return 0
	}
	return e.Premium.Float64
}
