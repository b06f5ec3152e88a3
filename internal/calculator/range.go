package calculator

import (
	"errors"
	"math"

	"TradeChart/internal/model"
)

// PriceRange scans bars and any extra values (overlay prices, SMA points) and
// returns the low and high. Non-finite extras are ignored.
func PriceRange(bars []model.Bar, extra ...float64) (low, high float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	for _, v := range extra {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v > high {
			high = v
		}
		if v < low {
			low = v
		}
	}
	return low, high, nil
}

// PadRange widens [low, high] by frac of its span on each side. A zero-width
// range (single flat bar) is widened around its value so axes never collapse.
func PadRange(low, high, frac float64) (float64, float64) {
	if high < low {
		low, high = high, low
	}
	span := high - low
	if span == 0 {
		span = math.Abs(high) * 0.01
		if span == 0 {
			span = 1
		}
		return low - span, high + span
	}
	return low - span*frac, high + span*frac
}

// MaxVolume returns the largest bar volume, or 0 for no bars.
func MaxVolume(bars []model.Bar) int64 {
	var maxV int64
	for _, b := range bars {
		if b.Volume > maxV {
			maxV = b.Volume
		}
	}
	return maxV
}

// Position returns where v sits within [low, high] (0.0~1.0, clamped).
func Position(v, low, high float64) float64 {
	if high == low {
		return 0.5
	}
	pos := (v - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos
}
