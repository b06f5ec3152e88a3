package calculator

import (
	"errors"
	"math"

	"TradeChart/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMASeries returns the rolling close SMA for every bar. Bars before the
// first full window are NaN so the line starts with a gap.
func SMASeries(bars []model.Bar, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	closes := extractCloses(bars)
	out := make([]float64, len(closes))
	for i := range closes {
		if i+1 < period {
			out[i] = math.NaN()
			continue
		}
		v, err := CalculateSMA(closes[:i+1], period)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func extractCloses(bars []model.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
