package overlay

import (
	"fmt"
	"sort"
	"time"

	"github.com/guregu/null/v6"

	"TradeChart/internal/model"
)

// Policy selects how event timestamps are matched to bar timestamps.
type Policy string

const (
	// Exact keeps an event only when its timestamp equals a bar timestamp.
	Exact Policy = "exact"
	// Nearest snaps an event to the closest bar within a tolerance.
	Nearest Policy = "nearest"
)

// ParsePolicy validates a configured policy name; empty means Exact.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", Exact:
		return Exact, nil
	case Nearest:
		return Nearest, nil
	}
	return "", fmt.Errorf("unknown overlay alignment %q (want exact or nearest)", s)
}

// Aligner projects overlay events onto a series' time axis.
type Aligner struct {
	Policy Policy
	// Tolerance bounds Nearest matching. Zero uses the series' median bar
	// spacing, or Interval when the series has a single bar.
	Tolerance time.Duration
	// Interval is the configured bar duration. With Tolerance zero and a
	// one-bar series, leaving it zero makes Nearest match exactly.
	Interval time.Duration
}

// Align returns one point per bar. Bars no event lands on stay invalid.
// When several events land on one bar the one with the largest weight marks
// the price and their sizes are summed.
func (a Aligner) Align(series *model.Series, events []model.OverlayEvent) *model.AlignedOverlay {
	out := &model.AlignedOverlay{Points: make([]model.AlignedPoint, series.Len())}
	if series.Len() == 0 || len(events) == 0 {
		return out
	}

	index := make(map[int64]int, series.Len())
	for i, b := range series.Bars {
		index[b.Time.UnixNano()] = i
	}
	tol := a.Tolerance
	if a.Policy == Nearest && tol == 0 {
		tol = medianSpacing(series.Bars)
		if tol == 0 {
			tol = a.Interval
		}
	}

	for _, e := range events {
		var i int
		var ok bool
		if a.Policy == Nearest {
			i, ok = nearest(series.Bars, e.Time, tol)
		} else {
			i, ok = index[e.Time.UnixNano()]
		}
		if !ok {
			continue
		}
		p := &out.Points[i]
		if !p.Price.Valid || e.Weight > p.Weight {
			p.Price = null.FloatFrom(e.Price)
			p.Weight = e.Weight
		}
		if e.Size.Valid {
			p.Size = null.FloatFrom(p.Size.Float64 + e.Size.Float64)
		}
	}
	return out
}

func nearest(bars []model.Bar, t time.Time, tol time.Duration) (int, bool) {
	j := sort.Search(len(bars), func(k int) bool { return !bars[k].Time.Before(t) })
	best, bestDist := -1, time.Duration(0)
	for _, k := range []int{j - 1, j} {
		if k < 0 || k >= len(bars) {
			continue
		}
		d := bars[k].Time.Sub(t)
		if d < 0 {
			d = -d
		}
		if best < 0 || d < bestDist {
			best, bestDist = k, d
		}
	}
	if best < 0 || bestDist > tol {
		return 0, false
	}
	return best, true
}

func medianSpacing(bars []model.Bar) time.Duration {
	if len(bars) < 2 {
		return 0
	}
	gaps := make([]time.Duration, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		gaps = append(gaps, bars[i].Time.Sub(bars[i-1].Time))
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	return gaps[len(gaps)/2]
}
