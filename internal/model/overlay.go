package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// OverlayEvent is one externally sourced trade plotted atop the price panel.
type OverlayEvent struct {
	Time    time.Time
	Price   float64
	Premium null.Float
	Size    null.Float
	// Weight is the marker display size derived from Premium.
	Weight float64
}

// AlignedPoint is the overlay value projected onto one bar of a Series.
// An invalid Price means there is nothing to draw at that bar.
type AlignedPoint struct {
	Price  null.Float
	Weight float64
	Size   null.Float
}

// AlignedOverlay holds one AlignedPoint per bar of the Series it was aligned to.
type AlignedOverlay struct {
	Points []AlignedPoint
}

// Drawable returns the number of points that carry a price marker.
func (a *AlignedOverlay) Drawable() int {
	if a == nil {
		return 0
	}
	n := 0
	for _, p := range a.Points {
		if p.Price.Valid {
			n++
		}
	}
	return n
}

// HasSize reports whether any aligned point carries a trade size.
func (a *AlignedOverlay) HasSize() bool {
	if a == nil {
		return false
	}
	for _, p := range a.Points {
		if p.Size.Valid {
			return true
		}
	}
	return false
}
