package render

import "fmt"

// Layout is the figure configuration for one chart.
type Layout struct {
	Width        int
	Height       int
	Title        string
	XLabel       string
	YLabel       string
	Volume       bool
	SizePanel    bool
	UpColor      string
	DownColor    string
	OverlayColor string
	// SMAPeriod draws a close-price moving average when positive.
	SMAPeriod int
}

// DefaultLayout mirrors the classic mplfinance look: green up, red down, blue markers.
func DefaultLayout() Layout {
	return Layout{
		Width:        1200,
		Height:       800,
		YLabel:       "Price",
		Volume:       true,
		SizePanel:    true,
		UpColor:      "green",
		DownColor:    "red",
		OverlayColor: "blue",
	}
}

// Validate checks figure size and colors.
func (l Layout) Validate() error {
	if l.Width < 200 || l.Height < 150 {
		return fmt.Errorf("figure too small: %dx%d", l.Width, l.Height)
	}
	for name, c := range map[string]string{"up_color": l.UpColor, "down_color": l.DownColor, "overlay_color": l.OverlayColor} {
		if _, err := ParseColor(c); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if l.SMAPeriod < 0 {
		return fmt.Errorf("sma_period must not be negative")
	}
	return nil
}

const (
	marginLeft   = 80.0
	marginRight  = 24.0
	marginTop    = 48.0
	marginBottom = 56.0
	panelGap     = 14.0
)

// panel is one stacked plotting area with its own value axis.
type panel struct {
	x, y, w, h float64
	lo, hi     float64
	label      string
}

func (p panel) bottom() float64 { return p.y + p.h }

// stack splits the plotting height between panels by weight.
func stack(l Layout, weights []float64, labels []string) []panel {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	plotH := float64(l.Height) - marginTop - marginBottom - panelGap*float64(len(weights)-1)
	plotW := float64(l.Width) - marginLeft - marginRight
	panels := make([]panel, len(weights))
	y := marginTop
	for i, w := range weights {
		h := plotH * w / total
		panels[i] = panel{x: marginLeft, y: y, w: plotW, h: h, label: labels[i]}
		y += h + panelGap
	}
	return panels
}
