// Package render rasterizes a bar series and its overlay into a stacked candlestick chart.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fogleman/gg"

	"TradeChart/internal/calculator"
	"TradeChart/internal/model"
)

var (
	background = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	ink        = color.NRGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	gridColor  = color.NRGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
	smaColor   = color.NRGBA{R: 0xff, G: 0x8c, B: 0x00, A: 0xff}
)

// Renderer draws charts with a fixed Layout.
type Renderer struct {
	Layout Layout

	up, down, marker color.NRGBA
}

// NewRenderer validates l and returns a Renderer for it.
func NewRenderer(l Layout) (*Renderer, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	r := &Renderer{Layout: l}
	r.up, _ = ParseColor(l.UpColor)
	r.down, _ = ParseColor(l.DownColor)
	r.marker, _ = ParseColor(l.OverlayColor)
	return r, nil
}

// Render draws series (and ov, which may be nil) and writes a PNG to path.
func (r *Renderer) Render(series *model.Series, ov *model.AlignedOverlay, path string) error {
	dc, err := r.Draw(series, ov)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("save png: %w", err)
	}
	log.Printf("[INFO] chart written: %s (%d bars, %d overlay points)", path, series.Len(), ov.Drawable())
	return nil
}

// Draw composes the chart in memory.
func (r *Renderer) Draw(series *model.Series, ov *model.AlignedOverlay) (*gg.Context, error) {
	if series.Len() == 0 {
		return nil, errors.New("render: empty series")
	}
	if ov != nil && len(ov.Points) != series.Len() {
		return nil, fmt.Errorf("render: overlay has %d points for %d bars", len(ov.Points), series.Len())
	}
	l := r.Layout
	bars := series.Bars

	var sma []float64
	if l.SMAPeriod > 0 {
		var err error
		if sma, err = calculator.SMASeries(bars, l.SMAPeriod); err != nil {
			return nil, err
		}
	}

	weights := []float64{4}
	labels := []string{l.YLabel}
	if l.Volume {
		weights = append(weights, 1)
		labels = append(labels, "Volume")
	}
	sizePanel := l.SizePanel && ov.HasSize()
	if sizePanel {
		weights = append(weights, 1)
		labels = append(labels, "Size")
	}
	panels := stack(l, weights, labels)

	extra := append([]float64{}, sma...)
	if ov != nil {
		for _, p := range ov.Points {
			if p.Price.Valid {
				extra = append(extra, p.Price.Float64)
			}
		}
	}
	lo, hi, err := calculator.PriceRange(bars, extra...)
	if err != nil {
		return nil, err
	}
	panels[0].lo, panels[0].hi = calculator.PadRange(lo, hi, 0.05)

	dc := gg.NewContext(l.Width, l.Height)
	dc.SetColor(background)
	dc.Clear()

	slot := panels[0].w / float64(len(bars))
	xAt := func(i int) float64 { return panels[0].x + slot*(float64(i)+0.5) }

	r.drawFrame(dc, panels[0], 5)
	r.drawCandles(dc, panels[0], bars, slot, xAt)
	if sma != nil {
		drawLine(dc, panels[0], sma, xAt)
	}
	if ov != nil {
		r.drawMarkers(dc, panels[0], ov, xAt)
	}

	next := 1
	if l.Volume {
		p := &panels[next]
		p.lo, p.hi = 0, float64(calculator.MaxVolume(bars))
		if p.hi == 0 {
			p.hi = 1
		}
		r.drawFrame(dc, *p, 3)
		r.drawVolume(dc, *p, bars, slot, xAt)
		next++
	}
	if sizePanel {
		p := &panels[next]
		p.lo, p.hi = 0, 1
		for _, pt := range ov.Points {
			if pt.Size.Valid && pt.Size.Float64 > p.hi {
				p.hi = pt.Size.Float64
			}
		}
		r.drawFrame(dc, *p, 3)
		r.drawSizes(dc, *p, ov, slot, xAt)
	}

	last := panels[len(panels)-1]
	drawTimeAxis(dc, last, bars, xAt)
	r.drawTitles(dc, panels)
	return dc, nil
}

func (p panel) yAt(v float64) float64 {
	return p.bottom() - calculator.Position(v, p.lo, p.hi)*p.h
}

func (r *Renderer) drawFrame(dc *gg.Context, p panel, ticks int) {
	dc.SetLineWidth(1)
	for i := 0; i <= ticks; i++ {
		v := p.lo + (p.hi-p.lo)*float64(i)/float64(ticks)
		y := p.yAt(v)
		dc.SetColor(gridColor)
		dc.DrawLine(p.x, y, p.x+p.w, y)
		dc.Stroke()
		dc.SetColor(ink)
		dc.DrawStringAnchored(formatValue(v, p.hi-p.lo), p.x-6, y, 1, 0.5)
	}
	dc.SetColor(ink)
	dc.DrawRectangle(p.x, p.y, p.w, p.h)
	dc.Stroke()
}

func (r *Renderer) drawCandles(dc *gg.Context, p panel, bars []model.Bar, slot float64, xAt func(int) float64) {
	bw := math.Max(1, slot*0.6)
	for i, b := range bars {
		c := r.down
		if b.Up() {
			c = r.up
		}
		x := xAt(i)
		dc.SetColor(c)
		dc.SetLineWidth(1)
		dc.DrawLine(x, p.yAt(b.High), x, p.yAt(b.Low))
		dc.Stroke()

		top := p.yAt(math.Max(b.Open, b.Close))
		h := math.Max(1, p.yAt(math.Min(b.Open, b.Close))-top)
		dc.DrawRectangle(x-bw/2, top, bw, h)
		dc.Fill()
	}
}

// drawLine strokes values as a polyline; NaN entries break the line.
func drawLine(dc *gg.Context, p panel, values []float64, xAt func(int) float64) {
	dc.SetColor(smaColor)
	dc.SetLineWidth(1.5)
	open := false
	for i, v := range values {
		if math.IsNaN(v) {
			open = false
			continue
		}
		if open {
			dc.LineTo(xAt(i), p.yAt(v))
		} else {
			dc.MoveTo(xAt(i), p.yAt(v))
			open = true
		}
	}
	dc.Stroke()
}

// drawMarkers fills one circle per aligned point. Points are never joined.
func (r *Renderer) drawMarkers(dc *gg.Context, p panel, ov *model.AlignedOverlay, xAt func(int) float64) {
	dc.SetColor(withAlpha(r.marker, 0xb0))
	for i, pt := range ov.Points {
		if !pt.Price.Valid {
			continue
		}
		// Weight is a marker area, as in matplotlib scatter sizes.
		radius := math.Max(2, math.Sqrt(math.Max(pt.Weight, 0))/2)
		dc.DrawCircle(xAt(i), p.yAt(pt.Price.Float64), radius)
		dc.Fill()
	}
}

func (r *Renderer) drawVolume(dc *gg.Context, p panel, bars []model.Bar, slot float64, xAt func(int) float64) {
	bw := math.Max(1, slot*0.6)
	for i, b := range bars {
		c := r.down
		if b.Up() {
			c = r.up
		}
		dc.SetColor(withAlpha(c, 0x99))
		top := p.yAt(float64(b.Volume))
		dc.DrawRectangle(xAt(i)-bw/2, top, bw, p.bottom()-top)
		dc.Fill()
	}
}

func (r *Renderer) drawSizes(dc *gg.Context, p panel, ov *model.AlignedOverlay, slot float64, xAt func(int) float64) {
	bw := math.Max(1, slot*0.6)
	dc.SetColor(withAlpha(r.marker, 0x99))
	for i, pt := range ov.Points {
		if !pt.Size.Valid {
			continue
		}
		top := p.yAt(pt.Size.Float64)
		dc.DrawRectangle(xAt(i)-bw/2, top, bw, p.bottom()-top)
		dc.Fill()
	}
}

func drawTimeAxis(dc *gg.Context, p panel, bars []model.Bar, xAt func(int) float64) {
	layout := "15:04"
	if !sameDay(bars[0], bars[len(bars)-1]) {
		layout = "01-02 15:04"
	}
	step := len(bars) / 6
	if step < 1 {
		step = 1
	}
	dc.SetColor(ink)
	for i := 0; i < len(bars); i += step {
		x := xAt(i)
		dc.DrawLine(x, p.bottom(), x, p.bottom()+4)
		dc.Stroke()
		dc.DrawStringAnchored(bars[i].Time.Format(layout), x, p.bottom()+14, 0.5, 0.5)
	}
}

func (r *Renderer) drawTitles(dc *gg.Context, panels []panel) {
	l := r.Layout
	dc.SetColor(ink)
	if l.Title != "" {
		dc.DrawStringAnchored(l.Title, float64(l.Width)/2, marginTop/2, 0.5, 0.5)
	}
	if l.XLabel != "" {
		dc.DrawStringAnchored(l.XLabel, float64(l.Width)/2, float64(l.Height)-14, 0.5, 0.5)
	}
	for _, p := range panels {
		if p.label == "" {
			continue
		}
		x, y := 14.0, p.y+p.h/2
		dc.Push()
		dc.RotateAbout(gg.Radians(-90), x, y)
		dc.DrawStringAnchored(p.label, x, y, 0.5, 0.5)
		dc.Pop()
	}
}

func sameDay(a, b model.Bar) bool {
	ay, am, ad := a.Time.Date()
	by, bm, bd := b.Time.Date()
	return ay == by && am == bm && ad == bd
}

func formatValue(v, span float64) string {
	switch {
	case span >= 10000:
		return strconv.FormatFloat(v, 'f', 0, 64)
	case span >= 10:
		return strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
}
