// Package pipeline runs one chart generation: fetch, normalize, snapshot,
// overlay alignment, render and publish, then records and reports the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"TradeChart/internal/collector"
	"TradeChart/internal/id"
	"TradeChart/internal/model"
	"TradeChart/internal/notifier"
	"TradeChart/internal/overlay"
	"TradeChart/internal/publisher"
	"TradeChart/internal/recorder"
	"TradeChart/internal/render"
	"TradeChart/internal/snapshot"
)

// Pipeline holds everything a run needs. Runs are serialized.
type Pipeline struct {
	Collector *collector.Collector
	Layout    render.Layout

	OverlayPath string
	Aligner     overlay.Aligner
	MinWeight   float64
	MaxWeight   float64

	OutputDir string
	HTMLName  string
	// SnapshotPath receives the normalized series as CSV; empty disables it.
	SnapshotPath string
	ImageName    func(time.Time) string
	Title        func(ticker string) string

	Recorder recorder.Recorder
	Notifier notifier.Notifier
	Now      func() time.Time

	mu sync.Mutex
}

// Result describes a successful run.
type Result struct {
	Series    *model.Series
	Overlay   *model.AlignedOverlay
	ImagePath string
	HTMLPath  string
	ImageSrc  string
	Run       *recorder.RunRecord
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Run executes one pipeline pass for req. On a fetch failure no output file
// is written and the error wraps one of the collector sentinels.
func (p *Pipeline) Run(ctx context.Context, req model.FetchRequest) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	started := p.now()
	run := &recorder.RunRecord{
		ID:        id.New(started),
		StartedAt: started,
		Ticker:    req.Ticker,
		From:      req.From.Format(model.DateLayout),
		To:        req.To.Format(model.DateLayout),
		Provider:  p.Collector.Fetcher.Name(),
	}
	log.Printf("[INFO] run %s: %s %s..%s via %s", run.ID, run.Ticker, run.From, run.To, run.Provider)

	res, err := p.execute(ctx, req, run)
	run.Duration = p.now().Sub(started)
	if err != nil {
		run.Status = recorder.StatusFailed
		run.ErrorKind = collector.Kind(err)
		run.Error = err.Error()
		log.Printf("[ERROR] run %s failed (%s): %v", run.ID, run.ErrorKind, err)
	} else {
		run.Status = recorder.StatusOK
		res.Run = run
	}
	p.finish(ctx, run)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) execute(ctx context.Context, req model.FetchRequest, run *recorder.RunRecord) (*Result, error) {
	series, err := p.Collector.Collect(ctx, req)
	if err != nil {
		return nil, err
	}
	run.Bars = series.Len()

	if p.SnapshotPath != "" {
		if err := snapshot.WriteFile(p.SnapshotPath, series); err != nil {
			log.Printf("[WARN] snapshot: %v", err)
		} else {
			log.Printf("[INFO] snapshot written: %s", p.SnapshotPath)
		}
	}

	ov := p.alignOverlay(series)
	run.OverlayPoints = ov.Drawable()

	layout := p.Layout
	if layout.Title == "" && p.Title != nil {
		layout.Title = p.Title(series.Ticker)
	}
	r, err := render.NewRenderer(layout)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}

	imageName := "latest_plot.png"
	if p.ImageName != nil {
		imageName = p.ImageName(run.StartedAt)
	}
	htmlName := p.HTMLName
	if htmlName == "" {
		htmlName = "index.html"
	}
	imagePath := filepath.Join(p.OutputDir, imageName)
	htmlPath := filepath.Join(p.OutputDir, htmlName)

	if err := r.Render(series, ov, imagePath); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	run.ImagePath = imagePath

	pub := publisher.New(layout.Title)
	pub.Now = p.now
	src, err := pub.Publish(imagePath, htmlPath)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	run.HTMLPath = htmlPath
	log.Printf("[INFO] published %s -> %s", htmlPath, src)

	return &Result{
		Series:    series,
		Overlay:   ov,
		ImagePath: imagePath,
		HTMLPath:  htmlPath,
		ImageSrc:  src,
	}, nil
}

// alignOverlay never fails the run: unusable overlays are logged and dropped.
func (p *Pipeline) alignOverlay(series *model.Series) *model.AlignedOverlay {
	events, err := overlay.Load(p.OverlayPath, p.Collector.Location)
	if err != nil {
		if errors.Is(err, overlay.ErrDegenerate) {
			log.Printf("[WARN] overlay %s ignored: %v", p.OverlayPath, err)
		} else {
			log.Printf("[WARN] overlay %s unreadable: %v", p.OverlayPath, err)
		}
		return nil
	}
	if len(events) == 0 {
		return nil
	}

	minW, maxW := p.MinWeight, p.MaxWeight
	if minW == 0 && maxW == 0 {
		minW, maxW = overlay.DefaultMinWeight, overlay.DefaultMaxWeight
	}
	overlay.ScaleWeights(events, minW, maxW)
	ov := p.Aligner.Align(series, events)
	if ov.Drawable() == 0 {
		log.Printf("[WARN] overlay: none of %d events fall on a bar of %s", len(events), series.Ticker)
		return nil
	}
	log.Printf("[INFO] overlay: %d of %d events aligned (%s)", ov.Drawable(), len(events), p.Aligner.Policy)
	return ov
}

func (p *Pipeline) finish(ctx context.Context, run *recorder.RunRecord) {
	if p.Recorder != nil {
		if err := p.Recorder.RecordRun(run); err != nil {
			log.Printf("[ERROR] record run: %v", err)
		}
	}
	if p.Notifier != nil {
		if err := p.Notifier.Send(ctx, notifier.FormatRunReport(run)); err != nil {
			log.Printf("[WARN] notify: %v", err)
		}
	}
}
