package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeChart/internal/collector"
	"TradeChart/internal/model"
	"TradeChart/internal/normalizer"
	"TradeChart/internal/overlay"
	"TradeChart/internal/recorder"
	"TradeChart/internal/render"
)

type memRecorder struct{ runs []recorder.RunRecord }

func (m *memRecorder) RecordRun(r *recorder.RunRecord) error {
	m.runs = append(m.runs, *r)
	return nil
}
func (m *memRecorder) RecentRuns(int) ([]recorder.RunRecord, error) { return m.runs, nil }
func (m *memRecorder) Close() error                                 { return nil }

type memNotifier struct{ sent []string }

func (m *memNotifier) Send(_ context.Context, text string) error {
	m.sent = append(m.sent, text)
	return nil
}

var session = time.Date(2025, 1, 21, 9, 30, 0, 0, mustNYC())

func mustNYC() *time.Location {
	loc, err := normalizer.LoadLocation(normalizer.ExchangeZone)
	if err != nil {
		panic(err)
	}
	return loc
}

func newPipeline(t *testing.T, f collector.Fetcher) (*Pipeline, *memRecorder, *memNotifier) {
	t.Helper()
	dir := t.TempDir()
	rec, nt := &memRecorder{}, &memNotifier{}
	layout := render.DefaultLayout()
	layout.Width, layout.Height = 600, 400
	return &Pipeline{
		Collector:    collector.NewCollector(f, mustNYC()),
		Layout:       layout,
		OverlayPath:  filepath.Join(dir, "data", "unusual_trades.csv"),
		OutputDir:    filepath.Join(dir, "out"),
		HTMLName:     "index.html",
		SnapshotPath: filepath.Join(dir, "data", "stock_data.csv"),
		ImageName:    func(time.Time) string { return "latest_plot.png" },
		Title:        func(ticker string) string { return ticker + " 5-Minute Candlestick Chart" },
		Recorder:     rec,
		Notifier:     nt,
		Now:          func() time.Time { return session.Add(8 * time.Hour) },
	}, rec, nt
}

func request() model.FetchRequest {
	day := time.Date(2025, 1, 21, 0, 0, 0, 0, mustNYC())
	return model.FetchRequest{Ticker: "AAPL", From: day, To: day}
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			out = append(out, path)
		}
		return nil
	})
	return out
}

func TestRun_ThreeBarsPublishesOneImageAndPage(t *testing.T) {
	f := &collector.MockFetcher{Raw: collector.GenerateMockBars(session, 5*time.Minute, 150, 3)}
	p, rec, nt := newPipeline(t, f)

	res, err := p.Run(context.Background(), request())
	require.NoError(t, err)

	outputs := listFiles(t, p.OutputDir)
	require.Len(t, outputs, 2)
	assert.FileExists(t, res.ImagePath)
	assert.FileExists(t, res.HTMLPath)
	assert.Equal(t, ".png", filepath.Ext(res.ImagePath))

	page, err := os.ReadFile(res.HTMLPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), `src="latest_plot.png?v=`)
	assert.True(t, strings.HasPrefix(res.ImageSrc, "latest_plot.png?v="))

	assert.FileExists(t, p.SnapshotPath)
	assert.Equal(t, 3, res.Series.Len())
	assert.Nil(t, res.Overlay)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, recorder.StatusOK, rec.runs[0].Status)
	assert.Equal(t, 3, rec.runs[0].Bars)
	assert.Equal(t, res.ImagePath, rec.runs[0].ImagePath)
	require.Len(t, nt.sent, 1)
	assert.Contains(t, nt.sent[0], "chart published")
}

func TestRun_EmptyResultWritesNothing(t *testing.T) {
	f := &collector.MockFetcher{}
	p, rec, nt := newPipeline(t, f)

	res, err := p.Run(context.Background(), request())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, collector.ErrEmptyResult)

	assert.Empty(t, listFiles(t, p.OutputDir))
	assert.NoFileExists(t, p.SnapshotPath)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, recorder.StatusFailed, rec.runs[0].Status)
	assert.Equal(t, "EmptyResult", rec.runs[0].ErrorKind)
	require.Len(t, nt.sent, 1)
	assert.Contains(t, nt.sent[0], "chart failed")
}

func TestRun_NetworkFailure(t *testing.T) {
	f := &collector.MockFetcher{Err: errors.Join(collector.ErrNetworkFailure, context.DeadlineExceeded)}
	p, rec, _ := newPipeline(t, f)

	_, err := p.Run(context.Background(), request())
	require.ErrorIs(t, err, collector.ErrNetworkFailure)
	assert.Empty(t, listFiles(t, p.OutputDir))
	assert.Equal(t, "NetworkFailure", rec.runs[0].ErrorKind)
}

func TestRun_OverlayOnMiddleBar(t *testing.T) {
	f := &collector.MockFetcher{Raw: collector.GenerateMockBars(session, 5*time.Minute, 150, 3)}
	p, rec, _ := newPipeline(t, f)
	require.NoError(t, os.MkdirAll(filepath.Dir(p.OverlayPath), 0o755))
	require.NoError(t, os.WriteFile(p.OverlayPath, []byte("Time,Price,Premium,Size\n2025-01-21 09:35,150.4,$2.5M,400\n"), 0o644))

	res, err := p.Run(context.Background(), request())
	require.NoError(t, err)
	require.NotNil(t, res.Overlay)
	require.Len(t, res.Overlay.Points, 3)
	assert.False(t, res.Overlay.Points[0].Price.Valid)
	assert.True(t, res.Overlay.Points[1].Price.Valid)
	assert.InDelta(t, 150.4, res.Overlay.Points[1].Price.Float64, 1e-9)
	assert.Equal(t, overlay.DefaultMinWeight, res.Overlay.Points[1].Weight)
	assert.False(t, res.Overlay.Points[2].Price.Valid)
	assert.Equal(t, 1, rec.runs[0].OverlayPoints)
}

func TestRun_DegenerateOverlayIsDropped(t *testing.T) {
	f := &collector.MockFetcher{Raw: collector.GenerateMockBars(session, 5*time.Minute, 150, 3)}
	p, _, _ := newPipeline(t, f)
	require.NoError(t, os.MkdirAll(filepath.Dir(p.OverlayPath), 0o755))
	require.NoError(t, os.WriteFile(p.OverlayPath, []byte("When,What\nx,y\n"), 0o644))

	res, err := p.Run(context.Background(), request())
	require.NoError(t, err)
	assert.Nil(t, res.Overlay)
	assert.FileExists(t, res.ImagePath)
}

func TestRun_OverlayOutsideSeries(t *testing.T) {
	f := &collector.MockFetcher{Raw: collector.GenerateMockBars(session, 5*time.Minute, 150, 3)}
	p, _, _ := newPipeline(t, f)
	require.NoError(t, os.MkdirAll(filepath.Dir(p.OverlayPath), 0o755))
	require.NoError(t, os.WriteFile(p.OverlayPath, []byte("Time,Price\n2025-01-22 09:35,150\n"), 0o644))

	res, err := p.Run(context.Background(), request())
	require.NoError(t, err)
	assert.Nil(t, res.Overlay)
}

func TestRun_NilLocationWithOverlay(t *testing.T) {
	start := time.Date(2025, 1, 21, 14, 30, 0, 0, time.UTC)
	f := &collector.MockFetcher{Raw: collector.GenerateMockBars(start, 5*time.Minute, 150, 3)}
	p, _, _ := newPipeline(t, f)
	p.Collector = collector.NewCollector(f, nil)
	require.NoError(t, os.MkdirAll(filepath.Dir(p.OverlayPath), 0o755))
	require.NoError(t, os.WriteFile(p.OverlayPath, []byte("Time,Price\n2025-01-21 14:35,150\n"), 0o644))

	res, err := p.Run(context.Background(), request())
	require.NoError(t, err)
	require.NotNil(t, res.Overlay)
	assert.True(t, res.Overlay.Points[1].Price.Valid)
}
