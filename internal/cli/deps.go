package cli

import (
	"fmt"
	"log"
	"time"

	"TradeChart/internal/collector"
	"TradeChart/internal/config"
	"TradeChart/internal/normalizer"
	"TradeChart/internal/notifier"
	"TradeChart/internal/overlay"
	"TradeChart/internal/pipeline"
	"TradeChart/internal/recorder"
)

type loader func() (*config.Config, error)

func newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	opts := cfg.Options()
	switch cfg.DataSource.Provider {
	case "polygon":
		return collector.NewPolygonFetcher(opts), nil
	case "polygon_sdk":
		return collector.NewPolygonSDKFetcher(opts), nil
	case "yahoo":
		return collector.NewYahooFetcher(opts), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.DataSource.Provider)
}

func newCollector(cfg *config.Config) (*collector.Collector, error) {
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	loc, err := normalizer.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] data source: %s (%s)", fetcher.Name(), loc)
	return collector.NewCollector(fetcher, loc), nil
}

// openRecorder falls back to a no-op recorder when SQLite is unavailable.
func openRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}

// newTelegram returns nil when no bot is configured.
func newTelegram(cfg *config.Config) *notifier.TelegramNotifier {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
		return nil
	}
	return notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
}

func newPipeline(cfg *config.Config, col *collector.Collector, rec recorder.Recorder, tn *notifier.TelegramNotifier) *pipeline.Pipeline {
	policy, _ := overlay.ParsePolicy(cfg.Overlay.Align) // checked by Validate
	var nt notifier.Notifier = notifier.NoopNotifier{}
	if tn != nil {
		nt = tn
	}
	return &pipeline.Pipeline{
		Collector:    col,
		Layout:       cfg.Layout(),
		OverlayPath:  cfg.Overlay.Path,
		Aligner:      overlay.Aligner{Policy: policy, Interval: cfg.BarInterval()},
		MinWeight:    cfg.Overlay.MinWeight,
		MaxWeight:    cfg.Overlay.MaxWeight,
		OutputDir:    cfg.Output.Dir,
		HTMLName:     cfg.Output.HTMLName,
		SnapshotPath: cfg.Output.SnapshotPath,
		ImageName:    cfg.ImageName,
		Title:        cfg.ChartTitle,
		Recorder:     rec,
		Notifier:     nt,
		Now:          time.Now,
	}
}
