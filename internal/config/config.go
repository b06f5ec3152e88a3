package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"TradeChart/internal/collector"
	"TradeChart/internal/model"
	"TradeChart/internal/normalizer"
	"TradeChart/internal/overlay"
	"TradeChart/internal/render"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider       string `yaml:"provider"` // polygon | polygon_sdk | yahoo
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		Ticker         string `yaml:"ticker"`
		Multiplier     int    `yaml:"multiplier"`
		Timespan       string `yaml:"timespan"`
		Adjusted       *bool  `yaml:"adjusted"`
		StartDate      string `yaml:"start_date"`
		EndDate        string `yaml:"end_date"`
		LookbackDays   int    `yaml:"lookback_days"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"data_source"`
	Proxy    string `yaml:"proxy"`
	Timezone string `yaml:"timezone"`
	Overlay  struct {
		Path      string  `yaml:"path"`
		Align     string  `yaml:"align"`
		MinWeight float64 `yaml:"min_weight"`
		MaxWeight float64 `yaml:"max_weight"`
		SizePanel *bool   `yaml:"size_panel"`
	} `yaml:"overlay"`
	Chart struct {
		Width        int    `yaml:"width"`
		Height       int    `yaml:"height"`
		Title        string `yaml:"title"`
		XLabel       string `yaml:"x_label"`
		YLabel       string `yaml:"y_label"`
		Volume       *bool  `yaml:"volume"`
		UpColor      string `yaml:"up_color"`
		DownColor    string `yaml:"down_color"`
		OverlayColor string `yaml:"overlay_color"`
		SMAPeriod    int    `yaml:"sma_period"`
	} `yaml:"chart"`
	Output struct {
		Dir          string `yaml:"dir"`
		ImageName    string `yaml:"image_name"`
		HTMLName     string `yaml:"html_name"`
		Timestamped  bool   `yaml:"timestamped"`
		SnapshotPath string `yaml:"snapshot_path"`
	} `yaml:"output"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error; defaults and environment still apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("POLYGON_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("CHART_TICKER"); v != "" {
		cfg.DataSource.Ticker = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func boolPtr(b bool) *bool { return &b }

func (c *Config) applyDefaults() {
	ds := &c.DataSource
	if ds.Provider == "" {
		ds.Provider = "polygon"
	}
	if ds.Ticker == "" {
		ds.Ticker = "AAPL"
	}
	ds.Ticker = strings.ToUpper(ds.Ticker)
	if ds.Multiplier == 0 {
		ds.Multiplier = 5
	}
	if ds.Timespan == "" {
		ds.Timespan = "minute"
	}
	if ds.Adjusted == nil {
		ds.Adjusted = boolPtr(true)
	}
	if ds.LookbackDays == 0 {
		ds.LookbackDays = 7
	}
	if ds.TimeoutSeconds == 0 {
		ds.TimeoutSeconds = 10
	}
	if c.Timezone == "" {
		c.Timezone = normalizer.ExchangeZone
	}

	if c.Overlay.Path == "" {
		c.Overlay.Path = "data/unusual_trades.csv"
	}
	if c.Overlay.Align == "" {
		c.Overlay.Align = string(overlay.Exact)
	}
	if c.Overlay.MinWeight == 0 && c.Overlay.MaxWeight == 0 {
		c.Overlay.MinWeight = overlay.DefaultMinWeight
		c.Overlay.MaxWeight = overlay.DefaultMaxWeight
	}
	if c.Overlay.SizePanel == nil {
		c.Overlay.SizePanel = boolPtr(true)
	}

	def := render.DefaultLayout()
	if c.Chart.Width == 0 {
		c.Chart.Width = def.Width
	}
	if c.Chart.Height == 0 {
		c.Chart.Height = def.Height
	}
	if c.Chart.YLabel == "" {
		c.Chart.YLabel = def.YLabel
	}
	if c.Chart.Volume == nil {
		c.Chart.Volume = boolPtr(def.Volume)
	}
	if c.Chart.UpColor == "" {
		c.Chart.UpColor = def.UpColor
	}
	if c.Chart.DownColor == "" {
		c.Chart.DownColor = def.DownColor
	}
	if c.Chart.OverlayColor == "" {
		c.Chart.OverlayColor = def.OverlayColor
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "out"
	}
	if c.Output.ImageName == "" {
		c.Output.ImageName = "latest_plot.png"
	}
	if c.Output.HTMLName == "" {
		c.Output.HTMLName = "index.html"
	}
	if c.Output.SnapshotPath == "" {
		c.Output.SnapshotPath = "data/stock_data.csv"
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 */5 9-16 * * 1-5"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/chart_runs.db"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	ds := c.DataSource
	switch ds.Provider {
	case "polygon", "polygon_sdk":
		if ds.APIKey == "" {
			return fmt.Errorf("data_source.api_key is required for provider %s (or set POLYGON_API_KEY)", ds.Provider)
		}
		if err := normalizer.PolygonFields.Validate(); err != nil {
			return err
		}
	case "yahoo":
		if err := normalizer.YahooFields.Validate(); err != nil {
			return err
		}
		if ds.Timespan == "second" {
			return fmt.Errorf("data_source.timespan second is not supported by provider yahoo")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not one of polygon, polygon_sdk, yahoo", ds.Provider)
	}
	if ds.Multiplier <= 0 {
		return fmt.Errorf("data_source.multiplier must be positive")
	}
	if _, ok := spanDurations[ds.Timespan]; !ok {
		return fmt.Errorf("data_source.timespan %q is not supported", ds.Timespan)
	}
	if ds.LookbackDays < 0 {
		return fmt.Errorf("data_source.lookback_days must not be negative")
	}
	for name, v := range map[string]string{"start_date": ds.StartDate, "end_date": ds.EndDate} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(model.DateLayout, v); err != nil {
			return fmt.Errorf("data_source.%s: %w", name, err)
		}
	}
	if _, err := normalizer.LoadLocation(c.Timezone); err != nil {
		return err
	}
	if _, err := overlay.ParsePolicy(c.Overlay.Align); err != nil {
		return fmt.Errorf("overlay.align: %w", err)
	}
	if c.Overlay.MinWeight < 0 || c.Overlay.MaxWeight < c.Overlay.MinWeight {
		return fmt.Errorf("overlay weights must satisfy 0 <= min_weight <= max_weight")
	}
	if err := c.Layout().Validate(); err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// Layout builds the renderer layout for ticker.
func (c *Config) Layout() render.Layout {
	return render.Layout{
		Width:        c.Chart.Width,
		Height:       c.Chart.Height,
		Title:        c.Chart.Title,
		XLabel:       c.Chart.XLabel,
		YLabel:       c.Chart.YLabel,
		Volume:       c.Chart.Volume == nil || *c.Chart.Volume,
		SizePanel:    c.Overlay.SizePanel == nil || *c.Overlay.SizePanel,
		UpColor:      c.Chart.UpColor,
		DownColor:    c.Chart.DownColor,
		OverlayColor: c.Chart.OverlayColor,
		SMAPeriod:    c.Chart.SMAPeriod,
	}
}

// Options returns the fetcher options derived from data_source and proxy.
func (c *Config) Options() collector.Options {
	return collector.Options{
		BaseURL:    c.DataSource.BaseURL,
		APIKey:     c.DataSource.APIKey,
		Proxy:      c.Proxy,
		Multiplier: c.DataSource.Multiplier,
		Timespan:   c.DataSource.Timespan,
		Adjusted:   c.DataSource.Adjusted == nil || *c.DataSource.Adjusted,
		Timeout:    time.Duration(c.DataSource.TimeoutSeconds) * time.Second,
	}
}

var spanDurations = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
}

// BarInterval is the duration of one bar, multiplier times timespan.
func (c *Config) BarInterval() time.Duration {
	return time.Duration(c.DataSource.Multiplier) * spanDurations[c.DataSource.Timespan]
}

// ChartTitle returns the configured title or "<TICKER> <n>-<Timespan> Candlestick Chart".
func (c *Config) ChartTitle(ticker string) string {
	if c.Chart.Title != "" {
		return c.Chart.Title
	}
	span := c.DataSource.Timespan
	if span != "" {
		span = strings.ToUpper(span[:1]) + span[1:]
	}
	return fmt.Sprintf("%s %d-%s Candlestick Chart", ticker, c.DataSource.Multiplier, span)
}

// Request resolves the fetch window. Explicit dates win; otherwise the last
// lookback_days calendar days ending today in the exchange zone are used.
func (c *Config) Request(ticker, from, to string, now time.Time) (model.FetchRequest, error) {
	loc, err := normalizer.LoadLocation(c.Timezone)
	if err != nil {
		return model.FetchRequest{}, err
	}
	if ticker == "" {
		ticker = c.DataSource.Ticker
	}
	if from == "" {
		from = c.DataSource.StartDate
	}
	if to == "" {
		to = c.DataSource.EndDate
	}

	today := now.In(loc)
	end := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	if to != "" {
		if end, err = time.ParseInLocation(model.DateLayout, to, loc); err != nil {
			return model.FetchRequest{}, fmt.Errorf("end date: %w", err)
		}
	}
	start := end.AddDate(0, 0, -c.DataSource.LookbackDays)
	if from != "" {
		if start, err = time.ParseInLocation(model.DateLayout, from, loc); err != nil {
			return model.FetchRequest{}, fmt.Errorf("start date: %w", err)
		}
	}
	if end.Before(start) {
		return model.FetchRequest{}, fmt.Errorf("end date %s is before start date %s",
			end.Format(model.DateLayout), start.Format(model.DateLayout))
	}
	return model.FetchRequest{Ticker: strings.ToUpper(ticker), From: start, To: end}, nil
}

// ImageName returns the output image filename, stamped with now when output.timestamped is set.
func (c *Config) ImageName(now time.Time) string {
	if !c.Output.Timestamped {
		return c.Output.ImageName
	}
	return "plot_" + now.Format("20060102_150405") + ".png"
}
