package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"TradeChart/internal/recorder"
)

// FormatRunReport formats a finished run into a Telegram message.
func FormatRunReport(run *recorder.RunRecord) string {
	var b strings.Builder

	if run.Status == recorder.StatusOK {
		b.WriteString(fmt.Sprintf("📈 <b>%s chart published</b> | %s\n\n", html.EscapeString(run.Ticker), run.StartedAt.Format("2006-01-02 15:04")))
		b.WriteString(fmt.Sprintf("Range: %s .. %s\n", run.From, run.To))
		b.WriteString(fmt.Sprintf("Bars: %d\n", run.Bars))
		if run.OverlayPoints > 0 {
			b.WriteString(fmt.Sprintf("Unusual trades plotted: %d\n", run.OverlayPoints))
		}
		b.WriteString(fmt.Sprintf("Image: %s\n", html.EscapeString(run.ImagePath)))
	} else {
		b.WriteString(fmt.Sprintf("❌ <b>%s chart failed</b> | %s\n\n", html.EscapeString(run.Ticker), run.StartedAt.Format("2006-01-02 15:04")))
		b.WriteString(fmt.Sprintf("Kind: %s\n", run.ErrorKind))
		b.WriteString(fmt.Sprintf("Error: %s\n", html.EscapeString(run.Error)))
	}
	b.WriteString(fmt.Sprintf("Run: %s (%s)", run.ID, run.Duration.Round(time.Millisecond)))
	return b.String()
}

// FormatHistory lists recent runs, one line each.
func FormatHistory(runs []recorder.RunRecord) string {
	if len(runs) == 0 {
		return "No runs recorded yet."
	}
	var b strings.Builder
	for _, r := range runs {
		line := fmt.Sprintf("%s  %-6s  %-6s  %s..%s  bars=%d", r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Status, r.Ticker, r.From, r.To, r.Bars)
		if r.ErrorKind != "" {
			line += "  " + r.ErrorKind
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
