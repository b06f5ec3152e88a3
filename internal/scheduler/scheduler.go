package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"TradeChart/internal/model"
	"TradeChart/internal/notifier"
	"TradeChart/internal/pipeline"
	"TradeChart/internal/recorder"
)

// RequestFunc resolves the fetch window for a run starting at now.
// An empty ticker means the configured default.
type RequestFunc func(ticker string, now time.Time) (model.FetchRequest, error)

// Scheduler re-renders the chart on a cron schedule and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Pipeline *pipeline.Pipeline
	Request  RequestFunc
	Recorder recorder.Recorder
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler. Cron specs carry a seconds field.
func NewScheduler(ctx context.Context, p *pipeline.Pipeline, request RequestFunc, rec recorder.Recorder) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Pipeline: p,
		Request:  request,
		Recorder: rec,
		Ctx:      ctx,
	}
}

// Register schedules the chart task on spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.renderTask("") }); err != nil {
		return fmt.Errorf("register chart task %q: %w", spec, err)
	}
	log.Printf("[INFO] chart task scheduled: %s", spec)
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow renders immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() error {
	return s.renderTask("")
}

func (s *Scheduler) renderTask(ticker string) error {
	req, err := s.Request(ticker, time.Now())
	if err != nil {
		log.Printf("[ERROR] chart task: %v", err)
		return err
	}
	// Failures are already logged, recorded and reported by the pipeline.
	_, err = s.Pipeline.Run(s.Ctx, req)
	return err
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch fields[0] {
	case "/chart":
		ticker := ""
		if len(fields) > 1 {
			ticker = strings.ToUpper(fields[1])
		}
		req, err := s.Request(ticker, time.Now())
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		// the pipeline sends its own report
		_, _ = s.Pipeline.Run(s.Ctx, req)
		return ""
	case "/last":
		runs, err := s.Recorder.RecentRuns(1)
		if err != nil {
			return fmt.Sprintf("❌ history unavailable: %v", err)
		}
		if len(runs) == 0 {
			return notifier.FormatHistory(nil)
		}
		return notifier.FormatRunReport(&runs[0])
	case "/history":
		runs, err := s.Recorder.RecentRuns(10)
		if err != nil {
			return fmt.Sprintf("❌ history unavailable: %v", err)
		}
		return notifier.FormatHistory(runs)
	default:
		return helpText
	}
}

const helpText = "Available commands:\n• /chart [TICKER] render now\n• /last latest run\n• /history recent runs"
