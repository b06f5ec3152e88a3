package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"TradeChart/internal/model"
	"TradeChart/internal/scheduler"
)

func newWatchCmd(load loader) *cobra.Command {
	var runNow bool
	var spec string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-render the chart on a cron schedule",
		Long: `watch re-renders the chart for the last lookback_days days on schedule.cron
(six fields, seconds first). With a Telegram bot configured, every run is
reported and the bot answers /chart, /last and /history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if spec == "" {
				spec = cfg.Schedule.Cron
			}
			col, err := newCollector(cfg)
			if err != nil {
				return err
			}
			rec := openRecorder(cfg)
			defer rec.Close()
			tn := newTelegram(cfg)

			// Context for graceful shutdown
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			request := func(ticker string, now time.Time) (model.FetchRequest, error) {
				return cfg.Request(ticker, "", "", now)
			}
			sched := scheduler.NewScheduler(ctx, newPipeline(cfg, col, rec, tn), request, rec)
			if err := sched.Register(spec); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if tn != nil {
				go tn.StartPolling(ctx, sched.HandleCommand)
				log.Println("[INFO] Telegram polling started")
			}

			if runNow || os.Getenv("RUN_ON_START") == "true" {
				log.Println("[INFO] rendering now")
				go sched.RunNow()
			}

			log.Println("[INFO] watching. Press Ctrl+C to stop.")
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			log.Println("[INFO] shutdown signal received, stopping...")
			cancel()
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "now", false, "render once immediately (same as RUN_ON_START=true)")
	cmd.Flags().StringVar(&spec, "cron", "", "override schedule.cron")
	return cmd
}
