package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newRenderCmd(load loader) *cobra.Command {
	var ticker, from, to string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Fetch bars once and publish the chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			req, err := cfg.Request(ticker, from, to, time.Now())
			if err != nil {
				return err
			}
			col, err := newCollector(cfg)
			if err != nil {
				return err
			}
			rec := openRecorder(cfg)
			defer rec.Close()

			p := newPipeline(cfg, col, rec, newTelegram(cfg))
			res, err := p.Run(context.Background(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "image: %s\npage:  %s\n", res.ImagePath, res.HTMLPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&ticker, "ticker", "t", "", "ticker symbol (default data_source.ticker)")
	cmd.Flags().StringVar(&from, "from", "", "start date YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "end date YYYY-MM-DD")
	return cmd
}
