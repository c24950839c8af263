package cmd

import (
	"context"
	"errors"
	"log"

	"github.com/spf13/cobra"

	"github.com/hakoenv/hako/internal/events"
	"github.com/hakoenv/hako/internal/executor"
	"github.com/hakoenv/hako/internal/report"
	"github.com/hakoenv/hako/internal/resolve"
	"github.com/hakoenv/hako/internal/runner"
	"github.com/hakoenv/hako/internal/watch"
)

func CmdWatch() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run environments whenever the configuration changes",
		Long:  "Run the selected environments, then keep watching the configuration file and re-run on every change. Watch mode reports failures but never exits because of them.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			selector, _ := cmd.Flags().GetString("env")
			parallel, _ := cmd.Flags().GetInt("parallel")

			runOnce := func(ctx context.Context) {
				f, err := loadConfig(cmd)
				if err != nil {
					log.Printf("watch: %v", err)
					return
				}
				envs, err := selectEnvs(f, selector)
				if err != nil {
					log.Printf("watch: %v", err)
					return
				}

				bus := events.NewBus(100)
				defer bus.Close()
				printer := &report.Printer{W: cmd.OutOrStdout()}
				printer.Attach(bus)

				r := runner.New(resolve.New(f), executor.New(), bus)
				summary := r.Run(ctx, envs, runner.Options{Parallel: parallel})
				printer.Summary(summary)
			}

			ctx := cmd.Context()
			runOnce(ctx)

			w := &watch.Watcher{
				Path:     path,
				OnChange: func() { runOnce(ctx) },
			}
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringP("env", "e", "", "environment selector (comma list, {a,b} expressions)")
	cmd.Flags().IntP("parallel", "p", 1, "maximum environments running at once")
	return cmd
}
