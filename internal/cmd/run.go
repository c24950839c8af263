package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hakoenv/hako/internal/events"
	"github.com/hakoenv/hako/internal/executor"
	"github.com/hakoenv/hako/internal/model"
	"github.com/hakoenv/hako/internal/report"
	"github.com/hakoenv/hako/internal/resolve"
	"github.com/hakoenv/hako/internal/runner"
)

func CmdRun() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [-- posargs...]",
		Short: "Run the selected environments",
		Long:  "Resolve and execute each selected environment: install its dependencies best-effort, then run its commands in declared order. Arguments after -- substitute {posargs}.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			selector, _ := cmd.Flags().GetString("env")
			envs, err := selectEnvs(f, selector)
			if err != nil {
				return err
			}
			parallel, _ := cmd.Flags().GetInt("parallel")
			reportPath, _ := cmd.Flags().GetString("report")

			posArgs := args
			if at := cmd.ArgsLenAtDash(); at >= 0 {
				posArgs = args[at:]
			}

			bus := events.NewBus(100)
			defer bus.Close()
			printer := &report.Printer{W: cmd.OutOrStdout()}
			printer.Attach(bus)

			r := runner.New(resolve.New(f), executor.New(), bus)
			summary := r.Run(cmd.Context(), envs, runner.Options{
				Parallel: parallel,
				PosArgs:  posArgs,
			})

			printer.Summary(summary)
			if reportPath != "" {
				if err := report.Write(reportPath, summary); err != nil {
					fmt.Fprintf(os.Stderr, "write report: %v\n", err)
				}
			}

			return summaryError(summary)
		},
	}
	cmd.Flags().StringP("env", "e", "", "environment selector (comma list, {a,b} expressions)")
	cmd.Flags().IntP("parallel", "p", 1, "maximum environments running at once")
	cmd.Flags().String("report", "", "write a YAML run report to this file")
	return cmd
}

func summaryError(summary *model.RunSummary) error {
	switch code := summary.ExitCode(); code {
	case 0:
		return nil
	default:
		failed := summary.Failed()
		return &exitCodeError{code: code,
			err: fmt.Errorf("%d of %d environments did not pass", len(failed), len(summary.Envs))}
	}
}
