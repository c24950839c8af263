package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hakoenv/hako/internal/model"
	"github.com/hakoenv/hako/internal/resolve"
)

func CmdShow() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show -e ENV [-- posargs...]",
		Short: "Print the resolved run plan without executing",
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

			posArgs := args
			if at := cmd.ArgsLenAtDash(); at >= 0 {
				posArgs = args[at:]
			}

			r := resolve.New(f)
			for _, env := range envs {
				plan, err := r.Resolve(env, posArgs)
				if err != nil {
					return &exitCodeError{code: 2, err: err}
				}
				printPlan(cmd.OutOrStdout(), plan)
			}
			return nil
		},
	}
	cmd.Flags().StringP("env", "e", "", "environment selector (comma list, {a,b} expressions)")
	return cmd
}

func printPlan(w io.Writer, plan *model.RunPlan) {
	fmt.Fprintf(w, "[%s]\n", plan.EnvName)
	if plan.Skipped {
		fmt.Fprintf(w, "  skipped: %s\n", plan.SkipReason)
		return
	}
	fmt.Fprintf(w, "  workdir: %s\n", plan.WorkDir)
	if plan.SkipInstall {
		fmt.Fprintln(w, "  install: skipped")
	} else {
		for _, dep := range plan.Deps {
			fmt.Fprintf(w, "  install: %s %s\n", plan.Installer, dep)
		}
	}
	for _, c := range plan.Commands {
		marker := ""
		if c.Tolerated {
			marker = " (failure tolerated)"
		}
		fmt.Fprintf(w, "  command: %s%s\n", c.Line, marker)
	}
	for _, kv := range plan.Env {
		fmt.Fprintf(w, "  env: %s\n", kv)
	}
}
