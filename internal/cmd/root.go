// Package cmd wires the hako command-line interface.
package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/hakoenv/hako/internal/config"
)

const version = "0.3.0"

// exitCodeError carries the process exit code for the outer main.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

// ExitCode extracts the intended process exit code from an error returned
// by Execute: 2 for configuration errors, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if coded, ok := err.(*exitCodeError); ok {
		return coded.code
	}
	return 1
}

func CmdRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "hako",
		Short:         "Factor-conditional environment runner",
		Long:          "hako resolves named environments from hako.ini and runs their dependency and command lists, applying factor and platform guards.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", config.DefaultFileName, "configuration file")

	root.AddCommand(
		CmdRun(),
		CmdList(),
		CmdShow(),
		CmdWatch(),
		CmdVersion(),
	)
	return root
}

// loadConfig loads the configured file and logs non-fatal warnings.
// Load failures are configuration errors (exit 2).
func loadConfig(cmd *cobra.Command) (*config.File, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	f, err := config.Load(path)
	if err != nil {
		return nil, &exitCodeError{code: 2, err: err}
	}
	for _, w := range f.Warnings {
		log.Printf("config: warning: %s", w)
	}
	return f, nil
}

// selectEnvs expands the -e selector (comma lists and generative brace
// expressions) or falls back to the config envlist.
func selectEnvs(f *config.File, selector string) ([]string, error) {
	if selector == "" {
		if len(f.EnvList) == 0 {
			return nil, &exitCodeError{code: 2,
				err: fmt.Errorf("no environments selected: envlist is empty and no -e given")}
		}
		return f.EnvList, nil
	}
	var envs []string
	for _, item := range config.SplitList(selector) {
		envs = append(envs, config.ExpandBraces(item)...)
	}
	return envs, nil
}
