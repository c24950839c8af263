package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hakoenv/hako/internal/report"
)

func CmdList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List declared environments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			report.PrintEnvList(cmd.OutOrStdout(), f)
			return nil
		},
	}
}
