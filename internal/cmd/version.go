package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func CmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the binary version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hako %s\n", version)
		},
	}
}
