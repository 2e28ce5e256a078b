package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				e := &env{out: cmd.OutOrStdout()}
				return e.encodeJSON(map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "compsig version %s\n", version)
			return nil
		},
	}
}
