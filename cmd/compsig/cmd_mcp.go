package main

import (
	"fmt"

	"github.com/nvandessel/compsig/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve compsig tools over MCP (stdio)",
		Long: `Start an MCP server on stdin/stdout exposing:

  compsig_validate  validate an experiment file under the root
  compsig_results   descriptive statistics of indexed runs
  compsig_classify  score one trial's saved Sender2 policy

All paths are confined to the output root.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			server, err := mcp.NewServer(&mcp.Config{
				Name:      "compsig",
				Version:   version,
				Root:      e.root,
				Threshold: e.settings.Classifier.Threshold,
				Trace:     e.trace,
			})
			if err != nil {
				return fmt.Errorf("failed to start MCP server: %w", err)
			}
			e.logger.Info("mcp server starting", "root", e.root)
			return server.Run(cmd.Context())
		},
	}
}
