package cli

import (
	"github.com/spf13/cobra"

	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/entrypoint"
)

func newServeCommand(cfg *config.Config, info BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return entrypoint.Run(cmd.Context(), cfg, info.Version)
		},
	}
	cmd.Flags().StringVar(&cfg.HTTP.Host, "host", cfg.HTTP.Host, "address to listen on")
	cmd.Flags().Int32Var(&cfg.HTTP.Port, "port", cfg.HTTP.Port, "port to listen on")
	cmd.Flags().BoolVar(&cfg.Tasks.Enabled, "tasks", cfg.Tasks.Enabled, "run imports and maintenance on the task queue")
	return cmd
}
