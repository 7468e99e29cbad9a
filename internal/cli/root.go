// Package cli implements the command line of the importer.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/httpclient"
	"github.com/abdnh/anki-copycat-importer/internal/logutil"
)

// BuildInfo is set at build time.
type BuildInfo struct {
	Version string
	Commit  string
}

// NewRootCommand returns the command tree. Persistent flags override the
// values loaded into cfg.
func NewRootCommand(cfg *config.Config, info BuildInfo) *cobra.Command {
	if cfg.Importers.UserAgent == "" {
		cfg.Importers.UserAgent = httpclient.UserAgent(info.Version)
	}
	root := &cobra.Command{
		Use:           "anki-copycat-importer",
		Short:         "Import flashcards from AnkiApp, Noji and AnkiPro",
		Version:       info.Version + " (" + info.Commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logutil.Init(logutil.Options{
				Level:   cfg.Log.Level,
				File:    cfg.Log.File,
				Console: cfg.Log.Console,
			})
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.Collection.Path, "collection", cfg.Collection.Path, "path of the target collection")
	flags.StringVar(&cfg.Collection.MediaDir, "media-dir", cfg.Collection.MediaDir, "media folder of the target collection")
	flags.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level (debug, info, warn, error)")
	flags.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "also write JSON logs to this file")

	root.AddCommand(
		newImportCommand(cfg),
		newServeCommand(cfg, info),
		newRunsCommand(cfg),
		newKeygenCommand(),
		newTokenCommand(),
	)
	return root
}
