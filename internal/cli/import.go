package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/spf13/cobra"

	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/entities"
	"github.com/abdnh/anki-copycat-importer/internal/entrypoint"
	"github.com/abdnh/anki-copycat-importer/internal/importers"
	"github.com/abdnh/anki-copycat-importer/internal/logutil"
	"github.com/abdnh/anki-copycat-importer/internal/services"
)

func newImportCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import cards into the collection",
	}
	cmd.AddCommand(
		newImportAnkiAppCommand(cfg),
		newImportAlgoAppCommand(cfg),
		newImportTokenCommand(cfg, config.SourceNoji, "Import the decks of a Noji account"),
		newImportTokenCommand(cfg, config.SourceAnkiPro, "Import the decks of an AnkiPro account"),
	)
	return cmd
}

func newImportAnkiAppCommand(cfg *config.Config) *cobra.Command {
	var (
		dataDirs      []string
		dbs           []string
		zips          []string
		noRemoteMedia bool
	)
	cmd := &cobra.Command{
		Use:   "ankiapp",
		Short: "Import a local AnkiApp data folder, database or XML export",
		Long: "Import a local AnkiApp data folder, database or XML export.\n" +
			"Without inputs the AnkiApp data folder of the current user is imported.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := services.Request{Source: config.SourceAnkiApp}
			req.Paths = appendPaths(req.Paths, importers.DataDir, dataDirs)
			req.Paths = appendPaths(req.Paths, importers.DBPath, dbs)
			req.Paths = appendPaths(req.Paths, importers.XMLZip, zips)
			if cmd.Flags().Changed("no-remote-media") {
				remote := !noRemoteMedia
				req.RemoteMedia = &remote
			}
			return runImport(cmd, cfg, req)
		},
	}
	cmd.Flags().StringArrayVar(&dataDirs, "data-dir", nil, "AnkiApp data folder (repeatable)")
	cmd.Flags().StringArrayVar(&dbs, "db", nil, "AnkiApp database file (repeatable)")
	cmd.Flags().StringArrayVar(&zips, "zip", nil, "AnkiApp XML export (repeatable)")
	cmd.Flags().BoolVar(&noRemoteMedia, "no-remote-media", false, "do not download media missing from the local files")
	return cmd
}

func appendPaths(dst []services.PathRequest, t importers.PathType, paths []string) []services.PathRequest {
	for _, p := range paths {
		dst = append(dst, services.PathRequest{Path: p, Type: t.String()})
	}
	return dst
}

func newImportAlgoAppCommand(cfg *config.Config) *cobra.Command {
	req := services.Request{Source: config.SourceAlgoApp}
	var noRemoteMedia bool
	cmd := &cobra.Command{
		Use:   "algoapp",
		Short: "Import the decks of an AnkiApp online account",
		Long: "Import the decks of an AnkiApp online account.\n" +
			"Credentials not given as flags are taken from the saved settings.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("no-remote-media") {
				remote := !noRemoteMedia
				req.RemoteMedia = &remote
			}
			return runImport(cmd, cfg, req)
		},
	}
	cmd.Flags().StringVar(&req.ClientID, "client-id", "", "AnkiApp client ID")
	cmd.Flags().StringVar(&req.ClientToken, "client-token", "", "AnkiApp client token")
	cmd.Flags().StringVar(&req.ClientVersion, "client-version", "", "AnkiApp client version")
	cmd.Flags().BoolVar(&noRemoteMedia, "no-remote-media", false, "leave referenced media undownloaded")
	return cmd
}

func newImportTokenCommand(cfg *config.Config, source config.Source, short string) *cobra.Command {
	req := services.Request{Source: source}
	var noDownload bool
	cmd := &cobra.Command{
		Use:   string(source),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("no-download-media") {
				download := !noDownload
				req.DownloadMedia = &download
			}
			return runImport(cmd, cfg, req)
		},
	}
	cmd.Flags().StringVar(&req.Token, "token", "", "access token (defaults to the saved one)")
	cmd.Flags().BoolVar(&noDownload, "no-download-media", false, "do not download attachments")
	return cmd
}

// runImport runs req in the foreground. The first interrupt requests
// cancellation, which takes effect at the next step of the importer.
func runImport(cmd *cobra.Command, cfg *config.Config, req services.Request) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := entrypoint.NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	progress := newProgressReporter(cmd.ErrOrStderr(), logutil.GetLogger(ctx))
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		progress.RequestCancel()
	}()

	res, err := app.Imports.Execute(ctx, req, progress)
	progress.Finish()
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res)
}

func printResult(w io.Writer, res *services.Result) error {
	switch res.Status {
	case entities.RunStatusCanceled:
		fmt.Fprintln(w, "Canceled")
		return nil
	case entities.RunStatusFailed:
		return res.Err
	}
	fmt.Fprintf(w, "Imported %d cards.\n", res.Cards)
	if len(res.Warnings) > 0 {
		fmt.Fprintln(w, "The following issues were found:")
		lw := list.NewWriter()
		lw.SetStyle(list.StyleBulletCircle)
		for _, warning := range res.Warnings {
			lw.AppendItem(warning)
		}
		fmt.Fprintln(w, lw.Render())
	}
	return nil
}
