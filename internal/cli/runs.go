package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/entrypoint"
	"github.com/abdnh/anki-copycat-importer/internal/services"
)

func newRunsCommand(cfg *config.Config) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent import runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := entrypoint.NewApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			runs, err := app.Imports.RecentRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No imports yet")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRuns(runs))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}

func renderRuns(runs []services.Status) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Started", "Source", "Status", "Cards", "Warnings", "Error", "ID"})
	for _, r := range runs {
		tw.AppendRow(table.Row{
			r.CreatedAt.Local().Format(time.DateTime),
			r.Source,
			string(r.Status),
			strconv.Itoa(r.Cards),
			strconv.Itoa(len(r.Warnings)),
			text.Trim(r.Error, 60),
			r.ID,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	return tw.Render()
}
