package cmd

import (
	"fmt"

	"github.com/luxfi/explorer-init/pkg/application"
	"github.com/luxfi/explorer-init/pkg/database"
	"github.com/luxfi/explorer-init/pkg/explorer"
	"github.com/luxfi/explorer-init/pkg/exporter"
	"github.com/luxfi/explorer-init/pkg/metrics"
	"github.com/spf13/cobra"
)

// NewExportCmd creates the export command
func NewExportCmd(app *application.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [host] [port]",
		Short: "Export verified contracts to the export directory",
		Long: `Dump schema_migrations, contract_methods and every verified contract with its
label, additional sources, verification status and decompilation into JSON files.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout := explorer.Layout{Dir: app.ExportDir()}

			var sum exporter.Summary
			err := runWithDatabase(cmd.Context(), app, args, func(db database.Conn, rec *metrics.Recorder) error {
				var err error
				sum, err = exporter.New(app, db, rec).Export(cmd.Context(), layout)
				return err
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "successfully exported %s\n", sum)
			return nil
		},
	}

	return cmd
}
