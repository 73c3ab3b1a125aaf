package cmd

import (
	"fmt"

	"github.com/luxfi/explorer-init/pkg/application"
	"github.com/luxfi/explorer-init/pkg/database"
	"github.com/luxfi/explorer-init/pkg/explorer"
	"github.com/luxfi/explorer-init/pkg/importer"
	"github.com/luxfi/explorer-init/pkg/metrics"
	"github.com/spf13/cobra"
)

// NewImportCmd creates the import command
func NewImportCmd(app *application.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [host] [port]",
		Short: "Import an export directory into the explorer database",
		Long: `Upsert migrations, methods, addresses, names, contracts, verification status
and decompiled sources from the export directory, then replace additional sources.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout := explorer.Layout{Dir: app.ExportDir()}

			var sum importer.Summary
			err := runWithDatabase(cmd.Context(), app, args, func(db database.Conn, rec *metrics.Recorder) error {
				var err error
				sum, err = importer.New(app, db, rec).Import(cmd.Context(), layout)
				return err
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "successfully imported %s\n", sum)
			return nil
		},
	}

	return cmd
}
