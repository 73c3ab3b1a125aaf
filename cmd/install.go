package cmd

import (
	"fmt"

	"github.com/luxfi/explorer-init/pkg/application"
	"github.com/luxfi/explorer-init/pkg/core"
	"github.com/luxfi/explorer-init/pkg/database"
	"github.com/luxfi/explorer-init/pkg/metrics"
	"github.com/luxfi/explorer-init/pkg/seed"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewInstallCmd creates the install command
func NewInstallCmd(app *application.App) *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:   "install [host] [port]",
		Short: "Install the precompiled contracts and their method selectors",
		Long: `Register every catalog precompile as a verified contract, using the .abi and
.txt artifacts in the data directory, and record one contract_methods row per
ABI function keyed by its 4-byte selector.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := selectEntries(only)
			if err != nil {
				return err
			}

			var sum seed.Summary
			err = runWithDatabase(cmd.Context(), app, args, func(db database.Conn, rec *metrics.Recorder) error {
				inst := seed.New(app, db, rec, app.DataDir())
				inst.CoinBalances = app.Config.GetBool("coin-balances")

				var err error
				sum, err = inst.Install(cmd.Context(), entries)
				return err
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "successfully installed %d contracts with %d methods\n", sum.Contracts, sum.Methods)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&only, "only", nil, "install only these catalog entries (by name)")
	cmd.Flags().String("data-dir", "", "directory holding the <name>.abi and <name>.txt artifacts (default <base-dir>/data)")
	cmd.Flags().Bool("coin-balances", true, "also insert a zero coin balance row per address")
	_ = viper.BindPFlag("data-dir", cmd.Flags().Lookup("data-dir"))
	_ = viper.BindPFlag("coin-balances", cmd.Flags().Lookup("coin-balances"))

	return cmd
}

// selectEntries returns the whole catalog, or the named entries in catalog order
func selectEntries(names []string) ([]seed.Entry, error) {
	if len(names) == 0 {
		return seed.Catalog(), nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		e, ok := seed.Lookup(name)
		if !ok {
			return nil, core.ErrInvalidConfigf("only", "unknown catalog entry %q", name)
		}
		wanted[e.Name] = true
	}

	var out []seed.Entry
	for _, e := range seed.Catalog() {
		if wanted[e.Name] {
			out = append(out, e)
		}
	}
	return out, nil
}
