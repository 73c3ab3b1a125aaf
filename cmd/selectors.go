package cmd

import (
	"fmt"
	"os"

	"github.com/luxfi/explorer-init/pkg/application"
	"github.com/luxfi/explorer-init/pkg/selector"
	"github.com/spf13/cobra"
)

// NewSelectorsCmd creates the selectors command
func NewSelectorsCmd(app *application.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selectors [abi-file]",
		Short: "Print the function selectors of an ABI file",
		Long:  "Print selector, stored contract_methods identifier and canonical signature of every function in an ABI, in declaration order.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read abi: %w", err)
			}

			methods, err := selector.Derive(data)
			if err != nil {
				return err
			}
			app.Log.Debug("Derived selectors", "file", args[0], "methods", len(methods))

			out := cmd.OutOrStdout()
			for _, m := range methods {
				fmt.Fprintf(out, "%s\t%d\t%s\n", m.Selector.Hex(), m.Selector.Int32(), m.Signature)
			}
			return nil
		},
	}

	return cmd
}
