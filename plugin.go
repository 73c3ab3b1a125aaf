package main

import (
	"github.com/luxfi/explorer-init/cmd"
	"github.com/spf13/cobra"
)

// Plugin exports explorer-init for the lux-cli plugin system
type Plugin struct {
	Name        string
	Version     string
	Description string
	RootCmd     *cobra.Command
}

// GetPlugin returns the explorer-init plugin for lux-cli integration
func GetPlugin() *Plugin {
	return &Plugin{
		Name:        "explorer-init",
		Version:     cmd.Version,
		Description: "Explorer database export, import and precompile seeding",
		RootCmd:     cmd.NewRootCmd(),
	}
}
