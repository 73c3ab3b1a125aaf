package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/luxfi/explorer-init/pkg/application"
	"github.com/luxfi/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version information (set by ldflags)
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// Global flags
	configFile string
	baseDir    string

	// Application context
	app = application.New()

	// loadConfig runs once before any command executes
	loadConfig = initConfig
)

func init() {
	cobra.OnInitialize(func() { loadConfig() })
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "explorer-init",
		Short: "Seed and migrate explorer databases",
		Long: `Moves verified contracts between Blockscout explorer databases and seeds
the well-known precompiled contracts with their ABIs and method selectors.`,
		Version:      fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeApp()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default is ./explorer-init.yaml)")
	flags.StringVar(&baseDir, "base-dir", "", "base directory for exports and seed data (default is the working directory)")
	flags.String("db-user", "", "database user (default postgres)")
	flags.String("db-name", "", "database name (default blockscout)")
	flags.String("sslmode", "", "postgres sslmode (default disable)")
	flags.String("dir", "", "export directory (default <base-dir>/exports)")
	flags.Bool("single-tx", true, "run every statement of a command in one transaction")
	flags.String("metrics-file", "", "write run metrics to this file in textfile collector format")
	for _, name := range []string{"db-user", "db-name", "sslmode", "dir", "single-tx", "metrics-file"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(NewExportCmd(app))
	rootCmd.AddCommand(NewImportCmd(app))
	rootCmd.AddCommand(NewInstallCmd(app))
	rootCmd.AddCommand(NewSelectorsCmd(app))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("explorer-init")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("EXPLORER_INIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	// DATABASE_URL is read without the prefix
	_ = viper.BindEnv("database_url", "DATABASE_URL")

	// a missing config file is fine
	_ = viper.ReadInConfig()
}

func initializeApp() error {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
		baseDir = wd
	}

	logger := log.NewLogger("explorer-init")
	app.Setup(baseDir, logger, viper.GetViper())

	return nil
}
