package application

import (
	"path/filepath"
	"time"

	"github.com/luxfi/explorer-init/pkg/metrics"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

// App is the main application context that holds all dependencies
type App struct {
	Log      log.Logger
	BaseDir  string
	Config   *viper.Viper
	Registry *prometheus.Registry

	// Now is the clock used for inserted_at/updated_at columns
	Now func() time.Time

	recorder *metrics.Recorder
}

// New creates a new App instance
func New() *App {
	return &App{
		Registry: prometheus.NewRegistry(),
		Now:      time.Now,
	}
}

// Setup initializes the application with dependencies
func (a *App) Setup(baseDir string, logger log.Logger, config *viper.Viper) {
	a.BaseDir = baseDir
	a.Log = logger
	a.Config = config
}

// ExportDir returns the export directory, honouring the "dir" setting
func (a *App) ExportDir() string {
	if a.Config != nil {
		if dir := a.Config.GetString("dir"); dir != "" {
			return dir
		}
	}
	return filepath.Join(a.BaseDir, "exports")
}

// DataDir returns the seed artifact directory, honouring the "data-dir" setting
func (a *App) DataDir() string {
	if a.Config != nil {
		if dir := a.Config.GetString("data-dir"); dir != "" {
			return dir
		}
	}
	return filepath.Join(a.BaseDir, "data")
}

// Recorder returns the run counters, registering them on first use
func (a *App) Recorder() (*metrics.Recorder, error) {
	if a.recorder == nil {
		rec, err := metrics.NewRecorder(a.Registry)
		if err != nil {
			return nil, err
		}
		a.recorder = rec
	}
	return a.recorder, nil
}
