package cmd

import (
	"context"

	"github.com/luxfi/explorer-init/pkg/application"
	"github.com/luxfi/explorer-init/pkg/config"
	"github.com/luxfi/explorer-init/pkg/database"
	"github.com/luxfi/explorer-init/pkg/metrics"
)

// runWithDatabase connects to the database named by the optional [host] [port]
// arguments and runs fn against it. The run's metrics are written afterwards
// when --metrics-file is set, also for a failed run.
func runWithDatabase(ctx context.Context, app *application.App, args []string, fn func(database.Conn, *metrics.Recorder) error) error {
	conn, err := config.FromArgs(app.Config, args)
	if err != nil {
		return err
	}

	rec, err := app.Recorder()
	if err != nil {
		return err
	}

	mgr, err := database.Open(ctx, app, conn)
	if err != nil {
		return err
	}
	defer mgr.Close()

	runErr := mgr.Run(ctx, app.Config.GetBool("single-tx"), func(c database.Conn) error {
		return fn(c, rec)
	})

	if path := app.Config.GetString("metrics-file"); path != "" {
		if err := metrics.WriteTextfile(path, app.Registry); err != nil {
			app.Log.Warn("Could not write metrics", "path", path, "error", err)
		}
	}
	return runErr
}
