package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/luxfi/explorer-init/pkg/application"
	"github.com/luxfi/explorer-init/pkg/config"

	// postgres driver
	_ "github.com/lib/pq"
)

// Execer runs statements that return no rows. *sql.DB and *sql.Tx satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Querier runs statements that return rows. *sql.DB and *sql.Tx satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn is the subset of a connection the migration workflows need
type Conn interface {
	Execer
	Querier
}

// Manager owns the single connection used by a run
type Manager struct {
	app *application.App
	db  *sql.DB
}

// New creates a new database Manager around an already opened handle
func New(app *application.App, db *sql.DB) *Manager {
	return &Manager{app: app, db: db}
}

// Open connects to the explorer database described by conn
func Open(ctx context.Context, app *application.App, conn config.Connection) (*Manager, error) {
	app.Log.Info("Connecting to explorer database", "target", conn.String())

	db, err := sql.Open("postgres", conn.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one statement in flight at a time
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", conn, err)
	}

	return New(app, db), nil
}

// DB returns the underlying handle
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Close releases the connection
func (m *Manager) Close() error {
	return m.db.Close()
}

// Run executes fn against the connection. With singleTx set, fn runs inside one
// transaction that is committed only if fn succeeds; otherwise every statement
// autocommits.
func (m *Manager) Run(ctx context.Context, singleTx bool, fn func(Conn) error) error {
	if !singleTx {
		return fn(m.db)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.app.Log.Warn("Rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
