// Package seed installs the fixed catalog of precompiled contracts into the
// explorer database.
package seed

import (
	"context"
	"fmt"

	"github.com/luxfi/explorer-init/pkg/application"
	"github.com/luxfi/explorer-init/pkg/database"
	"github.com/luxfi/explorer-init/pkg/metrics"
	"github.com/luxfi/explorer-init/pkg/selector"
	"github.com/luxfi/explorer-init/pkg/upsert"
)

// MethodType is the contract_methods.type of every installed method
const MethodType = "ArbOS"

// placeholderCode marks an address as holding code; 0xfe is INVALID
var placeholderCode = []byte{0xfe}

var (
	addressesTable = upsert.NewTable("addresses",
		"hash, contract_code, verified, inserted_at, updated_at", "hash").
		WithUpdate("contract_code, verified, updated_at")

	coinBalancesTable = upsert.NewTable("address_coin_balances",
		"address_hash, block_number, inserted_at, updated_at", "").
		WithAction(upsert.DoNothing)

	contractsTable = upsert.NewTable("smart_contracts",
		`name, address_hash, compiler_version, abi, contract_source_code,
		 optimization, inserted_at, updated_at, contract_code_md5, is_changed_bytecode`, "address_hash").
		WithUpdate("compiler_version, abi, contract_source_code, updated_at, is_changed_bytecode")

	methodsTable = upsert.NewTable("contract_methods",
		"identifier, abi, type, inserted_at, updated_at", "identifier, abi").
		WithUpdate("identifier, abi")
)

const touchContract = `UPDATE smart_contracts SET is_changed_bytecode = false, updated_at = $2 WHERE address_hash = $1`

// Summary counts what an installation wrote
type Summary struct {
	Contracts int
	Methods   int
}

// Installer seeds catalog entries one at a time
type Installer struct {
	app     *application.App
	writer  *upsert.Writer
	dataDir string

	// CoinBalances also inserts a zero balance row per address
	CoinBalances bool
}

// New creates an Installer reading artifacts from dataDir
func New(app *application.App, db database.Execer, rec *metrics.Recorder, dataDir string) *Installer {
	return &Installer{
		app:          app,
		writer:       upsert.NewWriter(db, rec),
		dataDir:      dataDir,
		CoinBalances: true,
	}
}

// Install installs entries in order and stops at the first failure
func (in *Installer) Install(ctx context.Context, entries []Entry) (Summary, error) {
	var sum Summary
	for _, e := range entries {
		n, err := in.InstallEntry(ctx, e)
		if err != nil {
			return sum, fmt.Errorf("failed to install %s: %w", e.Name, err)
		}
		sum.Contracts++
		sum.Methods += n
	}

	in.app.Log.Info("Installation complete", "contracts", sum.Contracts, "methods", sum.Methods)
	return sum, nil
}

// InstallEntry writes the address, contract and method rows of one entry and
// returns the number of methods written.
func (in *Installer) InstallEntry(ctx context.Context, e Entry) (int, error) {
	in.app.Log.Info("Installing", "name", e.Name, "address", e.Address.Hex())

	art, err := LoadArtifact(in.dataDir, e.Artifact)
	if err != nil {
		return 0, err
	}
	methods, err := selector.Derive(art.ABI)
	if err != nil {
		return 0, err
	}

	now := in.app.Now()
	hash := e.Address.Bytes()

	if _, err := in.writer.Upsert(ctx, addressesTable, []upsert.Row{
		{hash, placeholderCode, true, now, now},
	}); err != nil {
		return 0, err
	}

	if in.CoinBalances {
		if _, err := in.writer.Upsert(ctx, coinBalancesTable, []upsert.Row{
			{hash, int64(0), now, now},
		}); err != nil {
			return 0, err
		}
	}

	if _, err := in.writer.Upsert(ctx, contractsTable, []upsert.Row{
		{e.Name, hash, e.Version, string(art.ABI), art.Description, true, now, now, "No MD5", false},
	}); err != nil {
		return 0, err
	}

	for _, m := range methods {
		in.app.Log.Debug("Installing method", "selector", m.Selector.Int32(), "signature", m.Signature)
		if _, err := in.writer.Upsert(ctx, methodsTable, []upsert.Row{
			{m.Selector.Int32(), string(m.Entry), MethodType, now, now},
		}); err != nil {
			return 0, err
		}
	}

	if err := in.writer.Exec(ctx, "smart_contracts", touchContract, hash, now); err != nil {
		return 0, err
	}

	return len(methods), nil
}
