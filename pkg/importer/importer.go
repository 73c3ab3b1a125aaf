package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/luxfi/explorer-init/pkg/application"
	"github.com/luxfi/explorer-init/pkg/database"
	"github.com/luxfi/explorer-init/pkg/explorer"
	"github.com/luxfi/explorer-init/pkg/metrics"
	"github.com/luxfi/explorer-init/pkg/upsert"
)

// Destination tables, in the order they are written
var (
	MigrationsTable = upsert.NewTable("schema_migrations",
		"version, inserted_at", "").
		WithAction(upsert.DoNothing)

	MethodsTable = upsert.NewTable("contract_methods",
		"identifier, type, abi, inserted_at, updated_at", "identifier, abi").
		WithUpdate("identifier, type, abi")

	AddressesTable = upsert.NewTable("addresses",
		"hash, contract_code, inserted_at, updated_at, decompiled, verified", "hash")

	NamesTable = upsert.NewTable("address_names",
		`address_hash, name, "primary", inserted_at, updated_at, metadata`, "address_hash, name")

	ContractsTable = upsert.NewTable("smart_contracts",
		`name, compiler_version, optimization, contract_source_code, abi, address_hash, inserted_at, updated_at,
		 constructor_arguments, optimization_runs, evm_version, external_libraries, verified_via_sourcify,
		 is_vyper_contract, partially_verified, file_path, is_changed_bytecode, bytecode_checked_at,
		 contract_code_md5, implementation_name`, "address_hash")

	VerificationsTable = upsert.NewTable("contract_verification_status",
		"uid, status, address_hash, inserted_at, updated_at", "uid")

	DecompiledTable = upsert.NewTable("decompiled_smart_contracts",
		"decompiler_version, decompiled_source_code, address_hash, inserted_at, updated_at",
		"address_hash, decompiler_version")

	// AdditionalSourcesTable has no uniqueness constraint, so it is written
	// with Replace keyed on SourceMatch.
	AdditionalSourcesTable = upsert.NewTable("smart_contracts_additional_sources",
		"file_name, contract_source_code, address_hash, inserted_at, updated_at", "")

	SourceMatch = []string{"file_name", "contract_source_code", "address_hash"}
)

// Summary counts the rows sent per entity
type Summary struct {
	Migrations        int
	Methods           int
	Addresses         int
	Names             int
	Contracts         int
	Verifications     int
	Decompiled        int
	AdditionalSources int
}

// Importer loads an export directory into the explorer database
type Importer struct {
	app    *application.App
	writer *upsert.Writer
}

// New creates a new Importer writing through db
func New(app *application.App, db database.Execer, rec *metrics.Recorder) *Importer {
	return &Importer{app: app, writer: upsert.NewWriter(db, rec)}
}

// batches holds the rows of one import, one slice per destination table
type batches struct {
	addresses     []upsert.Row
	names         []upsert.Row
	contracts     []upsert.Row
	verifications []upsert.Row
	decompiled    []upsert.Row
	sources       []upsert.Row
}

// Import reads layout and writes every entity with one statement each. The
// first failing statement aborts the import.
func (i *Importer) Import(ctx context.Context, layout explorer.Layout) (Summary, error) {
	i.app.Log.Info("Importing explorer data", "dir", layout.Dir)

	var (
		sum Summary
		now = i.app.Now()
		err error
	)

	migrations, err := layout.ReadMigrations()
	if err != nil {
		return sum, err
	}
	if sum.Migrations, err = i.writer.Upsert(ctx, MigrationsTable, MigrationRows(migrations, now)); err != nil {
		return sum, err
	}
	i.app.Log.Info("Imported migrations", "rows", sum.Migrations)

	methods, err := layout.ReadMethods()
	if err != nil {
		return sum, err
	}
	if sum.Methods, err = i.writer.Upsert(ctx, MethodsTable, MethodRows(methods, now)); err != nil {
		return sum, err
	}
	i.app.Log.Info("Imported methods", "rows", sum.Methods)

	contracts, err := layout.ReadContracts()
	if err != nil {
		return sum, err
	}
	b := collect(contracts, now)

	steps := []struct {
		table upsert.Table
		rows  []upsert.Row
		count *int
	}{
		{AddressesTable, b.addresses, &sum.Addresses},
		{NamesTable, b.names, &sum.Names},
		{ContractsTable, b.contracts, &sum.Contracts},
		{VerificationsTable, b.verifications, &sum.Verifications},
		{DecompiledTable, b.decompiled, &sum.Decompiled},
	}
	for _, s := range steps {
		if *s.count, err = i.writer.Upsert(ctx, s.table, s.rows); err != nil {
			return sum, err
		}
		i.app.Log.Info("Imported", "table", s.table.Name, "rows", *s.count)
	}

	if sum.AdditionalSources, err = i.writer.Replace(ctx, AdditionalSourcesTable, SourceMatch, b.sources); err != nil {
		return sum, err
	}
	i.app.Log.Info("Imported", "table", AdditionalSourcesTable.Name, "rows", sum.AdditionalSources)

	i.app.Log.Info("Import complete",
		"contracts", sum.Contracts,
		"methods", sum.Methods,
		"migrations", sum.Migrations)

	return sum, nil
}

// MigrationRows shapes migrations for MigrationsTable
func MigrationRows(migrations []explorer.Migration, now time.Time) []upsert.Row {
	rows := make([]upsert.Row, 0, len(migrations))
	for _, m := range migrations {
		rows = append(rows, upsert.Row{int64(m.Version), now})
	}
	return rows
}

// MethodRows shapes methods for MethodsTable
func MethodRows(methods []explorer.Method, now time.Time) []upsert.Row {
	rows := make([]upsert.Row, 0, len(methods))
	for _, m := range methods {
		rows = append(rows, upsert.Row{m.Identifier, m.Type, JSONParam(m.ABI), now, now})
	}
	return rows
}

func collect(contracts []explorer.Contract, now time.Time) batches {
	var b batches
	uids := make(map[string]bool)
	for _, c := range contracts {
		hash := c.Address.Bytes()

		b.contracts = append(b.contracts, upsert.Row{
			c.Name, c.CompilerVersion, c.Optimization, c.SourceCode, JSONParam(c.ABI), hash, now, now,
			c.ConstructorArguments, c.OptimizationRuns, c.EVMVersion, externalLibraries(c.ExternalLibraries),
			c.VerifiedViaSourcify, c.IsVyperContract, c.PartiallyVerified, c.FilePath, c.IsChangedBytecode,
			c.BytecodeCheckedAt, c.ContractCodeMD5, c.ImplementationName,
		})

		b.addresses = append(b.addresses, upsert.Row{hash, BytesParam(c.Code), now, now, c.Decompiled, c.Verified})

		for _, l := range c.Labels {
			b.names = append(b.names, upsert.Row{hash, l.Name, l.Primary, now, now, JSONParam(l.Metadata)})
		}
		for _, src := range c.AdditionalSources {
			b.sources = append(b.sources, upsert.Row{src.FileName, src.SourceCode, hash, now, now})
		}
		for _, v := range c.Verifications {
			// uid is the conflict key across every contract
			if uids[v.UID] {
				continue
			}
			uids[v.UID] = true
			b.verifications = append(b.verifications, upsert.Row{v.UID, v.Status, hash, now, now})
		}
		for _, d := range c.Decompilations {
			b.decompiled = append(b.decompiled, upsert.Row{d.Version, d.SourceCode, hash, now, now})
		}
	}
	return b
}

// JSONParam binds a json/jsonb value as text, or NULL when absent
func JSONParam(raw json.RawMessage) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return string(trimmed)
}

// BytesParam binds a bytea value, or NULL when absent
func BytesParam(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}

// externalLibraries binds a jsonb[] column
func externalLibraries(libs []json.RawMessage) any {
	if libs == nil {
		return pq.StringArray(nil)
	}
	out := make(pq.StringArray, len(libs))
	for n, lib := range libs {
		out[n] = string(lib)
	}
	return out
}

func (s Summary) String() string {
	return fmt.Sprintf("%d contracts, %d methods, %d migrations, %d names, %d verifications, %d decompiled, %d additional sources",
		s.Contracts, s.Methods, s.Migrations, s.Names, s.Verifications, s.Decompiled, s.AdditionalSources)
}
