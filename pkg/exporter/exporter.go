// Package exporter dumps explorer tables into an export directory.
package exporter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lib/pq"
	"github.com/luxfi/explorer-init/pkg/application"
	"github.com/luxfi/explorer-init/pkg/database"
	"github.com/luxfi/explorer-init/pkg/explorer"
	"github.com/luxfi/explorer-init/pkg/metrics"
)

const (
	MigrationsQuery = `SELECT version FROM schema_migrations ORDER BY version`

	MethodsQuery = `SELECT identifier, type, abi FROM contract_methods ORDER BY identifier, id`

	// ContractsQuery yields one row per contract and combination of joined sub-records
	ContractsQuery = `SELECT smart_contracts.name, smart_contracts.compiler_version, smart_contracts.optimization,
       smart_contracts.contract_source_code, smart_contracts.abi, smart_contracts.address_hash,
       smart_contracts.constructor_arguments, smart_contracts.optimization_runs, smart_contracts.evm_version,
       smart_contracts.external_libraries, smart_contracts.verified_via_sourcify, smart_contracts.is_vyper_contract,
       smart_contracts.partially_verified, smart_contracts.file_path, smart_contracts.is_changed_bytecode,
       smart_contracts.bytecode_checked_at, smart_contracts.contract_code_md5, smart_contracts.implementation_name,
       address_names.name AS label_name, address_names."primary", address_names.metadata,
       addresses.contract_code, addresses.verified, addresses.decompiled,
       smart_contracts_additional_sources.file_name,
       smart_contracts_additional_sources.contract_source_code AS additional_source,
       contract_verification_status.uid, contract_verification_status.status,
       decompiled_smart_contracts.decompiler_version, decompiled_smart_contracts.decompiled_source_code
FROM smart_contracts
LEFT JOIN addresses ON (addresses.hash = smart_contracts.address_hash)
LEFT JOIN address_names USING (address_hash)
LEFT JOIN smart_contracts_additional_sources USING (address_hash)
LEFT JOIN contract_verification_status USING (address_hash)
LEFT JOIN decompiled_smart_contracts USING (address_hash)
ORDER BY smart_contracts.address_hash, smart_contracts_additional_sources.file_name`
)

// Summary counts what an export wrote
type Summary struct {
	Migrations int
	Methods    int
	Contracts  int
	Rows       int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d contracts with %d methods", s.Contracts, s.Methods)
}

// Exporter dumps the explorer database into an export directory
type Exporter struct {
	app *application.App
	db  database.Querier
	rec *metrics.Recorder
}

// New creates a new Exporter reading through db
func New(app *application.App, db database.Querier, rec *metrics.Recorder) *Exporter {
	return &Exporter{app: app, db: db, rec: rec}
}

// Export writes migrations, methods and one file per contract to layout
func (e *Exporter) Export(ctx context.Context, layout explorer.Layout) (Summary, error) {
	var sum Summary

	e.app.Log.Info("Exporting explorer data", "dir", layout.Dir)
	if err := layout.Prepare(); err != nil {
		return sum, err
	}

	migrations, err := e.Migrations(ctx)
	if err != nil {
		return sum, err
	}
	if err := layout.WriteMigrations(migrations); err != nil {
		return sum, err
	}
	e.rec.File("write")
	sum.Migrations = len(migrations)

	methods, err := e.Methods(ctx)
	if err != nil {
		return sum, err
	}
	if err := layout.WriteMethods(methods); err != nil {
		return sum, err
	}
	e.rec.File("write")
	sum.Methods = len(methods)

	contracts, rows, err := e.Contracts(ctx)
	if err != nil {
		return sum, err
	}
	sum.Rows = rows
	for _, c := range contracts {
		path, err := layout.WriteContract(c)
		if err != nil {
			return sum, err
		}
		e.rec.File("write")
		e.app.Log.Debug("Exported contract", "name", c.Name, "path", path)
	}
	sum.Contracts = len(contracts)

	e.app.Log.Info("Export complete",
		"contracts", sum.Contracts,
		"rows", sum.Rows,
		"methods", sum.Methods,
		"migrations", sum.Migrations)

	return sum, nil
}

// Migrations reads schema_migrations
func (e *Exporter) Migrations(ctx context.Context) ([]explorer.Migration, error) {
	rows, err := e.query(ctx, "schema_migrations", MigrationsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []explorer.Migration
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan schema_migrations: %w", err)
		}
		out = append(out, explorer.Migration{Version: explorer.Version(version)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	return out, nil
}

// Methods reads contract_methods
func (e *Exporter) Methods(ctx context.Context) ([]explorer.Method, error) {
	rows, err := e.query(ctx, "contract_methods", MethodsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []explorer.Method
	for rows.Next() {
		var (
			m   explorer.Method
			abi []byte
		)
		if err := rows.Scan(&m.Identifier, &m.Type, &abi); err != nil {
			return nil, fmt.Errorf("failed to scan contract_methods: %w", err)
		}
		m.ABI = rawJSON(abi)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read contract_methods: %w", err)
	}
	return out, nil
}

// Contracts reads the joined contract rows and folds them by address, keeping
// every distinct label, additional source, verification and decompilation.
// It also returns the number of joined rows read.
func (e *Exporter) Contracts(ctx context.Context) ([]explorer.Contract, int, error) {
	rows, err := e.query(ctx, "smart_contracts", ContractsQuery)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out   []explorer.Contract
		index = make(map[common.Address]int)
		n     int
	)
	for rows.Next() {
		r, err := scanContract(rows)
		if err != nil {
			return nil, n, err
		}
		n++

		c := r.contract()
		if i, ok := index[c.Address]; ok {
			out[i].Merge(c)
			continue
		}
		index[c.Address] = len(out)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, n, fmt.Errorf("failed to read smart_contracts: %w", err)
	}
	return out, n, nil
}

func (e *Exporter) query(ctx context.Context, table, query string) (*sql.Rows, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	e.rec.Statement(table, metrics.KindSelect, 0)
	return rows, nil
}

// contractRow is one row of ContractsQuery
type contractRow struct {
	name, compilerVersion, sourceCode string
	optimization                      bool
	abi, addressHash                  []byte
	constructorArguments, evmVersion  *string
	optimizationRuns                  *int64
	externalLibraries                 pq.StringArray
	verifiedViaSourcify               *bool
	isVyperContract                   *bool
	partiallyVerified                 *bool
	filePath                          *string
	isChangedBytecode                 *bool
	bytecodeCheckedAt                 *time.Time
	contractCodeMD5                   *string
	implementationName                *string

	labelName *string
	primary   *bool
	metadata  []byte

	contractCode         []byte
	verified, decompiled *bool

	fileName, additionalSource *string

	uid    *string
	status *int64

	decompilerVersion, decompiledSourceCode *string
}

func scanContract(rows *sql.Rows) (contractRow, error) {
	var r contractRow
	err := rows.Scan(
		&r.name, &r.compilerVersion, &r.optimization, &r.sourceCode, &r.abi, &r.addressHash,
		&r.constructorArguments, &r.optimizationRuns, &r.evmVersion, &r.externalLibraries,
		&r.verifiedViaSourcify, &r.isVyperContract, &r.partiallyVerified, &r.filePath,
		&r.isChangedBytecode, &r.bytecodeCheckedAt, &r.contractCodeMD5, &r.implementationName,
		&r.labelName, &r.primary, &r.metadata,
		&r.contractCode, &r.verified, &r.decompiled,
		&r.fileName, &r.additionalSource,
		&r.uid, &r.status,
		&r.decompilerVersion, &r.decompiledSourceCode,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan smart_contracts: %w", err)
	}
	if len(r.addressHash) != common.AddressLength {
		return r, fmt.Errorf("contract %q: address_hash has %d bytes", r.name, len(r.addressHash))
	}
	return r, nil
}

func (r contractRow) contract() explorer.Contract {
	c := explorer.Contract{
		Address:              common.BytesToAddress(r.addressHash),
		Name:                 r.name,
		CompilerVersion:      r.compilerVersion,
		Optimization:         r.optimization,
		SourceCode:           r.sourceCode,
		ABI:                  rawJSON(r.abi),
		ConstructorArguments: r.constructorArguments,
		OptimizationRuns:     r.optimizationRuns,
		EVMVersion:           r.evmVersion,
		VerifiedViaSourcify:  r.verifiedViaSourcify,
		IsVyperContract:      r.isVyperContract,
		PartiallyVerified:    r.partiallyVerified,
		FilePath:             r.filePath,
		IsChangedBytecode:    r.isChangedBytecode,
		BytecodeCheckedAt:    r.bytecodeCheckedAt,
		ImplementationName:   r.implementationName,
		Code:                 r.contractCode,
		Verified:             r.verified,
		Decompiled:           r.decompiled,
	}
	if r.contractCodeMD5 != nil {
		c.ContractCodeMD5 = *r.contractCodeMD5
	}
	if r.externalLibraries != nil {
		c.ExternalLibraries = make([]json.RawMessage, len(r.externalLibraries))
		for i, lib := range r.externalLibraries {
			c.ExternalLibraries[i] = json.RawMessage(lib)
		}
	}

	if r.primary != nil {
		name := r.name
		if r.labelName != nil {
			name = *r.labelName
		}
		c.AddLabel(explorer.AddressName{Name: name, Primary: *r.primary, Metadata: rawJSON(r.metadata)})
	}
	if r.fileName != nil {
		src := explorer.AdditionalSource{FileName: *r.fileName}
		if r.additionalSource != nil {
			src.SourceCode = *r.additionalSource
		}
		c.AddSource(src)
	}
	if r.uid != nil {
		v := explorer.VerificationStatus{UID: *r.uid}
		if r.status != nil {
			v.Status = *r.status
		}
		c.AddVerification(v)
	}
	if r.decompilerVersion != nil {
		d := explorer.DecompiledSource{Version: *r.decompilerVersion}
		if r.decompiledSourceCode != nil {
			d.SourceCode = *r.decompiledSourceCode
		}
		c.AddDecompilation(d)
	}
	return c
}

// rawJSON turns a scanned json/jsonb column into a RawMessage; NULL stays nil
func rawJSON(b []byte) json.RawMessage {
	if b == nil {
		return nil
	}
	return json.RawMessage(b)
}
