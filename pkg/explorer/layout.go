package explorer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	MigrationsFile = "migrations.json"
	MethodsFile    = "methods.json"
	ContractsDir   = "contracts"
)

// Layout is an export directory:
//
//	<dir>/migrations.json
//	<dir>/methods.json
//	<dir>/contracts/<name>-<address>.json
type Layout struct {
	Dir string
}

// Prepare creates the directory tree
func (l Layout) Prepare() error {
	if err := os.MkdirAll(filepath.Join(l.Dir, ContractsDir), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	return nil
}

func (l Layout) ReadMigrations() ([]Migration, error) {
	var out []Migration
	return out, readJSON(filepath.Join(l.Dir, MigrationsFile), &out)
}

func (l Layout) WriteMigrations(migrations []Migration) error {
	return writeJSON(filepath.Join(l.Dir, MigrationsFile), nonNil(migrations))
}

func (l Layout) ReadMethods() ([]Method, error) {
	var out []Method
	return out, readJSON(filepath.Join(l.Dir, MethodsFile), &out)
}

func (l Layout) WriteMethods(methods []Method) error {
	return writeJSON(filepath.Join(l.Dir, MethodsFile), nonNil(methods))
}

// ContractPath returns the file a contract is exported to
func (l Layout) ContractPath(c Contract) string {
	return filepath.Join(l.Dir, ContractsDir, ContractFileName(c))
}

// WriteContract writes one contract file and returns its path
func (l Layout) WriteContract(c Contract) (string, error) {
	path := l.ContractPath(c)
	return path, writeJSON(path, c)
}

// ReadContracts reads every file under contracts/ in file name order. Files
// describing the same address are merged, so exports holding one joined row
// per file still import every label, source, verification and decompilation.
func (l Layout) ReadContracts() ([]Contract, error) {
	dir := filepath.Join(l.Dir, ContractsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var (
		out   []Contract
		index = make(map[string]int)
	)
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}

		var c Contract
		if err := readJSON(filepath.Join(dir, e.Name()), &c); err != nil {
			return nil, err
		}

		key := c.Address.Hex()
		if i, ok := index[key]; ok {
			out[i].Merge(c)
			continue
		}
		index[key] = len(out)
		out = append(out, c)
	}
	return out, nil
}

// ContractFileName names a contract file after the contract name, suffixed
// with the address so that contracts sharing a name do not overwrite each other.
func ContractFileName(c Contract) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, strings.TrimLeft(c.Name, "."))
	if name == "" {
		name = "contract"
	}
	return fmt.Sprintf("%s-%s.json", name, strings.ToLower(c.Address.Hex()))
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
