// Package explorer holds the records moved between the explorer database and
// export files.
package explorer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Version is a schema_migrations version. It is written as a JSON string, the
// way bigint columns were always exported, and read from a string or number.
type Version int64

func (v Version) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(v), 10))
}

func (v *Version) UnmarshalJSON(input []byte) error {
	n, err := parseInt64(input)
	if err != nil {
		return fmt.Errorf("invalid migration version %s: %w", input, err)
	}
	*v = Version(n)
	return nil
}

// Int64 is a bigint column of a contract file. It is written as a number and
// read from a number or a string, since node-postgres exported int8 as strings.
type Int64 int64

func (i *Int64) UnmarshalJSON(input []byte) error {
	n, err := parseInt64(input)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", input, err)
	}
	*i = Int64(n)
	return nil
}

func parseInt64(input []byte) (int64, error) {
	s := string(bytes.Trim(bytes.TrimSpace(input), `"`))
	return strconv.ParseInt(s, 10, 64)
}

func toInt64(i *Int64) *int64 {
	if i == nil {
		return nil
	}
	n := int64(*i)
	return &n
}

func fromInt64(n *int64) *Int64 {
	if n == nil {
		return nil
	}
	i := Int64(*n)
	return &i
}

// Migration is one row of schema_migrations
type Migration struct {
	Version Version `json:"version"`
}

// Method is one row of contract_methods
type Method struct {
	Identifier int32           `json:"identifier"`
	Type       string          `json:"type"`
	ABI        json.RawMessage `json:"abi"`
}

// AddressName is an address_names label of a contract
type AddressName struct {
	Name     string          `json:"name"`
	Primary  bool            `json:"primary"`
	Metadata json.RawMessage `json:"metadata"`
}

// AdditionalSource is one extra source file of a multi-file contract
type AdditionalSource struct {
	FileName   string `json:"file_name"`
	SourceCode string `json:"contract_source_code"`
}

// VerificationStatus is a contract_verification_status row of a contract
type VerificationStatus struct {
	UID    string `json:"uid"`
	Status int64  `json:"status"`
}

// DecompiledSource is a decompiled_smart_contracts row
type DecompiledSource struct {
	Version    string `json:"decompiler_version"`
	SourceCode string `json:"decompiled_source_code"`
}

// Contract is one verified contract, keyed by its address. Every sub-record
// slice holds at most one entry per destination conflict key; an empty slice
// writes no rows on import.
type Contract struct {
	Address common.Address

	// smart_contracts
	Name                 string
	CompilerVersion      string
	Optimization         bool
	SourceCode           string
	ABI                  json.RawMessage
	ConstructorArguments *string
	OptimizationRuns     *int64
	EVMVersion           *string
	ExternalLibraries    []json.RawMessage
	VerifiedViaSourcify  *bool
	IsVyperContract      *bool
	PartiallyVerified    *bool
	FilePath             *string
	IsChangedBytecode    *bool
	BytecodeCheckedAt    *time.Time
	ContractCodeMD5      string
	ImplementationName   *string

	// addresses
	Code       []byte
	Verified   *bool
	Decompiled *bool

	Labels            []AddressName
	AdditionalSources []AdditionalSource
	Verifications     []VerificationStatus
	Decompilations    []DecompiledSource
}

// contractFile is the on-disk shape of a Contract: the smart_contracts and
// addresses columns flat, sub-records as arrays.
type contractFile struct {
	Name                 string            `json:"name"`
	CompilerVersion      string            `json:"compiler_version"`
	Optimization         bool              `json:"optimization"`
	ContractSourceCode   string            `json:"contract_source_code"`
	ABI                  json.RawMessage   `json:"abi"`
	AddressHash          Bytes             `json:"address_hash"`
	ConstructorArguments *string           `json:"constructor_arguments"`
	OptimizationRuns     *Int64            `json:"optimization_runs"`
	EVMVersion           *string           `json:"evm_version"`
	ExternalLibraries    []json.RawMessage `json:"external_libraries"`
	VerifiedViaSourcify  *bool             `json:"verified_via_sourcify"`
	IsVyperContract      *bool             `json:"is_vyper_contract"`
	PartiallyVerified    *bool             `json:"partially_verified"`
	FilePath             *string           `json:"file_path"`
	IsChangedBytecode    *bool             `json:"is_changed_bytecode"`
	BytecodeCheckedAt    *time.Time        `json:"bytecode_checked_at"`
	ContractCodeMD5      string            `json:"contract_code_md5"`
	ImplementationName   *string           `json:"implementation_name"`

	ContractCode Bytes `json:"contract_code"`
	Verified     *bool `json:"verified"`
	Decompiled   *bool `json:"decompiled"`

	Labels            []AddressName        `json:"labels,omitempty"`
	AdditionalSources []AdditionalSource   `json:"additional_sources,omitempty"`
	Verifications     []VerificationStatus `json:"verifications,omitempty"`
	Decompilations    []DecompiledSource   `json:"decompilations,omitempty"`

	// single joined row, as written by older exports
	LabelName            *string         `json:"label_name,omitempty"`
	Primary              *bool           `json:"primary,omitempty"`
	Metadata             json.RawMessage `json:"metadata,omitempty"`
	FileName             *string         `json:"file_name,omitempty"`
	AdditionalSource     *string         `json:"additional_source,omitempty"`
	UID                  *string         `json:"uid,omitempty"`
	Status               *Int64          `json:"status,omitempty"`
	DecompilerVersion    *string         `json:"decompiler_version,omitempty"`
	DecompiledSourceCode *string         `json:"decompiled_source_code,omitempty"`
}

func (c Contract) MarshalJSON() ([]byte, error) {
	f := contractFile{
		Name:                 c.Name,
		CompilerVersion:      c.CompilerVersion,
		Optimization:         c.Optimization,
		ContractSourceCode:   c.SourceCode,
		ABI:                  c.ABI,
		AddressHash:          Bytes(c.Address.Bytes()),
		ConstructorArguments: c.ConstructorArguments,
		OptimizationRuns:     fromInt64(c.OptimizationRuns),
		EVMVersion:           c.EVMVersion,
		ExternalLibraries:    c.ExternalLibraries,
		VerifiedViaSourcify:  c.VerifiedViaSourcify,
		IsVyperContract:      c.IsVyperContract,
		PartiallyVerified:    c.PartiallyVerified,
		FilePath:             c.FilePath,
		IsChangedBytecode:    c.IsChangedBytecode,
		BytecodeCheckedAt:    c.BytecodeCheckedAt,
		ContractCodeMD5:      c.ContractCodeMD5,
		ImplementationName:   c.ImplementationName,
		ContractCode:         Bytes(c.Code),
		Verified:             c.Verified,
		Decompiled:           c.Decompiled,
		Labels:               c.Labels,
		AdditionalSources:    c.AdditionalSources,
		Verifications:        c.Verifications,
		Decompilations:       c.Decompilations,
	}
	return json.Marshal(f)
}

func (c *Contract) UnmarshalJSON(input []byte) error {
	var f contractFile
	if err := json.Unmarshal(input, &f); err != nil {
		return err
	}
	if len(f.AddressHash) != common.AddressLength {
		return fmt.Errorf("contract %q: address_hash has %d bytes", f.Name, len(f.AddressHash))
	}

	*c = Contract{
		Address:              common.BytesToAddress(f.AddressHash),
		Name:                 f.Name,
		CompilerVersion:      f.CompilerVersion,
		Optimization:         f.Optimization,
		SourceCode:           f.ContractSourceCode,
		ABI:                  f.ABI,
		ConstructorArguments: f.ConstructorArguments,
		OptimizationRuns:     toInt64(f.OptimizationRuns),
		EVMVersion:           f.EVMVersion,
		ExternalLibraries:    f.ExternalLibraries,
		VerifiedViaSourcify:  f.VerifiedViaSourcify,
		IsVyperContract:      f.IsVyperContract,
		PartiallyVerified:    f.PartiallyVerified,
		FilePath:             f.FilePath,
		IsChangedBytecode:    f.IsChangedBytecode,
		BytecodeCheckedAt:    f.BytecodeCheckedAt,
		ContractCodeMD5:      f.ContractCodeMD5,
		ImplementationName:   f.ImplementationName,
		Code:                 f.ContractCode,
		Verified:             f.Verified,
		Decompiled:           f.Decompiled,
	}
	for _, l := range f.Labels {
		c.AddLabel(l)
	}
	for _, src := range f.AdditionalSources {
		c.AddSource(src)
	}
	for _, v := range f.Verifications {
		c.AddVerification(v)
	}
	for _, d := range f.Decompilations {
		c.AddDecompilation(d)
	}

	if f.Primary != nil {
		// older exports carry no label name; the contract name stood in for it
		name := f.Name
		if f.LabelName != nil {
			name = *f.LabelName
		}
		c.AddLabel(AddressName{Name: name, Primary: *f.Primary, Metadata: f.Metadata})
	}
	if f.FileName != nil {
		src := AdditionalSource{FileName: *f.FileName}
		if f.AdditionalSource != nil {
			src.SourceCode = *f.AdditionalSource
		}
		c.AddSource(src)
	}
	if f.UID != nil {
		v := VerificationStatus{UID: *f.UID}
		if f.Status != nil {
			v.Status = int64(*f.Status)
		}
		c.AddVerification(v)
	}
	if f.DecompilerVersion != nil {
		d := DecompiledSource{Version: *f.DecompilerVersion}
		if f.DecompiledSourceCode != nil {
			d.SourceCode = *f.DecompiledSourceCode
		}
		c.AddDecompilation(d)
	}
	return nil
}

// AddLabel appends l unless a label with the same name is already present
func (c *Contract) AddLabel(l AddressName) {
	for _, have := range c.Labels {
		if have.Name == l.Name {
			return
		}
	}
	c.Labels = append(c.Labels, l)
}

// AddSource appends src unless the contract already carries it
func (c *Contract) AddSource(src AdditionalSource) {
	for _, s := range c.AdditionalSources {
		if s == src {
			return
		}
	}
	c.AdditionalSources = append(c.AdditionalSources, src)
}

// AddVerification appends v unless its uid is already present
func (c *Contract) AddVerification(v VerificationStatus) {
	for _, have := range c.Verifications {
		if have.UID == v.UID {
			return
		}
	}
	c.Verifications = append(c.Verifications, v)
}

// AddDecompilation appends d unless its decompiler version is already present
func (c *Contract) AddDecompilation(d DecompiledSource) {
	for _, have := range c.Decompilations {
		if have.Version == d.Version {
			return
		}
	}
	c.Decompilations = append(c.Decompilations, d)
}

// Merge folds the sub-records of other, a row for the same address, into c
func (c *Contract) Merge(other Contract) {
	for _, l := range other.Labels {
		c.AddLabel(l)
	}
	for _, src := range other.AdditionalSources {
		c.AddSource(src)
	}
	for _, v := range other.Verifications {
		c.AddVerification(v)
	}
	for _, d := range other.Decompilations {
		c.AddDecompilation(d)
	}
}
