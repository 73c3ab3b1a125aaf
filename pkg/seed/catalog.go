package seed

import "github.com/ethereum/go-ethereum/common"

// Entry is one well-known precompiled contract
type Entry struct {
	Address common.Address
	// Artifact is the base name of the <Artifact>.abi and <Artifact>.txt files
	Artifact string
	Name     string
	// Version is shown by the explorer as the compiler version
	Version string
}

const (
	versionHypervisor = "EVM Hypervisor (go 1.17)"
	versionPrecompile = "L2 Precompile (go 1.17)"
	versionNone       = "Not installed"
)

var catalog = []Entry{
	{common.HexToAddress("0x00000000000000000000000000000000000a4b05"), "ArbosActs", "ArbOS", versionHypervisor},
	{common.HexToAddress("0x0000000000000000000000000000000000000064"), "ArbSys", "ArbSys", versionPrecompile},
	{common.HexToAddress("0x0000000000000000000000000000000000000065"), "ArbInfo", "ArbInfo", versionPrecompile},
	{common.HexToAddress("0x0000000000000000000000000000000000000066"), "ArbAddressTable", "ArbAddressTable", versionPrecompile},
	{common.HexToAddress("0x0000000000000000000000000000000000000067"), "ArbBLS", "ArbBLS", versionPrecompile},
	{common.HexToAddress("0x0000000000000000000000000000000000000068"), "ArbFunctionTable", "ArbFunctionTable", versionPrecompile},
	{common.HexToAddress("0x0000000000000000000000000000000000000069"), "ArbosTest", "ArbosTest", versionPrecompile},
	{common.HexToAddress("0x000000000000000000000000000000000000006b"), "ArbOwnerPublic", "ArbOwnerPublic", versionPrecompile},
	{common.HexToAddress("0x000000000000000000000000000000000000006c"), "ArbGasInfo", "ArbGasInfo", versionPrecompile},
	{common.HexToAddress("0x000000000000000000000000000000000000006d"), "ArbAggregator", "ArbAggregator", versionPrecompile},
	{common.HexToAddress("0x000000000000000000000000000000000000006e"), "ArbRetryableTx", "ArbRetryableTx", versionPrecompile},
	{common.HexToAddress("0x000000000000000000000000000000000000006f"), "ArbStatistics", "ArbStatistics", versionPrecompile},
	{common.HexToAddress("0x0000000000000000000000000000000000000070"), "ArbOwner", "ArbOwner", versionPrecompile},
	{common.HexToAddress("0x00000000000000000000000000000000000000c8"), "NodeInterface", "NodeInterface", versionNone},
	{common.HexToAddress("0x00000000000000000000000000000000000000c9"), "NodeInterfaceDebug", "NodeInterfaceDebug", versionNone},
	{common.HexToAddress("0x00000000000000000000000000000000000000ff"), "ArbDebug", "ArbDebug", versionPrecompile},
}

// Catalog returns the precompiles in installation order. The slice is a copy.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a catalog entry by name or artifact
func Lookup(name string) (Entry, bool) {
	for _, e := range catalog {
		if e.Name == name || e.Artifact == name {
			return e, true
		}
	}
	return Entry{}, false
}
