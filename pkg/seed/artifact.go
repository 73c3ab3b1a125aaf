package seed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Artifact is the ABI and description shipped for one catalog entry
type Artifact struct {
	ABI         json.RawMessage
	Description string
}

// LoadArtifact reads <dir>/<base>.abi and <dir>/<base>.txt
func LoadArtifact(dir, base string) (Artifact, error) {
	abiPath := filepath.Join(dir, base+".abi")
	abiJSON, err := os.ReadFile(abiPath)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to read abi: %w", err)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, abiJSON); err != nil {
		return Artifact{}, fmt.Errorf("failed to parse abi %s: %w", abiPath, err)
	}

	desc, err := os.ReadFile(filepath.Join(dir, base+".txt"))
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to read description: %w", err)
	}

	return Artifact{
		ABI:         compact.Bytes(),
		Description: strings.TrimSpace(string(desc)),
	}, nil
}
