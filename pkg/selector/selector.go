// Package selector derives 4-byte function selectors from contract ABIs.
package selector

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrInvalidABI is returned when an ABI cannot be parsed
var ErrInvalidABI = errors.New("invalid abi")

// Selector is the first four bytes of keccak256(signature), big-endian
type Selector uint32

// FromID converts a 4-byte method id
func FromID(id []byte) Selector {
	return Selector(binary.BigEndian.Uint32(id[:4]))
}

// Int32 returns the same bit pattern as a signed integer, the form stored in
// contract_methods.identifier
func (s Selector) Int32() int32 {
	return int32(s)
}

// Bytes returns the selector as 4 bytes
func (s Selector) Bytes() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(s))
	return b
}

// Hex returns the 0x-prefixed selector
func (s Selector) Hex() string {
	return hexutil.Encode(s.Bytes())
}

func (s Selector) String() string {
	return s.Hex()
}

// Method is one function of an ABI together with its selector
type Method struct {
	Selector  Selector
	Name      string
	Signature string

	// Entry is the function's ABI entry as declared, compacted
	Entry json.RawMessage
}

// entry is the part of an ABI item needed to rebuild its signature
type entry struct {
	Type   string                    `json:"type"`
	Name   string                    `json:"name"`
	Inputs []abi.ArgumentMarshaling `json:"inputs"`
}

// Derive computes the selector of every function in abiJSON. Methods are
// returned in declaration order. Overloaded functions are told apart by
// their full canonical signature, so each overload keeps its own selector.
func Derive(abiJSON []byte) ([]Method, error) {
	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidABI, err)
	}

	bySig := make(map[string]Selector, len(parsed.Methods))
	for _, m := range parsed.Methods {
		bySig[m.Sig] = FromID(m.ID)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(abiJSON, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidABI, err)
	}

	methods := make([]Method, 0, len(bySig))
	for i, item := range raw {
		var e entry
		if err := json.Unmarshal(item, &e); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidABI, i, err)
		}
		if e.Type != "function" {
			continue
		}

		sig, err := Signature(e.Name, e.Inputs)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s): %v", ErrInvalidABI, i, e.Name, err)
		}
		sel, ok := bySig[sig]
		if !ok {
			return nil, fmt.Errorf("%w: entry %d: no parsed method for %s", ErrInvalidABI, i, sig)
		}

		methods = append(methods, Method{
			Selector:  sel,
			Name:      e.Name,
			Signature: sig,
			Entry:     compact(item),
		})
	}

	return methods, nil
}

// Signature renders the canonical signature name(type1,type2,...)
func Signature(name string, inputs []abi.ArgumentMarshaling) (string, error) {
	types := make([]string, len(inputs))
	for i, in := range inputs {
		t, err := abi.NewType(in.Type, in.InternalType, in.Components)
		if err != nil {
			return "", err
		}
		types[i] = t.String()
	}
	return name + "(" + strings.Join(types, ",") + ")", nil
}

func compact(item json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, item); err != nil {
		return item
	}
	return buf.Bytes()
}
