package explorer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Bytes is a bytea value. It marshals as {"type":"Buffer","data":[...]} so
// export files stay readable by the existing node tooling, and unmarshals from
// that form, a 0x hex string, or null.
type Bytes []byte

type buffer struct {
	Type string `json:"type"`
	Data []int  `json:"data"`
}

func (b Bytes) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	data := make([]int, len(b))
	for i, v := range b {
		data[i] = int(v)
	}
	return json.Marshal(buffer{Type: "Buffer", Data: data})
}

func (b *Bytes) UnmarshalJSON(input []byte) error {
	input = bytes.TrimSpace(input)
	switch {
	case bytes.Equal(input, []byte("null")):
		*b = nil
		return nil
	case len(input) > 0 && input[0] == '"':
		var s string
		if err := json.Unmarshal(input, &s); err != nil {
			return err
		}
		decoded, err := hexutil.Decode(s)
		if err != nil {
			return fmt.Errorf("invalid bytea hex %q: %w", s, err)
		}
		*b = decoded
		return nil
	}

	var buf buffer
	if err := json.Unmarshal(input, &buf); err != nil {
		return fmt.Errorf("invalid bytea: %w", err)
	}
	if buf.Type != "" && buf.Type != "Buffer" {
		return fmt.Errorf("invalid bytea wrapper type %q", buf.Type)
	}
	out := make([]byte, len(buf.Data))
	for i, v := range buf.Data {
		if v < 0 || v > 0xff {
			return fmt.Errorf("invalid bytea: byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}
