// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package awareness

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformedUpdate is returned for awareness updates that cannot be decoded.
var ErrMalformedUpdate = errors.New("malformed awareness update")

// record is one client entry of an update. A nil state encodes a removal.
type record struct {
	client uint64
	clock  uint64
	state  State
}

// Update layout:
//
//	varuint count
//	count × { varuint client; varuint clock; varuint len; JSON state or "null" }
func encodeUpdate(records []record) []byte {
	out := protowire.AppendVarint(nil, uint64(len(records)))
	for _, r := range records {
		out = protowire.AppendVarint(out, r.client)
		out = protowire.AppendVarint(out, r.clock)

		data := []byte("null")
		if r.state != nil {
			if encoded, err := json.Marshal(r.state); err == nil {
				data = encoded
			}
		}
		out = protowire.AppendBytes(out, data)
	}
	return out
}

func decodeUpdate(b []byte) ([]record, error) {
	count, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return nil, fmt.Errorf("%w: %v", ErrMalformedUpdate, protowire.ParseError(n))
	}
	b = b[n:]
	// every record takes at least three bytes
	if count > uint64(len(b)/3) {
		return nil, fmt.Errorf("%w: %d records in %d bytes", ErrMalformedUpdate, count, len(b))
	}

	records := make([]record, 0, count)
	for i := uint64(0); i < count; i++ {
		var r record
		if r.client, n = protowire.ConsumeVarint(b); n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedUpdate, protowire.ParseError(n))
		}
		b = b[n:]
		if r.clock, n = protowire.ConsumeVarint(b); n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedUpdate, protowire.ParseError(n))
		}
		b = b[n:]

		data, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedUpdate, protowire.ParseError(n))
		}
		b = b[n:]

		if err := json.Unmarshal(data, &r.state); err != nil {
			return nil, fmt.Errorf("%w: client %d: %v", ErrMalformedUpdate, r.client, err)
		}
		records = append(records, r)
	}
	if len(b) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedUpdate, len(b))
	}
	return records, nil
}
