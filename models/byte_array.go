// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedByteArray is returned when a JSON value cannot be read as an
// array of byte values (integers in the 0..255 range).
var ErrMalformedByteArray = errors.New("malformed byte array")

// ByteArray is a binary payload that travels as a JSON array of small
// integers instead of the base64 string encoding/json uses for []byte.
// It is the wire form of update deltas, snapshots and awareness updates and
// the storage form of the snapshot column.
type ByteArray []byte

// MarshalJSON encodes b as [n0,n1,...]. A nil array is encoded as [].
func (b ByteArray) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 2+len(b)*4)
	buf = append(buf, '[')
	for i, v := range b {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendUint(buf, uint64(v), 10)
	}
	buf = append(buf, ']')
	return buf, nil
}

// UnmarshalJSON decodes an array of integers. Every element must be in the
// 0..255 range; anything else yields ErrMalformedByteArray.
func (b *ByteArray) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*b = nil
		return nil
	}

	var values []int64
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedByteArray, err)
	}

	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return fmt.Errorf("%w: element %d out of range (%d)", ErrMalformedByteArray, i, v)
		}
		out[i] = byte(v)
	}

	*b = out
	return nil
}

// Value implements driver.Valuer: the array is stored as JSON text.
func (b ByteArray) Value() (driver.Value, error) {
	data, err := b.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for columns written by Value.
func (b *ByteArray) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*b = nil
		return nil
	case string:
		return b.UnmarshalJSON([]byte(v))
	case []byte:
		return b.UnmarshalJSON(v)
	default:
		return fmt.Errorf("%w: unsupported column type %T", ErrMalformedByteArray, src)
	}
}
