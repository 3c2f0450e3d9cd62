// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crdt

import (
	"fmt"
	"slices"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire layout (protobuf-compatible):
//
//	update { repeated entry entries = 1; }
//	entry  { bytes key = 1; bytes value = 2; bool deleted = 3;
//	         uint64 clock = 4; uint64 client = 5; }
const (
	fieldUpdateEntry protowire.Number = 1

	fieldEntryKey     protowire.Number = 1
	fieldEntryValue   protowire.Number = 2
	fieldEntryDeleted protowire.Number = 3
	fieldEntryClock   protowire.Number = 4
	fieldEntryClient  protowire.Number = 5
)

// encodeEntries writes entries sorted by key, so equal states always encode
// to equal bytes.
func encodeEntries(entries []entry) []byte {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b entry) int {
		return strings.Compare(a.key, b.key)
	})

	var out []byte
	for _, e := range sorted {
		out = protowire.AppendTag(out, fieldUpdateEntry, protowire.BytesType)
		out = protowire.AppendBytes(out, encodeEntry(e))
	}
	return out
}

func encodeEntry(e entry) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldEntryKey, protowire.BytesType)
	b = protowire.AppendString(b, e.key)
	if e.value != "" {
		b = protowire.AppendTag(b, fieldEntryValue, protowire.BytesType)
		b = protowire.AppendString(b, e.value)
	}
	if e.deleted {
		b = protowire.AppendTag(b, fieldEntryDeleted, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	b = protowire.AppendTag(b, fieldEntryClock, protowire.VarintType)
	b = protowire.AppendVarint(b, e.clock)
	b = protowire.AppendTag(b, fieldEntryClient, protowire.VarintType)
	b = protowire.AppendVarint(b, e.client)
	return b
}

// decodeEntries decodes an update. Non-empty input without a single entry
// is malformed.
func decodeEntries(input []byte) ([]entry, error) {
	var entries []entry
	b := input
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedUpdate, protowire.ParseError(n))
		}
		b = b[n:]

		if num != fieldUpdateEntry || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedUpdate, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedUpdate, protowire.ParseError(n))
		}
		b = b[n:]

		e, err := decodeEntry(raw)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 && len(input) > 0 {
		return nil, fmt.Errorf("%w: no entries", ErrMalformedUpdate)
	}
	return entries, nil
}

func decodeEntry(b []byte) (entry, error) {
	var e entry
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return entry{}, fmt.Errorf("%w: %v", ErrMalformedUpdate, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldEntryKey && typ == protowire.BytesType:
			var v []byte
			v, n = protowire.ConsumeBytes(b)
			e.key = string(v)
		case num == fieldEntryValue && typ == protowire.BytesType:
			var v []byte
			v, n = protowire.ConsumeBytes(b)
			e.value = string(v)
		case num == fieldEntryDeleted && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			e.deleted = protowire.DecodeBool(v)
		case num == fieldEntryClock && typ == protowire.VarintType:
			e.clock, n = protowire.ConsumeVarint(b)
		case num == fieldEntryClient && typ == protowire.VarintType:
			e.client, n = protowire.ConsumeVarint(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return entry{}, fmt.Errorf("%w: %v", ErrMalformedUpdate, protowire.ParseError(n))
		}
		b = b[n:]
	}

	if e.clock == 0 {
		return entry{}, fmt.Errorf("%w: entry %q has no clock", ErrMalformedUpdate, e.key)
	}
	return e, nil
}
