// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"strconv"
	"strings"
)

// DocumentKey identifies one document row. Deployments key documents either
// by a numeric primary key or by a string identifier (for example a URL
// slug), so the key keeps track of which form it was created from and hands
// the matching Go type to database drivers.
type DocumentKey struct {
	raw     string
	num     int64
	numeric bool
}

// NewStringKey returns a key that is always compared as a string.
func NewStringKey(s string) DocumentKey {
	return DocumentKey{raw: s}
}

// NewNumericKey returns a key backed by an integer identifier.
func NewNumericKey(n int64) DocumentKey {
	return DocumentKey{raw: strconv.FormatInt(n, 10), num: n, numeric: true}
}

// ParseDocumentKey builds a numeric key when s is a base-10 integer and a
// string key otherwise.
func ParseDocumentKey(s string) DocumentKey {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return NewNumericKey(n)
	}
	return NewStringKey(s)
}

// String returns the textual form of the key.
func (k DocumentKey) String() string {
	return k.raw
}

// IsZero reports whether the key is empty.
func (k DocumentKey) IsZero() bool {
	return k.raw == ""
}

// IsNumeric reports whether the key was created from an integer.
func (k DocumentKey) IsNumeric() bool {
	return k.numeric
}

// Arg returns the value passed to SQL drivers as a query argument.
func (k DocumentKey) Arg() any {
	if k.numeric {
		return k.num
	}
	return k.raw
}
