// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package utils provides general-purpose helper utilities used across
// different parts of the application: type-safe context keys, id generation
// and JWT token generation and validation.
package utils

import (
	"context"
)

// contextKey is a private type for context keys.
// Using a dedicated type instead of a plain string prevents key collisions
// with other packages that may use string-based keys in the context.
type contextKey string

// String returns the string representation of the context key.
func (c contextKey) String() string {
	return string(c)
}

// PeerKeyCtxKey is the key used to store the presence key of an
// authenticated peer in the context.
//
// Example of writing a value to the context:
//
//	ctx := context.WithValue(ctx, utils.PeerKeyCtxKey, "42")
var PeerKeyCtxKey = contextKey("peerKey")

// GetPeerKeyFromContext retrieves the presence key stored under
// PeerKeyCtxKey. ok is false when the value is missing, empty or has an
// unexpected type.
func GetPeerKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(PeerKeyCtxKey).(string)
	return key, ok && key != ""
}
