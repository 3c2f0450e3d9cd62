// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "errors"

// Validation errors returned by the role views when a configuration group
// is incomplete or invalid.
var (
	// ErrInvalidSessionConfigs: missing channel name or document key.
	ErrInvalidSessionConfigs = errors.New("invalid session configuration")
	// ErrInvalidStorageConfigs: unknown driver or a driver without its DSN/URL.
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidChannelConfigs: unknown transport or a transport without its URL.
	ErrInvalidChannelConfigs = errors.New("invalid channel configuration")
	// ErrInvalidServerConfigs: missing listen address or request timeout.
	ErrInvalidServerConfigs = errors.New("invalid server configuration")
	// ErrInvalidIdentityConfigs: a token without the key to verify it.
	ErrInvalidIdentityConfigs = errors.New("invalid identity configuration")
)
