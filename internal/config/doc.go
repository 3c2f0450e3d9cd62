// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package config loads, merges and validates weave-sync configuration.
//
// Configuration is assembled from the following sources; later sources
// override earlier non-zero fields:
//  1. Built-in defaults
//  2. Environment variables
//  3. Command-line flags
//  4. JSON config file (path from CONFIG or -c / -config)
//
// The entry points are [GetClientConfig] for a peer and [GetRelayConfig]
// for the relay server. Both return role-specific views of
// [StructuredConfig].
package config
