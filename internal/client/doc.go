// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client runs a peer: it resolves the peer identity, opens the
// snapshot store and the broadcast channel named by the configuration, and
// keeps one sync session alive for as long as the user interface runs.
//
// The session is saved and destroyed on every exit path, including a
// SIGINT or SIGTERM shutdown.
package client
