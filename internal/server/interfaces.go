// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package server

// Server is the lifecycle contract of the relay.
type Server interface {
	// RunServer serves until SIGINT, SIGTERM or SIGQUIT and then shuts
	// down gracefully.
	RunServer()

	// Shutdown stops the server and frees its resources.
	Shutdown()
}
