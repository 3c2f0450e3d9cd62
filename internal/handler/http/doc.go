// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package http implements the relay's HTTP surface.
//
// It wires the chi router with the websocket bridge (/ws/{channel}) that
// connects peers to the in-memory channel hub, the snapshot REST endpoints
// (/api/documents/{key}/snapshot) backed by the snapshot service, and the
// version endpoint. Tracing, access logging, compression and optional token
// checks are middlewares applied before requests reach the handlers.
package http
