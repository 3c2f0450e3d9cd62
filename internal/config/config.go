// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
	DriverHTTP     = "http"
)

// Channel transports.
const (
	TransportWebsocket = "websocket"
	TransportNATS      = "nats"
)

// StructuredConfig is the merged configuration of every weave-sync role.
//
// Struct tags:
//   - envPrefix: prefix applied to nested env lookups (caarlos0/env).
//   - env:       environment variable name of a scalar field.
type StructuredConfig struct {
	// Session describes the document a peer opens.
	Session Session `envPrefix:"SESSION_"`

	// Storage selects and configures the snapshot store.
	Storage Storage `envPrefix:"STORAGE_"`

	// Channel selects and configures the broadcast transport.
	Channel Channel `envPrefix:"CHANNEL_"`

	// Server holds the relay server's listen address and timeouts.
	Server Server `envPrefix:"SERVER_"`

	// Identity decides the presence key a peer announces.
	Identity Identity `envPrefix:"IDENTITY_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// Env: CONFIG
	JSONFilePath string `env:"CONFIG"`
}

// Session configures one sync session.
type Session struct {
	// Channel is the broadcast channel (room) name.
	// Env: SESSION_CHANNEL
	Channel string `env:"CHANNEL"`

	// DocumentKey identifies the document row; integers are treated as
	// numeric keys.
	// Env: SESSION_DOCUMENT_KEY
	DocumentKey string `env:"DOCUMENT_KEY"`

	// ResyncInterval overrides the full-state rebroadcast period.
	// Env: SESSION_RESYNC_INTERVAL
	ResyncInterval time.Duration `env:"RESYNC_INTERVAL"`

	// BatchInterval overrides the delta batching period.
	// Env: SESSION_BATCH_INTERVAL
	BatchInterval time.Duration `env:"BATCH_INTERVAL"`

	// Env: SESSION_DISABLE_RESYNC
	DisableResync bool `env:"DISABLE_RESYNC"`

	// Env: SESSION_DISABLE_BATCH
	DisableBatch bool `env:"DISABLE_BATCH"`
}

// Storage configures the snapshot store.
type Storage struct {
	// Driver is one of postgres, sqlite, memory or http.
	// Env: STORAGE_DRIVER
	Driver string `env:"DRIVER"`

	// DSN is the database connection string (a file path for sqlite).
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DB_DATABASE_URI"`

	// Table, Column and IDColumn describe the snapshot table layout.
	// Env: STORAGE_TABLE, STORAGE_COLUMN, STORAGE_ID_COLUMN
	Table    string `env:"TABLE"`
	Column   string `env:"COLUMN"`
	IDColumn string `env:"ID_COLUMN"`

	// HTTPURL is the relay base URL used by the http driver.
	// Env: STORAGE_HTTP_URL
	HTTPURL string `env:"HTTP_URL"`
}

// Channel configures the broadcast transport.
type Channel struct {
	// Transport is websocket or nats.
	// Env: CHANNEL_TRANSPORT
	Transport string `env:"TRANSPORT"`

	// RelayURL is the relay base URL for the websocket transport
	// (e.g. "ws://localhost:8080").
	// Env: CHANNEL_RELAY_URL
	RelayURL string `env:"RELAY_URL"`

	// NATSURL is the broker URL for the nats transport.
	// Env: CHANNEL_NATS_URL
	NATSURL string `env:"NATS_URL"`

	// ReconnectTimeout is the pause before a dropped connection is retried.
	// Env: CHANNEL_RECONNECT_TIMEOUT
	ReconnectTimeout time.Duration `env:"RECONNECT_TIMEOUT"`
}

// Server holds network and timeout settings of the relay.
type Server struct {
	// HTTPAddress is the "host:port" the relay listens on.
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds a single REST request.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Identity decides who a peer is on the presence channel.
type Identity struct {
	// Token is an HS256 JWT whose subject becomes the presence key.
	// Env: IDENTITY_TOKEN
	Token string `env:"TOKEN"`

	// TokenSignKey verifies Token. On the relay it enables token checks on
	// websocket connections.
	// Env: IDENTITY_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the expected "iss" claim; empty accepts any issuer.
	// Env: IDENTITY_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// GuestFile stores the generated guest id between runs.
	// Env: IDENTITY_GUEST_FILE
	GuestFile string `env:"GUEST_FILE"`

	// Name and Color are announced through awareness.
	// Env: IDENTITY_NAME, IDENTITY_COLOR
	Name  string `env:"NAME"`
	Color string `env:"COLOR"`
}

// defaults returns the built-in configuration every source is merged over.
func defaults() *StructuredConfig {
	return &StructuredConfig{
		Storage: Storage{
			Driver: DriverSQLite,
			DSN:    "weave.db",
		},
		Channel: Channel{
			Transport:        TransportWebsocket,
			RelayURL:         "ws://localhost:8080",
			ReconnectTimeout: 3 * time.Second,
		},
		Server: Server{
			HTTPAddress:    "localhost:8080",
			RequestTimeout: 30 * time.Second,
		},
		Identity: Identity{
			GuestFile: ".weave_guest_id",
		},
	}
}

// GetStructuredConfig loads and merges configuration from defaults,
// environment, command-line flags and the optional JSON file.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withDefaults().
		withEnv().
		withFlags().
		withJSON().
		build()
}
