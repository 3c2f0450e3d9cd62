// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "fmt"

// ClientConfig is the configuration view of a peer.
type ClientConfig struct {
	Session  Session
	Storage  Storage
	Channel  Channel
	Identity Identity
}

// GetClientConfig builds and validates the peer view of the merged
// configuration.
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := cfg.Client()
	return clientCfg, clientCfg.validate()
}

// Client returns the peer view of cfg.
func (cfg *StructuredConfig) Client() *ClientConfig {
	return &ClientConfig{
		Session:  cfg.Session,
		Storage:  cfg.Storage,
		Channel:  cfg.Channel,
		Identity: cfg.Identity,
	}
}

// RelayConfig is the configuration view of the relay server.
type RelayConfig struct {
	Server   Server
	Storage  Storage
	Identity Identity
}

// GetRelayConfig builds and validates the relay view of the merged
// configuration.
func GetRelayConfig() (*RelayConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	relayCfg := cfg.Relay()
	return relayCfg, relayCfg.validate()
}

// Relay returns the relay view of cfg.
func (cfg *StructuredConfig) Relay() *RelayConfig {
	return &RelayConfig{
		Server:   cfg.Server,
		Storage:  cfg.Storage,
		Identity: cfg.Identity,
	}
}
