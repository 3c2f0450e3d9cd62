// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

// validate checks invariants shared by every role. Role-specific checks
// live on the views.
func (cfg *StructuredConfig) validate() error {
	if cfg.Session.ResyncInterval < 0 || cfg.Session.BatchInterval < 0 ||
		cfg.Channel.ReconnectTimeout < 0 || cfg.Server.RequestTimeout < 0 {
		return ErrInvalidSessionConfigs
	}
	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Session.Channel == "" || cfg.Session.DocumentKey == "" {
		return ErrInvalidSessionConfigs
	}

	switch cfg.Storage.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if cfg.Storage.DSN == "" {
			return ErrInvalidStorageConfigs
		}
	case DriverHTTP:
		if cfg.Storage.HTTPURL == "" {
			return ErrInvalidStorageConfigs
		}
	default:
		return ErrInvalidStorageConfigs
	}

	switch cfg.Channel.Transport {
	case TransportWebsocket:
		if cfg.Channel.RelayURL == "" {
			return ErrInvalidChannelConfigs
		}
	case TransportNATS:
		if cfg.Channel.NATSURL == "" {
			return ErrInvalidChannelConfigs
		}
	default:
		return ErrInvalidChannelConfigs
	}

	if cfg.Identity.Token != "" && cfg.Identity.TokenSignKey == "" {
		return ErrInvalidIdentityConfigs
	}

	return nil
}

func (cfg *RelayConfig) validate() error {
	if cfg.Server.HTTPAddress == "" || cfg.Server.RequestTimeout == 0 {
		return ErrInvalidServerConfigs
	}

	switch cfg.Storage.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if cfg.Storage.DSN == "" {
			return ErrInvalidStorageConfigs
		}
	default:
		return ErrInvalidStorageConfigs
	}

	return nil
}
