// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"encoding/json"
	"flag"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func writeTempJSONConfig(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	f, err := os.CreateTemp(t.TempDir(), "config-*.json")
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func testBuilder(args ...string) *configBuilder {
	b := newConfigBuilder()
	b.flagSet = flag.NewFlagSet("test", flag.ContinueOnError)
	b.args = args
	return b
}

// ── build ─────────────────────────────────────────────────────────────────────

func TestBuild_EmptyBuilder(t *testing.T) {
	cfg, err := testBuilder().build()
	require.NoError(t, err)
	assert.Equal(t, &StructuredConfig{}, cfg)
}

func TestBuild_PropagatesBuilderError(t *testing.T) {
	b := testBuilder()
	b.err = assert.AnError

	cfg, err := b.build()
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestBuild_LaterSourcesOverride(t *testing.T) {
	b := testBuilder()
	b.configs = append(b.configs,
		&StructuredConfig{Session: Session{Channel: "first", DocumentKey: "1"}},
		&StructuredConfig{Session: Session{Channel: "second"}},
	)

	cfg, err := b.build()
	require.NoError(t, err)
	assert.Equal(t, "second", cfg.Session.Channel)
	assert.Equal(t, "1", cfg.Session.DocumentKey, "zero fields do not override")
}

func TestBuild_RejectsNegativeDurations(t *testing.T) {
	b := testBuilder()
	b.configs = append(b.configs, &StructuredConfig{Session: Session{BatchInterval: -time.Second}})

	_, err := b.build()
	assert.ErrorIs(t, err, ErrInvalidSessionConfigs)
}

// ── sources ───────────────────────────────────────────────────────────────────

func TestBuilder_DefaultsEnvFlagsJSON(t *testing.T) {
	t.Setenv("SESSION_CHANNEL", "from-env")
	t.Setenv("SESSION_DOCUMENT_KEY", "42")
	t.Setenv("CHANNEL_TRANSPORT", "nats")

	jsonPath := writeTempJSONConfig(t, map[string]any{
		"channel": map[string]any{"nats_url": "nats://json:4222"},
		"session": map[string]any{"resync_interval": "10s"},
	})

	cfg, err := testBuilder("-channel", "from-flags", "-c", jsonPath).
		withDefaults().
		withEnv().
		withFlags().
		withJSON().
		build()
	require.NoError(t, err)

	assert.Equal(t, "from-flags", cfg.Session.Channel)
	assert.Equal(t, "42", cfg.Session.DocumentKey)
	assert.Equal(t, 10*time.Second, cfg.Session.ResyncInterval)
	assert.Equal(t, TransportNATS, cfg.Channel.Transport)
	assert.Equal(t, "nats://json:4222", cfg.Channel.NATSURL)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver, "default survives")
	assert.Equal(t, 3*time.Second, cfg.Channel.ReconnectTimeout)
}

func TestBuilder_WithJSON_MissingFile(t *testing.T) {
	b := testBuilder()
	b.configs = append(b.configs, &StructuredConfig{JSONFilePath: "/does/not/exist.json"})

	_, err := b.withJSON().build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading a json file")
}

func TestBuilder_WithJSON_NotSpecified(t *testing.T) {
	b := testBuilder().withJSON()
	assert.NoError(t, b.err)
	assert.Empty(t, b.configs)
}

func TestBuilder_WithFlags_BadFlag(t *testing.T) {
	b := testBuilder("-no-such-flag").withFlags()
	require.Error(t, b.err)
}

// ── views ─────────────────────────────────────────────────────────────────────

func validClientConfig() *ClientConfig {
	cfg := defaults()
	cfg.Session = Session{Channel: "doc-room", DocumentKey: "1"}
	return cfg.Client()
}

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ClientConfig)
		want   error
	}{
		{name: "valid defaults", mutate: func(*ClientConfig) {}},
		{name: "missing channel", mutate: func(c *ClientConfig) { c.Session.Channel = "" }, want: ErrInvalidSessionConfigs},
		{name: "missing document key", mutate: func(c *ClientConfig) { c.Session.DocumentKey = "" }, want: ErrInvalidSessionConfigs},
		{name: "unknown driver", mutate: func(c *ClientConfig) { c.Storage.Driver = "mongo" }, want: ErrInvalidStorageConfigs},
		{name: "postgres without dsn", mutate: func(c *ClientConfig) {
			c.Storage.Driver = DriverPostgres
			c.Storage.DSN = ""
		}, want: ErrInvalidStorageConfigs},
		{name: "http without url", mutate: func(c *ClientConfig) { c.Storage.Driver = DriverHTTP }, want: ErrInvalidStorageConfigs},
		{name: "http with url", mutate: func(c *ClientConfig) {
			c.Storage.Driver = DriverHTTP
			c.Storage.HTTPURL = "http://localhost:8080"
		}},
		{name: "memory storage", mutate: func(c *ClientConfig) { c.Storage.Driver = DriverMemory }},
		{name: "nats without url", mutate: func(c *ClientConfig) { c.Channel.Transport = TransportNATS }, want: ErrInvalidChannelConfigs},
		{name: "websocket without url", mutate: func(c *ClientConfig) { c.Channel.RelayURL = "" }, want: ErrInvalidChannelConfigs},
		{name: "unknown transport", mutate: func(c *ClientConfig) { c.Channel.Transport = "carrier-pigeon" }, want: ErrInvalidChannelConfigs},
		{name: "token without key", mutate: func(c *ClientConfig) { c.Identity.Token = "abc" }, want: ErrInvalidIdentityConfigs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validClientConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRelayConfig_Validate(t *testing.T) {
	cfg := defaults().Relay()
	require.NoError(t, cfg.validate())

	cfg.Storage.Driver = DriverHTTP
	assert.ErrorIs(t, cfg.validate(), ErrInvalidStorageConfigs)

	cfg = defaults().Relay()
	cfg.Server.HTTPAddress = ""
	assert.ErrorIs(t, cfg.validate(), ErrInvalidServerConfigs)
}
