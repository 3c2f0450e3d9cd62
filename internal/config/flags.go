// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// NetAddress is a "host:port" pair implementing flag.Value.
type NetAddress struct {
	Host string
	Port int
}

// parseFlags reads command-line configuration from args into a fresh
// config using fs.
//
// Flags:
//
//	-channel            session channel name
//	-doc                document key
//	-resync-interval    full-state rebroadcast period (e.g. "5s")
//	-batch-interval     delta batching period (e.g. "1s")
//	-disable-resync     turn periodic resync off
//	-disable-batch      send every delta immediately
//	-storage            storage driver: postgres, sqlite, memory, http
//	-d                  database DSN or sqlite file
//	-table, -column, -id-column   snapshot table layout
//	-storage-url        relay base URL for the http driver
//	-transport          channel transport: websocket, nats
//	-relay-url          relay websocket base URL
//	-nats-url           NATS server URL
//	-reconnect-timeout  pause before reconnecting
//	-a                  relay listen address host:port
//	-request-timeout    relay REST request timeout
//	-token, -token-sign-key, -token-issuer   JWT identity
//	-guest-file         guest id file
//	-name, -color       display name and color
//	-c / -config        JSON config file
func parseFlags(fs *flag.FlagSet, args []string) (*StructuredConfig, error) {
	cfg := &StructuredConfig{}
	var serverAddress NetAddress

	fs.StringVar(&cfg.Session.Channel, "channel", "", "Session channel name")
	fs.StringVar(&cfg.Session.DocumentKey, "doc", "", "Document key")
	fs.DurationVar(&cfg.Session.ResyncInterval, "resync-interval", 0, "Full-state resync interval")
	fs.DurationVar(&cfg.Session.BatchInterval, "batch-interval", 0, "Delta batch interval")
	fs.BoolVar(&cfg.Session.DisableResync, "disable-resync", false, "Disable periodic resync")
	fs.BoolVar(&cfg.Session.DisableBatch, "disable-batch", false, "Disable delta batching")

	fs.StringVar(&cfg.Storage.Driver, "storage", "", "Storage driver (postgres, sqlite, memory, http)")
	fs.StringVar(&cfg.Storage.DSN, "d", "", "Database DSN")
	fs.StringVar(&cfg.Storage.Table, "table", "", "Snapshot table")
	fs.StringVar(&cfg.Storage.Column, "column", "", "Snapshot content column")
	fs.StringVar(&cfg.Storage.IDColumn, "id-column", "", "Snapshot lookup column")
	fs.StringVar(&cfg.Storage.HTTPURL, "storage-url", "", "Relay base URL for the http storage driver")

	fs.StringVar(&cfg.Channel.Transport, "transport", "", "Channel transport (websocket, nats)")
	fs.StringVar(&cfg.Channel.RelayURL, "relay-url", "", "Relay websocket base URL")
	fs.StringVar(&cfg.Channel.NATSURL, "nats-url", "", "NATS server URL")
	fs.DurationVar(&cfg.Channel.ReconnectTimeout, "reconnect-timeout", 0, "Pause before reconnecting")

	fs.Var(&serverAddress, "a", "Net address host:port")
	fs.DurationVar(&cfg.Server.RequestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")

	fs.StringVar(&cfg.Identity.Token, "token", "", "Identity JWT")
	fs.StringVar(&cfg.Identity.TokenSignKey, "token-sign-key", "", "Token signing key")
	fs.StringVar(&cfg.Identity.TokenIssuer, "token-issuer", "", "Token issuer")
	fs.StringVar(&cfg.Identity.GuestFile, "guest-file", "", "Guest id file")
	fs.StringVar(&cfg.Identity.Name, "name", "", "Display name")
	fs.StringVar(&cfg.Identity.Color, "color", "", "Display color")

	fs.StringVar(&cfg.JSONFilePath, "c", "", "JSON config file path")
	fs.StringVar(&cfg.JSONFilePath, "config", "", "JSON config file path (alias)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}
	cfg.Server.HTTPAddress = serverAddress.String()

	return cfg, nil
}

// String returns host:port, or "" when nothing was set.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}
	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses host:port. The host must be an IP address, "localhost" or
// empty (all interfaces).
func (a *NetAddress) Set(s string) error {
	host, portStr, found := strings.Cut(s, ":")
	if !found || strings.Contains(portStr, ":") {
		return errors.New("need address in a form `host:port`")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return err
	}
	if port < 1 || port > 65535 {
		return errors.New("port number must be in 1..65535")
	}

	if host != "" && host != "localhost" && net.ParseIP(host) == nil {
		return errors.New("incorrect IP-address provided")
	}

	a.Host = host
	a.Port = port
	return nil
}
