// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig is the layout of the JSON config file.
type StructuredJSONConfig struct {
	Session struct {
		Channel        string   `json:"channel"`
		DocumentKey    string   `json:"document_key"`
		ResyncInterval Duration `json:"resync_interval"`
		BatchInterval  Duration `json:"batch_interval"`
		DisableResync  bool     `json:"disable_resync"`
		DisableBatch   bool     `json:"disable_batch"`
	} `json:"session,omitempty"`

	Storage struct {
		Driver   string `json:"driver"`
		DSN      string `json:"dsn"`
		Table    string `json:"table"`
		Column   string `json:"column"`
		IDColumn string `json:"id_column"`
		HTTPURL  string `json:"http_url"`
	} `json:"storage,omitempty"`

	Channel struct {
		Transport        string   `json:"transport"`
		RelayURL         string   `json:"relay_url"`
		NATSURL          string   `json:"nats_url"`
		ReconnectTimeout Duration `json:"reconnect_timeout"`
	} `json:"channel,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"server,omitempty"`

	Identity struct {
		Token        string `json:"token"`
		TokenSignKey string `json:"token_sign_key"`
		TokenIssuer  string `json:"token_issuer"`
		GuestFile    string `json:"guest_file"`
		Name         string `json:"name"`
		Color        string `json:"color"`
	} `json:"identity,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	return &StructuredConfig{
		Session: Session{
			Channel:        jsonCfg.Session.Channel,
			DocumentKey:    jsonCfg.Session.DocumentKey,
			ResyncInterval: time.Duration(jsonCfg.Session.ResyncInterval),
			BatchInterval:  time.Duration(jsonCfg.Session.BatchInterval),
			DisableResync:  jsonCfg.Session.DisableResync,
			DisableBatch:   jsonCfg.Session.DisableBatch,
		},
		Storage: Storage{
			Driver:   jsonCfg.Storage.Driver,
			DSN:      jsonCfg.Storage.DSN,
			Table:    jsonCfg.Storage.Table,
			Column:   jsonCfg.Storage.Column,
			IDColumn: jsonCfg.Storage.IDColumn,
			HTTPURL:  jsonCfg.Storage.HTTPURL,
		},
		Channel: Channel{
			Transport:        jsonCfg.Channel.Transport,
			RelayURL:         jsonCfg.Channel.RelayURL,
			NATSURL:          jsonCfg.Channel.NATSURL,
			ReconnectTimeout: time.Duration(jsonCfg.Channel.ReconnectTimeout),
		},
		Server: Server{
			HTTPAddress:    jsonCfg.Server.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
		},
		Identity: Identity{
			Token:        jsonCfg.Identity.Token,
			TokenSignKey: jsonCfg.Identity.TokenSignKey,
			TokenIssuer:  jsonCfg.Identity.TokenIssuer,
			GuestFile:    jsonCfg.Identity.GuestFile,
			Name:         jsonCfg.Identity.Name,
			Color:        jsonCfg.Identity.Color,
		},
	}, nil
}

// Duration reads either a Go duration string ("1h", "30s") or a number of
// nanoseconds from JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
