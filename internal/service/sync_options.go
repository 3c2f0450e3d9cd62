// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MKhiriev/weave-sync/internal/awareness"
	"github.com/MKhiriev/weave-sync/internal/config"
	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/models"
)

const (
	DefaultResyncInterval = 5 * time.Second
	MinResyncInterval     = 3 * time.Second

	DefaultBatchInterval = 500 * time.Millisecond
	MinBatchInterval     = time.Second

	// SaveDebounce is the quiet period after the last local edit before the
	// snapshot is written.
	SaveDebounce = time.Second
)

// Options configures one sync session.
//
// The batch interval floor applies only to an explicit BatchInterval. The
// default of 500ms is below it and is used as is.
type Options struct {
	ChannelName string
	DocumentKey models.DocumentKey

	// ResyncInterval defaults to DefaultResyncInterval when zero.
	ResyncInterval time.Duration
	DisableResync  bool

	// BatchInterval defaults to DefaultBatchInterval when zero.
	BatchInterval time.Duration
	// DisableBatch sends every local delta as soon as it is produced.
	DisableBatch bool

	// Awareness is shared with the host when set; a private instance keyed
	// by the document's client id is created otherwise.
	Awareness *awareness.Awareness

	// Presence is tracked on the channel once the session connects.
	Presence *models.PresenceEntry

	Clock  clockwork.Clock
	Logger *logger.Logger
}

// OptionsFromConfig maps the session group of the peer configuration.
func OptionsFromConfig(cfg config.Session) Options {
	return Options{
		ChannelName:    cfg.Channel,
		DocumentKey:    models.ParseDocumentKey(cfg.DocumentKey),
		ResyncInterval: cfg.ResyncInterval,
		DisableResync:  cfg.DisableResync,
		BatchInterval:  cfg.BatchInterval,
		DisableBatch:   cfg.DisableBatch,
	}
}

func (o Options) withDefaults() Options {
	if o.ResyncInterval == 0 {
		o.ResyncInterval = DefaultResyncInterval
	}
	if o.BatchInterval == 0 {
		o.BatchInterval = DefaultBatchInterval
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	return o
}

// validate checks the options as given, before defaults are applied.
func (o Options) validate() error {
	if o.ChannelName == "" {
		return fmt.Errorf("%w: empty channel name", ErrConfig)
	}
	if o.DocumentKey.IsZero() {
		return fmt.Errorf("%w: empty document key", ErrConfig)
	}
	if !o.DisableResync && o.ResyncInterval != 0 && o.ResyncInterval < MinResyncInterval {
		return fmt.Errorf("%w: resync interval %s is below %s", ErrConfig, o.ResyncInterval, MinResyncInterval)
	}
	if !o.DisableBatch && o.BatchInterval != 0 && o.BatchInterval < MinBatchInterval {
		return fmt.Errorf("%w: batch interval %s is below %s", ErrConfig, o.BatchInterval, MinBatchInterval)
	}
	return nil
}
