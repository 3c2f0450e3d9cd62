// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package presence

import (
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/MKhiriev/weave-sync/internal/config"
	"github.com/MKhiriev/weave-sync/internal/utils"
	"github.com/MKhiriev/weave-sync/models"
)

const guestPrefix = "guest_"

var (
	ErrInvalidToken = errors.New("invalid identity token")
	ErrGuestFile    = errors.New("guest id file")
)

var (
	guestIDPattern = regexp.MustCompile(`^guest_[0-9a-f]{8}$`)
	palette        = []string{"#e06c75", "#98c379", "#e5c07b", "#61afef", "#c678dd", "#56b6c2", "#d19a66", "#be5046"}
)

// Identity is what a peer announces on the presence channel.
type Identity struct {
	// Key is the presence key: the JWT subject of an authenticated user or a
	// generated guest id.
	Key   string
	User  models.User
	Guest bool
}

// Entry returns the presence entry for this identity. The channel fills in
// PeerKey.
func (i Identity) Entry() models.PresenceEntry {
	return models.PresenceEntry{User: i.User}
}

// ResolveIdentity picks the authenticated identity when cfg carries a token,
// and a guest identity persisted in cfg.GuestFile otherwise. A token that
// fails verification is an error; it never degrades to a guest.
func ResolveIdentity(cfg config.Identity) (Identity, error) {
	var (
		id    Identity
		err   error
		guest bool
	)

	if cfg.Token != "" {
		id.Key, err = utils.ValidateAndParseJWTToken(cfg.Token, cfg.TokenSignKey, cfg.TokenIssuer)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
	} else {
		guest = true
		id.Key, err = GuestID(cfg.GuestFile)
		if err != nil {
			return Identity{}, err
		}
	}

	id.Guest = guest
	id.User = models.User{
		ID:    id.Key,
		Name:  cfg.Name,
		Color: cfg.Color,
	}
	if id.User.Name == "" {
		id.User.Name = id.Key
	}
	if id.User.Color == "" {
		id.User.Color = ColorFor(id.Key)
	}

	return id, nil
}

// GuestID returns the guest id stored in path, creating and storing a new
// one when the file is missing or holds something else. An empty path
// yields a fresh id that is not persisted.
func GuestID(path string) (string, error) {
	gen := utils.NewUUIDGenerator()
	if path == "" {
		return guestPrefix + gen.Short(8), nil
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); guestIDPattern.MatchString(id) {
			return id, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %w", ErrGuestFile, err)
	}

	id := guestPrefix + gen.Short(8)
	if dir := filepath.Dir(path); dir != "." {
		if err = os.MkdirAll(dir, 0o700); err != nil {
			return "", fmt.Errorf("%w: %w", ErrGuestFile, err)
		}
	}
	if err = os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("%w: %w", ErrGuestFile, err)
	}
	return id, nil
}

// ColorFor maps key to a stable color of a small palette.
func ColorFor(key string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return palette[h.Sum32()%uint32(len(palette))]
}
