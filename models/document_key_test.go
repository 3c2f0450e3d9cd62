// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDocumentKey_Numeric(t *testing.T) {
	k := ParseDocumentKey(" 42 ")
	assert.True(t, k.IsNumeric())
	assert.Equal(t, "42", k.String())
	assert.Equal(t, int64(42), k.Arg())
}

func TestParseDocumentKey_String(t *testing.T) {
	k := ParseDocumentKey("0b6d7c1e-intro")
	assert.False(t, k.IsNumeric())
	assert.Equal(t, "0b6d7c1e-intro", k.Arg())
}

func TestDocumentKey_IsZero(t *testing.T) {
	assert.True(t, DocumentKey{}.IsZero())
	assert.False(t, NewStringKey("a").IsZero())
	assert.False(t, NewNumericKey(0).IsZero())
}

func TestPresenceState_CloneIsDeep(t *testing.T) {
	s := PresenceState{"k": {{PeerKey: "k", User: User{ID: "u1"}}}}
	c := s.Clone()
	c["k"][0].User.ID = "changed"
	assert.Equal(t, "u1", s["k"][0].User.ID)
}

func TestConnectionState_String(t *testing.T) {
	assert.Equal(t, "synced", Synced.String())
	assert.Equal(t, "unknown", ConnectionState(99).String())
}
