// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/internal/utils"
)

const (
	peerKeyQueryParam     = "peer_key"
	accessTokenQueryParam = "access_token"
)

// withPeerKey resolves the presence key of the caller and stores it in the
// request context under [utils.PeerKeyCtxKey].
//
// Without a token sign key the relay trusts the peer_key query parameter and
// falls back to a generated guest key. With one, every request must carry a
// valid HS256 token, either as "Authorization: Bearer <token>" or as the
// access_token query parameter, and the token subject becomes the key.
// Rejected requests get 401 Unauthorized.
func (h *Handler) withPeerKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromRequest(r)

		key, err := h.peerKey(r)
		if err != nil {
			log.Err(err).Str("func", "*Handler.withPeerKey").Msg("request rejected")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), utils.PeerKeyCtxKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) peerKey(r *http.Request) (string, error) {
	if h.identity.TokenSignKey == "" {
		if key := strings.TrimSpace(r.URL.Query().Get(peerKeyQueryParam)); key != "" {
			return key, nil
		}
		return "guest_" + utils.NewUUIDGenerator().Short(8), nil
	}

	token, err := tokenFromRequest(r)
	if err != nil {
		return "", err
	}
	return utils.ValidateAndParseJWTToken(token, h.identity.TokenSignKey, h.identity.TokenIssuer)
}

// tokenFromRequest prefers the Authorization header over the query
// parameter.
func tokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, err := utils.ParseBearerToken(header)
		if err != nil {
			return "", ErrInvalidAuthorizationHeader
		}
		return token, nil
	}
	if token := r.URL.Query().Get(accessTokenQueryParam); token != "" {
		return token, nil
	}
	return "", ErrEmptyAuthorizationHeader
}
