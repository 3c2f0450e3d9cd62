// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import "errors"

// Sentinel errors of the token middleware. Callers can match against them
// with [errors.Is].
var (
	// ErrEmptyAuthorizationHeader is returned when token checks are enabled
	// and the request carries neither an "Authorization" header nor an
	// access_token query parameter.
	ErrEmptyAuthorizationHeader = errors.New("empty `Authorization` header")

	// ErrInvalidAuthorizationHeader is returned when the "Authorization"
	// header is not of the form "Bearer <token>".
	ErrInvalidAuthorizationHeader = errors.New("invalid `Authorization` header")

	// ErrInvalidDocumentKey is returned for an empty {key} path parameter.
	ErrInvalidDocumentKey = errors.New("invalid document key")
)
