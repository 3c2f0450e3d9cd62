// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import "errors"

var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("client unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrBadGateway          = errors.New("bad gateway")
	ErrInternalServerError = errors.New("internal server error")

	// ErrSendTimeout is returned when the outbound queue of a connection
	// stays full for longer than the write timeout.
	ErrSendTimeout = errors.New("send timed out")

	// ErrInvalidRelayURL is returned for a relay or broker address that
	// cannot be parsed.
	ErrInvalidRelayURL = errors.New("invalid relay url")
)
