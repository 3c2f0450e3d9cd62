// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package handler

import "errors"

var (
	// errNoHandlersAreCreated is returned when the relay has no listen
	// address to serve on.
	errNoHandlersAreCreated = errors.New("no handlers are created")

	errMissingDependency = errors.New("handler dependency is nil")
)
