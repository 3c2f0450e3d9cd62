// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import "errors"

var (
	ErrUnsupportedTransport = errors.New("unsupported channel transport")
	ErrNilUI                = errors.New("user interface is required")
)
