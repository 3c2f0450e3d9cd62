// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crdt

import "errors"

// ErrMalformedUpdate is returned when an update cannot be decoded.
var ErrMalformedUpdate = errors.New("malformed document update")
