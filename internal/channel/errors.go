// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package channel

import "errors"

var (
	ErrNotSubscribed     = errors.New("channel is not subscribed")
	ErrAlreadySubscribed = errors.New("channel is already subscribed")
	ErrClosed            = errors.New("channel is closed")
	ErrEmptyRoom         = errors.New("empty channel name")
)
