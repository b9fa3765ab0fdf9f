// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package server

import "errors"

var (
	errNoListenAddress = errors.New("no listen address is configured")
)
