// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package server

import "errors"

var (
	errNoHTTPHandler = errors.New("sync-keeper server: no HTTP handler configured")
	errNoHTTPAddress = errors.New("sync-keeper server: empty HTTP address")
	errListen        = errors.New("sync-keeper server: cannot listen")
)
