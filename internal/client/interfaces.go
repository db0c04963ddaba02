// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import "context"

// Client defines the lifecycle contract of a runnable client runtime.
type Client interface {
	// Run keeps the background loops alive until ctx is done.
	Run(ctx context.Context) error
	// Close releases every resource. It is safe to call more than once.
	Close() error
}

var _ Client = (*App)(nil)
