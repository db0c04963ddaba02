// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"net/url"
)

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.Path == "" {
		return fmt.Errorf("%w: empty local database path", ErrInvalidStorageConfigs)
	}
	switch cfg.Storage.MirrorDriver {
	case MirrorDriverSQLite:
	case MirrorDriverBadger:
		if cfg.Storage.BadgerDir == "" {
			return fmt.Errorf("%w: badger mirror requires a directory", ErrInvalidStorageConfigs)
		}
	default:
		return fmt.Errorf("%w: unknown mirror driver %q", ErrInvalidStorageConfigs, cfg.Storage.MirrorDriver)
	}

	if cfg.Adapter.BaseURL == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}
	if u, err := url.Parse(cfg.Adapter.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: malformed base url %q", ErrInvalidAdapterConfigs, cfg.Adapter.BaseURL)
	}

	if cfg.Workers.ProbeInterval <= 0 || cfg.Workers.ProbeTimeout <= 0 {
		return ErrInvalidWorkerConfigs
	}

	return nil
}

func (cfg *ServerConfig) validate() error {
	if cfg.HTTPAddress == "" || cfg.RequestTimeout <= 0 {
		return ErrInvalidServerConfigs
	}

	if cfg.TokenSignKey == "" || cfg.TokenIssuer == "" || cfg.TokenDuration <= 0 {
		return ErrInvalidAppConfigs
	}

	return nil
}
