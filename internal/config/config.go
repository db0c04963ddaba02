// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container shared by the
// sync client and the reference backend. It is populated by merging
// defaults, an optional config file, environment variables and command-line
// flags.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds token parameters, logging and versioning settings.
	App App `envPrefix:"APP_"`

	// Storage holds configuration for the server database and the client's
	// local durable store.
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds the listen address and timeouts of the backend.
	Server Server `envPrefix:"SERVER_"`

	// Adapter holds the client's view of the backend: base URL and timeout.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Workers holds settings of background loops (connectivity probe).
	Workers Workers `envPrefix:"WORKERS_"`

	// ConfigFilePath is the optional path to a JSON, YAML or TOML
	// configuration file, selected by extension.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	ConfigFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// TokenSignKey is the secret used to sign and verify JWT tokens.
	// Env: APP_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the "iss" claim embedded in every issued JWT token.
	// Env: APP_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// TokenDuration specifies how long a JWT token remains valid.
	// Env: APP_TOKEN_DURATION
	TokenDuration time.Duration `env:"TOKEN_DURATION"`

	// Token is the bearer token the client sends to the backend. Its subject
	// is the user id that partitions local storage.
	// Env: APP_TOKEN
	Token string `env:"TOKEN"`

	// Version is the semantic version string of the running application.
	// Env: APP_VERSION
	Version string `env:"VERSION"`

	// LogLevel is the minimal level written to the log ("debug", "info", ...).
	// Env: APP_LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL"`

	// LogFile is where the client writes its log.
	// Env: APP_LOG_FILE
	LogFile string `env:"LOG_FILE"`
}

// Storage groups the configuration of every persistence backend.
type Storage struct {
	// DB holds the backend relational database connection settings.
	DB DB `envPrefix:"DB_"`

	// Local holds the client's durable store settings.
	Local Local `envPrefix:"LOCAL_"`

	// MirrorDriver selects the backend of the client's snapshot mirror:
	// "sqlite" (default, same file as the queue) or "badger".
	// Env: STORAGE_MIRROR_DRIVER
	MirrorDriver string `env:"MIRROR_DRIVER"`
}

// DB holds connection settings for the backend database.
type DB struct {
	// DSN is the PostgreSQL connection string. When empty the backend keeps
	// records in memory.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Local holds the client's durable store locations.
type Local struct {
	// Path is the SQLite file holding the queue, the mirror and the temp-id
	// table.
	// Env: STORAGE_LOCAL_PATH
	Path string `env:"PATH"`

	// BadgerDir is the directory of the Badger mirror, used when
	// MirrorDriver is "badger".
	// Env: STORAGE_LOCAL_BADGER_DIR
	BadgerDir string `env:"BADGER_DIR"`
}

// Server holds network and timeout settings for the backend.
type Server struct {
	// HTTPAddress is the TCP address the HTTP server listens on, in
	// "host:port" format.
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout is the maximum duration allowed for a single request.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Adapter holds the client's outbound transport settings.
type Adapter struct {
	// BaseURL is the backend root, e.g. "http://localhost:8080".
	// Env: ADAPTER_BASE_URL
	BaseURL string `env:"BASE_URL"`

	// RequestTimeout bounds every REST call made by the gateway.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Workers holds configuration for background loops.
type Workers struct {
	// ProbeInterval is the period of the connectivity probe.
	// Env: WORKERS_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`

	// ProbeTimeout bounds a single probe request.
	// Env: WORKERS_PROBE_TIMEOUT
	ProbeTimeout time.Duration `env:"PROBE_TIMEOUT"`
}

// GetStructuredConfig loads and merges the configuration from all available
// sources. Later sources override non-zero fields of earlier ones:
//  1. Built-in defaults
//  2. Config file (path resolved from flags, then env)
//  3. Environment variables
//  4. Command-line flags parsed from args
func GetStructuredConfig(args []string) (*StructuredConfig, error) {
	return newConfigBuilder().
		withDefaults().
		withEnv().
		withFlags(args).
		withFile().
		build()
}
