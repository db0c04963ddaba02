package config

import (
	"fmt"
	"time"
)

// ServerConfig is the configuration view of the reference backend.
type ServerConfig struct {
	HTTPAddress    string
	RequestTimeout time.Duration
	// DSN selects the Postgres record store; empty means in-memory.
	DSN string

	TokenSignKey  string
	TokenIssuer   string
	TokenDuration time.Duration

	LogLevel string
	Version  string
}

// GetServerConfig loads defaults, file, env and the flags in args, then
// validates the backend view.
func GetServerConfig(args []string) (*ServerConfig, error) {
	cfg, err := GetStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	serverCfg := NewServerConfig(cfg)
	return serverCfg, serverCfg.validate()
}

// NewServerConfig maps the fields relevant to the backend.
func NewServerConfig(cfg *StructuredConfig) *ServerConfig {
	return &ServerConfig{
		HTTPAddress:    cfg.Server.HTTPAddress,
		RequestTimeout: cfg.Server.RequestTimeout,
		DSN:            cfg.Storage.DB.DSN,
		TokenSignKey:   cfg.App.TokenSignKey,
		TokenIssuer:    cfg.App.TokenIssuer,
		TokenDuration:  cfg.App.TokenDuration,
		LogLevel:       cfg.App.LogLevel,
		Version:        cfg.App.Version,
	}
}
