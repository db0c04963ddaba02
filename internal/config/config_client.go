package config

import (
	"fmt"
	"time"
)

// ClientApp holds client-side application settings.
type ClientApp struct {
	// Token is the bearer token sent to the backend.
	Token    string
	LogLevel string
	LogFile  string
}

// ClientAdapter holds network settings used by the gateway.
type ClientAdapter struct {
	// BaseURL is the backend root URL.
	BaseURL string
	// RequestTimeout is the timeout of every outbound REST call.
	RequestTimeout time.Duration
}

// ClientStorage groups the client's durable store settings.
type ClientStorage struct {
	// Path is the SQLite database file.
	Path string
	// MirrorDriver is "sqlite" or "badger".
	MirrorDriver string
	// BadgerDir is the Badger directory, required for the badger driver.
	BadgerDir string
}

// ClientWorkers contains client background loop settings.
type ClientWorkers struct {
	// ProbeInterval defines how often connectivity is checked.
	ProbeInterval time.Duration
	// ProbeTimeout bounds a single check.
	ProbeTimeout time.Duration
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	App     ClientApp
	Adapter ClientAdapter
	Storage ClientStorage
	Workers ClientWorkers
}

// GetClientConfig builds and validates a client-specific config view.
//
// overrides carries values set by the CLI flags; it may be nil. Flags of
// the standard library flag package are not parsed here because the client
// CLI owns its own flag set.
func GetClientConfig(overrides *StructuredConfig) (*ClientConfig, error) {
	b := newConfigBuilder().withDefaults().withEnv()
	if overrides != nil {
		b = b.withOverrides(overrides)
	}
	cfg, err := b.withFile().build()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := NewClientConfig(cfg)
	return clientCfg, clientCfg.validate()
}

// NewClientConfig maps the fields relevant to the client runtime.
func NewClientConfig(cfg *StructuredConfig) *ClientConfig {
	return &ClientConfig{
		App: ClientApp{
			Token:    cfg.App.Token,
			LogLevel: cfg.App.LogLevel,
			LogFile:  cfg.App.LogFile,
		},
		Adapter: ClientAdapter{
			BaseURL:        cfg.Adapter.BaseURL,
			RequestTimeout: cfg.Adapter.RequestTimeout,
		},
		Storage: ClientStorage{
			Path:         cfg.Storage.Local.Path,
			MirrorDriver: cfg.Storage.MirrorDriver,
			BadgerDir:    cfg.Storage.Local.BadgerDir,
		},
		Workers: ClientWorkers{
			ProbeInterval: cfg.Workers.ProbeInterval,
			ProbeTimeout:  cfg.Workers.ProbeTimeout,
		},
	}
}
