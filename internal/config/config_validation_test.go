package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validClientConfig() *ClientConfig {
	return NewClientConfig(defaultConfig())
}

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ClientConfig)
		wantErr error
	}{
		{name: "defaults are valid", mutate: func(c *ClientConfig) {}},
		{name: "empty path", mutate: func(c *ClientConfig) { c.Storage.Path = "" }, wantErr: ErrInvalidStorageConfigs},
		{name: "unknown driver", mutate: func(c *ClientConfig) { c.Storage.MirrorDriver = "redis" }, wantErr: ErrInvalidStorageConfigs},
		{name: "badger without dir", mutate: func(c *ClientConfig) { c.Storage.MirrorDriver = MirrorDriverBadger }, wantErr: ErrInvalidStorageConfigs},
		{name: "badger with dir", mutate: func(c *ClientConfig) {
			c.Storage.MirrorDriver = MirrorDriverBadger
			c.Storage.BadgerDir = "/tmp/mirror"
		}},
		{name: "no base url", mutate: func(c *ClientConfig) { c.Adapter.BaseURL = "" }, wantErr: ErrInvalidAdapterConfigs},
		{name: "relative base url", mutate: func(c *ClientConfig) { c.Adapter.BaseURL = "backend:8080/api" }, wantErr: ErrInvalidAdapterConfigs},
		{name: "zero timeout", mutate: func(c *ClientConfig) { c.Adapter.RequestTimeout = 0 }, wantErr: ErrInvalidAdapterConfigs},
		{name: "zero probe", mutate: func(c *ClientConfig) { c.Workers.ProbeInterval = 0 }, wantErr: ErrInvalidWorkerConfigs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validClientConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestServerConfig_Validate(t *testing.T) {
	cfg := NewServerConfig(defaultConfig())
	assert.ErrorIs(t, cfg.validate(), ErrInvalidAppConfigs)

	cfg.TokenSignKey = "secret"
	assert.NoError(t, cfg.validate())

	cfg.RequestTimeout = 0
	assert.ErrorIs(t, cfg.validate(), ErrInvalidServerConfigs)

	cfg.RequestTimeout = time.Second
	cfg.HTTPAddress = ""
	assert.ErrorIs(t, cfg.validate(), ErrInvalidServerConfigs)
}
