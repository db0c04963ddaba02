package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonBody = `{
	"app": {"token_sign_key": "jwt_secret", "token_duration": "1h", "log_level": "debug"},
	"server": {"http_address": "localhost:8080", "request_timeout": "30s"},
	"adapter": {"base_url": "http://backend:8080", "request_timeout": 5000000000},
	"storage": {"local": {"path": "/tmp/keeper.db"}, "mirror_driver": "badger"},
	"workers": {"probe_interval": "3s"}
}`

const yamlBody = `
app:
  token_sign_key: jwt_secret
  token_duration: 1h
  log_level: debug
server:
  http_address: localhost:8080
  request_timeout: 30s
adapter:
  base_url: http://backend:8080
  request_timeout: 5s
storage:
  local:
    path: /tmp/keeper.db
  mirror_driver: badger
workers:
  probe_interval: 3s
`

const tomlBody = `
[app]
token_sign_key = "jwt_secret"
token_duration = "1h"
log_level = "debug"

[server]
http_address = "localhost:8080"
request_timeout = "30s"

[adapter]
base_url = "http://backend:8080"
request_timeout = "5s"

[storage]
mirror_driver = "badger"

[storage.local]
path = "/tmp/keeper.db"

[workers]
probe_interval = "3s"
`

// TestParseFile_AllFormats verifies that the three formats decode into the
// same configuration.
func TestParseFile_AllFormats(t *testing.T) {
	for name, body := range map[string]string{
		"config.json": jsonBody,
		"config.yaml": yamlBody,
		"config.yml":  yamlBody,
		"config.toml": tomlBody,
	} {
		t.Run(name, func(t *testing.T) {
			cfg, err := parseFile(writeTempConfig(t, name, body))
			require.NoError(t, err)

			assert.Equal(t, "jwt_secret", cfg.App.TokenSignKey)
			assert.Equal(t, time.Hour, cfg.App.TokenDuration)
			assert.Equal(t, "debug", cfg.App.LogLevel)
			assert.Equal(t, "localhost:8080", cfg.Server.HTTPAddress)
			assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
			assert.Equal(t, "http://backend:8080", cfg.Adapter.BaseURL)
			assert.Equal(t, 5*time.Second, cfg.Adapter.RequestTimeout)
			assert.Equal(t, "/tmp/keeper.db", cfg.Storage.Local.Path)
			assert.Equal(t, MirrorDriverBadger, cfg.Storage.MirrorDriver)
			assert.Equal(t, 3*time.Second, cfg.Workers.ProbeInterval)
			assert.Empty(t, cfg.ConfigFilePath)
		})
	}
}

func TestParseFile_UnsupportedExtension(t *testing.T) {
	_, err := parseFile(writeTempConfig(t, "config.ini", "a=b"))
	assert.ErrorIs(t, err, ErrUnsupportedConfigFormat)
}

func TestParseFile_InvalidDuration(t *testing.T) {
	_, err := parseFile(writeTempConfig(t, "config.json", `{"server":{"request_timeout":"later"}}`))
	assert.Error(t, err)
}

func TestParseFile_MalformedBody(t *testing.T) {
	_, err := parseFile(writeTempConfig(t, "config.yaml", "app: [unclosed"))
	assert.Error(t, err)
}

func TestDuration_MarshalText(t *testing.T) {
	b, err := Duration(90 * time.Second).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(b))
}
