package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedConfigFormat is returned for config files whose extension is
// not .json, .yaml, .yml or .toml.
var ErrUnsupportedConfigFormat = errors.New("unsupported config file format")

// fileConfig is the on-disk layout of a config file. The same tags serve the
// three supported formats.
type fileConfig struct {
	App struct {
		TokenSignKey  string   `json:"token_sign_key" yaml:"token_sign_key" toml:"token_sign_key"`
		TokenIssuer   string   `json:"token_issuer" yaml:"token_issuer" toml:"token_issuer"`
		TokenDuration Duration `json:"token_duration" yaml:"token_duration" toml:"token_duration"`
		Token         string   `json:"token" yaml:"token" toml:"token"`
		Version       string   `json:"version" yaml:"version" toml:"version"`
		LogLevel      string   `json:"log_level" yaml:"log_level" toml:"log_level"`
		LogFile       string   `json:"log_file" yaml:"log_file" toml:"log_file"`
	} `json:"app" yaml:"app" toml:"app"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn" yaml:"dsn" toml:"dsn"`
		} `json:"db" yaml:"db" toml:"db"`
		Local struct {
			Path      string `json:"path" yaml:"path" toml:"path"`
			BadgerDir string `json:"badger_dir" yaml:"badger_dir" toml:"badger_dir"`
		} `json:"local" yaml:"local" toml:"local"`
		MirrorDriver string `json:"mirror_driver" yaml:"mirror_driver" toml:"mirror_driver"`
	} `json:"storage" yaml:"storage" toml:"storage"`

	Server struct {
		HTTPAddress    string   `json:"http_address" yaml:"http_address" toml:"http_address"`
		RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout" toml:"request_timeout"`
	} `json:"server" yaml:"server" toml:"server"`

	Adapter struct {
		BaseURL        string   `json:"base_url" yaml:"base_url" toml:"base_url"`
		RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout" toml:"request_timeout"`
	} `json:"adapter" yaml:"adapter" toml:"adapter"`

	Workers struct {
		ProbeInterval Duration `json:"probe_interval" yaml:"probe_interval" toml:"probe_interval"`
		ProbeTimeout  Duration `json:"probe_timeout" yaml:"probe_timeout" toml:"probe_timeout"`
	} `json:"workers" yaml:"workers" toml:"workers"`
}

func parseFile(path string) (*StructuredConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading a config file: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedConfigFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("error decoding config file %s: %w", path, err)
	}

	return fc.toStructured(), nil
}

func (fc *fileConfig) toStructured() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			TokenSignKey:  fc.App.TokenSignKey,
			TokenIssuer:   fc.App.TokenIssuer,
			TokenDuration: time.Duration(fc.App.TokenDuration),
			Token:         fc.App.Token,
			Version:       fc.App.Version,
			LogLevel:      fc.App.LogLevel,
			LogFile:       fc.App.LogFile,
		},
		Storage: Storage{
			DB: DB{DSN: fc.Storage.DB.DSN},
			Local: Local{
				Path:      fc.Storage.Local.Path,
				BadgerDir: fc.Storage.Local.BadgerDir,
			},
			MirrorDriver: fc.Storage.MirrorDriver,
		},
		Server: Server{
			HTTPAddress:    fc.Server.HTTPAddress,
			RequestTimeout: time.Duration(fc.Server.RequestTimeout),
		},
		Adapter: Adapter{
			BaseURL:        fc.Adapter.BaseURL,
			RequestTimeout: time.Duration(fc.Adapter.RequestTimeout),
		},
		Workers: Workers{
			ProbeInterval: time.Duration(fc.Workers.ProbeInterval),
			ProbeTimeout:  time.Duration(fc.Workers.ProbeTimeout),
		},
	}
}

// Duration is a wrapper around time.Duration that decodes from strings like
// "1h" or "30s" in every supported file format. JSON numbers are taken as
// nanoseconds.
type Duration time.Duration

// UnmarshalText is used by go-toml.
func (d *Duration) UnmarshalText(b []byte) error {
	tmp, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(tmp)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		return d.UnmarshalText([]byte(value))
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}
