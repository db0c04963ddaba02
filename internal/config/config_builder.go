package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
)

// layer orders configuration sources by precedence, lowest first.
type layer int

const (
	layerDefaults layer = iota
	layerFile
	layerEnv
	layerFlags
	layerOverrides
	layerCount
)

type configBuilder struct {
	configs [layerCount]*StructuredConfig
	err     error
}

func newConfigBuilder() *configBuilder {
	return &configBuilder{}
}

func (b *configBuilder) build() (*StructuredConfig, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occured during building config: %w", b.err)
	}

	config := new(StructuredConfig)
	for _, cfg := range b.configs {
		if cfg == nil {
			continue
		}
		if err := mergo.Merge(config, cfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("error merging configs: %w", err)
		}
	}

	return config, nil
}

func (b *configBuilder) withDefaults() *configBuilder {
	b.configs[layerDefaults] = defaultConfig()
	return b
}

func (b *configBuilder) withEnv() *configBuilder {
	envCfg := &StructuredConfig{}
	if err := parseEnv(envCfg); err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}

	b.configs[layerEnv] = envCfg
	return b
}

func (b *configBuilder) withFlags(args []string) *configBuilder {
	flagsCfg, err := ParseFlags(args)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}

	b.configs[layerFlags] = flagsCfg
	return b
}

// withOverrides adds values set programmatically, e.g. by cobra flags of
// the client CLI. They win over every other source.
func (b *configBuilder) withOverrides(cfg *StructuredConfig) *configBuilder {
	b.configs[layerOverrides] = cfg
	return b
}

// withFile loads the config file named by the highest-precedence source that
// sets one. Call it after the sources that may carry the path.
func (b *configBuilder) withFile() *configBuilder {
	var path string
	for _, l := range []layer{layerEnv, layerFlags, layerOverrides} {
		if cfg := b.configs[l]; cfg != nil && cfg.ConfigFilePath != "" {
			path = cfg.ConfigFilePath
		}
	}
	if path == "" {
		return b
	}

	fileCfg, err := parseFile(path)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	b.configs[layerFile] = fileCfg
	return b
}
