// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package cli implements the sync-keeper client command line.
//
// Every command opens the local store of the user the token belongs to,
// works against the sync engine and closes it again. Writes made while the
// backend is unreachable are queued on disk and replayed by the next
// command that finds it online, or explicitly by "sync".
package cli

import (
	"fmt"
	"slices"

	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/spf13/cobra"
)

// ValidFormats lists the accepted values of --format.
var ValidFormats = []string{FormatText, FormatJSON, FormatYAML}

// RootOptions holds the global flags. Empty values leave the setting to the
// config file, the environment or the defaults.
type RootOptions struct {
	Format string

	Server       string
	Token        string
	DB           string
	MirrorDriver string
	BadgerDir    string
	LogFile      string
	LogLevel     string
	ConfigPath   string
}

// overrides maps the flags onto the config layer with the highest
// precedence.
func (o *RootOptions) overrides() *config.StructuredConfig {
	return &config.StructuredConfig{
		App: config.App{
			Token:    o.Token,
			LogFile:  o.LogFile,
			LogLevel: o.LogLevel,
		},
		Adapter: config.Adapter{BaseURL: o.Server},
		Storage: config.Storage{
			Local: config.Local{
				Path:      o.DB,
				BadgerDir: o.BadgerDir,
			},
			MirrorDriver: o.MirrorDriver,
		},
		ConfigFilePath: o.ConfigPath,
	}
}

// NewRootCommand creates the root command of the client. --version prints
// info.
func NewRootCommand(info models.AppBuildInfo) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "sync-keeper",
		Short:   "Offline-first client of the sync-keeper backend",
		Long:    "Reads and writes personal finance records through a local cache that keeps working while the backend is unreachable.",
		Version: info.BuildVersion(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.SetVersionTemplate(info.String())

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.Format, "format", FormatText, "output format (text|json|yaml)")
	flags.StringVarP(&opts.Server, "server", "s", "", "backend base URL")
	flags.StringVarP(&opts.Token, "token", "t", "", "bearer token")
	flags.StringVar(&opts.DB, "db", "", "local SQLite database path")
	flags.StringVar(&opts.MirrorDriver, "mirror", "", "snapshot mirror driver (sqlite|badger)")
	flags.StringVar(&opts.BadgerDir, "badger-dir", "", "badger mirror directory")
	flags.StringVar(&opts.LogFile, "log-file", "", "log file path")
	flags.StringVar(&opts.LogLevel, "log-level", "", "minimal log level")
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (json, yaml or toml)")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewInsertCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}
