// Package config provides configuration loading, merging, and validation
// facilities for the sync client and the reference backend.
//
// Configuration is assembled from multiple sources in the following priority
// order (later sources override earlier non-zero fields):
//  1. Built-in defaults
//  2. Config file (JSON, YAML or TOML, chosen by extension)
//  3. Environment variables
//  4. Command-line flags
//
// The main entry points are [GetServerConfig] for the backend and
// [GetClientConfig] for the sync client.
package config
