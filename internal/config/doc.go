// Package config loads, normalizes, and validates the TOML configuration
// shared by the CLI and daemon. Defaults live in defaults.go; the embedded
// sample_config.toml documents every field for 'reelsmith config init'.
package config
