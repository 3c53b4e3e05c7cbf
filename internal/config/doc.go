// Package config loads, normalizes, and validates the TOML configuration
// shared by every shellac component.
package config
