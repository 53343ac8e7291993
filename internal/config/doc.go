// Package config loads, normalizes, and validates the TOML configuration for
// podcast-insights. Tool command templates are validated against the
// per-stage placeholder whitelists at load time.
package config
