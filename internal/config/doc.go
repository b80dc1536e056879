// Package config loads, normalizes, and validates framecloak configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FRAMECLOAK_API_TOKEN and FRAMECLOAK_KEY_DIR. The Config type centralizes
// every knob the CLI and HTTP server need, including the covert channel's
// overflow and decode policies.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
