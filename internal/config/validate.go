package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateCovert(); err != nil {
		return err
	}
	if err := c.validateSessions(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return errors.New("server.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateCovert() error {
	if c.Covert.PartCount < 1 {
		return errors.New("covert.part_count must be at least 1")
	}
	if c.Covert.MetadataWindow < 1 {
		return errors.New("covert.metadata_window must be at least 1")
	}
	if c.Covert.FallbackFrames < 0 {
		return errors.New("covert.fallback_frames must not be negative")
	}
	switch c.Covert.OverflowPolicy {
	case OverflowError, OverflowTruncate:
	default:
		return fmt.Errorf("covert.overflow_policy: unsupported value %q (want %q or %q)", c.Covert.OverflowPolicy, OverflowError, OverflowTruncate)
	}
	switch c.Covert.DecodeMode {
	case DecodeAuto, DecodeStrict, DecodeRaw:
	default:
		return fmt.Errorf("covert.decode_mode: unsupported value %q (want auto, strict or raw)", c.Covert.DecodeMode)
	}
	return nil
}

func (c *Config) validateSessions() error {
	if c.Sessions.StaleAfterMinutes <= 0 {
		return errors.New("sessions.stale_after_minutes must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
