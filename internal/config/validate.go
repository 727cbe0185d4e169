package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateCognitive(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateCognitive() error {
	cog := c.Cognitive
	if cog.PollIntervalSeconds <= 0 {
		return errors.New("cognitive.poll_interval_seconds must be positive")
	}
	if cog.StaleTimeoutSeconds <= 0 {
		return errors.New("cognitive.stale_timeout_seconds must be positive")
	}
	if cog.MaxRetries < 0 {
		return errors.New("cognitive.max_retries must not be negative")
	}
	if cog.TopK <= 0 {
		return errors.New("cognitive.top_k must be positive")
	}
	if cog.RevisionKeep < 0 {
		return errors.New("cognitive.revision_keep must not be negative")
	}
	if cog.FailedMaxFiles < 0 {
		return errors.New("cognitive.failed_max_files must not be negative")
	}
	if cog.StaleRecoveryInterval <= 0 {
		return errors.New("cognitive.stale_recovery_interval must be positive")
	}
	return nil
}
