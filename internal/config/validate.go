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
	if err := c.validateScanner(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateHashing(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateScanner() error {
	if len(c.Scanner.Extensions) == 0 {
		return errors.New("scanner.extensions must include at least one extension")
	}
	if c.Scanner.Workers <= 0 {
		return errors.New("scanner.workers must be positive")
	}
	return nil
}

func (c *Config) validateStore() error {
	return ensurePositiveMap(map[string]int{
		"store.chunk_size":          c.Store.ChunkSize,
		"store.busy_timeout_millis": c.Store.BusyTimeoutMillis,
		"store.cache_kib":           c.Store.CacheKiB,
	})
}

func (c *Config) validateHashing() error {
	if c.Hashing.ChunkKiB <= 0 {
		return errors.New("hashing.chunk_kib must be positive")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.FuzzyThreshold < 0 || c.Matching.FuzzyThreshold > 1 {
		return errors.New("matching.fuzzy_threshold must be between 0 and 1")
	}
	if c.Matching.CertainThreshold < 0 || c.Matching.CertainThreshold > 1 {
		return errors.New("matching.certain_threshold must be between 0 and 1")
	}
	if c.Matching.FuzzyThreshold > c.Matching.CertainThreshold {
		return errors.New("matching.fuzzy_threshold must not exceed matching.certain_threshold")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
