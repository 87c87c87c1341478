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
	if err := c.validateMakeMKV(); err != nil {
		return err
	}
	if err := c.validateDrives(); err != nil {
		return err
	}
	if err := c.validateIdentification(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.BackupDir) == "" {
		return errors.New("paths.backup_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateMakeMKV() error {
	if c.MakeMKV.BackupTimeout <= 0 {
		return errors.New("makemkv.backup_timeout must be positive")
	}
	if c.MakeMKV.InfoTimeout <= 0 {
		return errors.New("makemkv.info_timeout must be positive")
	}
	return nil
}

func (c *Config) validateDrives() error {
	if c.Drives.FingerprintTimeout <= 0 {
		return errors.New("drives.fingerprint_timeout must be positive")
	}
	return nil
}

func (c *Config) validateIdentification() error {
	if !c.Identification.Enabled {
		return nil
	}
	if c.Identification.Command == "" {
		return errors.New("identification.command must be set when identification.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
