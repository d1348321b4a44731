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
	if err := c.validateAssets(); err != nil {
		return err
	}
	if err := c.validateMediaProbe(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.MachineDir) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/mpf-mc/config.toml"
		}
		return fmt.Errorf("paths.machine_dir is required. Edit %s (create with 'mpfmc config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateAssets() error {
	if c.Assets.PollIntervalMillis <= 0 {
		return errors.New("assets.poll_interval_millis must be positive")
	}
	for name, dir := range map[string]string{
		"assets.images_dir": c.Assets.ImagesDir,
		"assets.sounds_dir": c.Assets.SoundsDir,
		"assets.videos_dir": c.Assets.VideosDir,
		"assets.fonts_dir":  c.Assets.FontsDir,
	} {
		if strings.ContainsAny(dir, `/\`) {
			return fmt.Errorf("%s must be a bare folder name, got %q", name, dir)
		}
	}
	return nil
}

func (c *Config) validateMediaProbe() error {
	if c.MediaProbe.TimeoutSeconds <= 0 {
		return errors.New("media_probe.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
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
