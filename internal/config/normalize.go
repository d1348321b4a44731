package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAssets()
	if err := c.normalizeMediaProbe(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.MachineDir, err = expandPath(c.Paths.MachineDir); err != nil {
		return fmt.Errorf("paths.machine_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = defaultSocketPath
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeAssets() {
	if strings.TrimSpace(c.Assets.ImagesDir) == "" {
		c.Assets.ImagesDir = defaultImagesDir
	}
	if strings.TrimSpace(c.Assets.SoundsDir) == "" {
		c.Assets.SoundsDir = defaultSoundsDir
	}
	if strings.TrimSpace(c.Assets.VideosDir) == "" {
		c.Assets.VideosDir = defaultVideosDir
	}
	if strings.TrimSpace(c.Assets.FontsDir) == "" {
		c.Assets.FontsDir = defaultFontsDir
	}
	if c.Assets.PollIntervalMillis == 0 {
		c.Assets.PollIntervalMillis = defaultPollIntervalMillis
	}
}

func (c *Config) normalizeMediaProbe() error {
	if strings.TrimSpace(c.MediaProbe.CachePath) == "" {
		c.MediaProbe.CachePath = defaultProbeCachePath
	}
	var err error
	if c.MediaProbe.CachePath, err = expandPath(c.MediaProbe.CachePath); err != nil {
		return fmt.Errorf("media_probe.cache_path: %w", err)
	}
	if c.MediaProbe.TimeoutSeconds == 0 {
		c.MediaProbe.TimeoutSeconds = defaultProbeTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("MPF_MC_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
