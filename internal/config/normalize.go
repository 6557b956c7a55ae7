package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeDrive()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMonitor()
	c.normalizeLogging()
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	return nil
}

func (c *Config) normalizeDrive() {
	device := strings.TrimSpace(c.Drive.Device)
	if device == "" {
		if value, ok := os.LookupEnv(deviceEnvVar); ok {
			device = strings.TrimSpace(value)
		}
	}
	if device == "" {
		device = defaultDevice
	}
	device = strings.TrimPrefix(device, "dev:")
	if !filepath.IsAbs(device) {
		device = filepath.Join("/dev", device)
	}
	c.Drive.Device = filepath.Clean(device)
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMonitor() {
	if c.Monitor.PollInterval == 0 {
		c.Monitor.PollInterval = defaultPollInterval
	}
	if c.Monitor.ReopenBurst == 0 {
		c.Monitor.ReopenBurst = defaultReopenBurst
	}
	if c.Monitor.ReopenPerMinute == 0 {
		c.Monitor.ReopenPerMinute = defaultReopenPerMinute
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console", "text":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
