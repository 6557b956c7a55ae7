package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"discdrive/internal/config"
	"discdrive/internal/disc"
	"discdrive/internal/logging"
)

// sourceFactory builds the drive source for one command.
type sourceFactory func(cfg *config.Config, logger *slog.Logger) disc.Source

// statusFunc queries the tray state, optionally waiting for a disc.
type statusFunc func(ctx context.Context, device string, wait bool) (disc.DriveStatus, error)

type commandContext struct {
	configFlag string
	deviceFlag string
	verbose    bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	newSource   sourceFactory
	driveStatus statusFunc
}

func newCommandContext() *commandContext {
	return &commandContext{
		newSource:   defaultSource,
		driveStatus: defaultDriveStatus,
	}
}

func defaultSource(cfg *config.Config, logger *slog.Logger) disc.Source {
	return disc.NewIOCtlSource(cfg.Drive.Device,
		disc.WithLogger(logger),
		disc.WithSpindleSpeed(cfg.Drive.SpindleSpeed),
	)
}

func defaultDriveStatus(ctx context.Context, device string, wait bool) (disc.DriveStatus, error) {
	if wait {
		return disc.WaitForReady(ctx, device)
	}
	return disc.CheckDriveStatus(device)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if device := disc.NormalizeDevicePath(c.deviceFlag); device != "" {
			cfg.Drive.Device = device
		}
		if c.verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger returns a stderr logger for one-shot commands.
func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
}

// withSource opens the configured drive under a shared device lock, probes
// the disc and hands the source to fn. The drive is closed afterwards.
func (c *commandContext) withSource(cmd *cobra.Command, fn func(cfg *config.Config, src disc.Source) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	lock := flock.New(cfg.DeviceLockPath())
	ok, err := lock.TryRLock()
	if err != nil {
		return fmt.Errorf("lock device %s: %w", cfg.Drive.Device, err)
	}
	if !ok {
		return fmt.Errorf("device %s is held by a running daemon; query it with `discdrive status --daemon`", cfg.Drive.Device)
	}
	defer lock.Unlock() //nolint:errcheck

	logger, err := c.logger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	src := c.newSource(cfg, logger)
	if err := src.Reopen(); err != nil {
		if errors.Is(err, disc.ErrNoMedia) {
			_ = src.Close()
			return fmt.Errorf("no readable disc in %s: %w", cfg.Drive.Device, err)
		}
		return err
	}
	defer src.Close() //nolint:errcheck

	return fn(cfg, src)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
