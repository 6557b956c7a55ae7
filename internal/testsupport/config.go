package testsupport

import (
	"path/filepath"
	"testing"

	"discdrive/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config rooted in a per-test temp directory. The
// metrics listener binds an ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Metrics.Bind = "127.0.0.1:0"
	cfg.Monitor.Netlink = false

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return &cfg
}

// WithDevice overrides the optical drive path on the test config.
func WithDevice(path string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Drive.Device = path
	}
}

// WithSpindleSpeed sets drive.spindle_speed.
func WithSpindleSpeed(speed int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Drive.SpindleSpeed = speed
	}
}

// WithoutMetrics disables the daemon HTTP listener.
func WithoutMetrics() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Metrics.Bind = ""
	}
}
