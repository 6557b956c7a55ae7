package config

const (
	defaultConfigPath       = "~/.config/discdrive/config.toml"
	projectConfigName       = "discdrive.toml"
	defaultDevice           = "/dev/sr0"
	defaultStateDir         = "~/.local/share/discdrive"
	defaultLogDir           = "~/.local/share/discdrive/logs"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	defaultPollInterval     = 2
	defaultReopenBurst      = 3
	defaultReopenPerMinute  = 6
	defaultMetricsBind      = "127.0.0.1:7488"
	deviceEnvVar            = "DISCDRIVE_DEVICE"
	maxSpindleSpeed         = 0xFFFF
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Drive: Drive{
			Device: defaultDevice,
		},
		Monitor: Monitor{
			PollInterval:    defaultPollInterval,
			ReopenBurst:     defaultReopenBurst,
			ReopenPerMinute: defaultReopenPerMinute,
			Netlink:         true,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Metrics: Metrics{
			Bind: defaultMetricsBind,
		},
	}
}
