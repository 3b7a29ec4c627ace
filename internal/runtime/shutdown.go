package runtime

import "time"

const (
	defaultDrain           = 2 * time.Second
	defaultGracefulTimeout = 5 * time.Second
	defaultForceClose      = 2 * time.Second
)

type ShutdownConfig struct {
	Drain           time.Duration
	GracefulTimeout time.Duration
	ForceClose      time.Duration
}

func ApplyShutdownDefaults(cfg ShutdownConfig) ShutdownConfig {
	if cfg.Drain <= 0 {
		cfg.Drain = defaultDrain
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = defaultGracefulTimeout
	}
	if cfg.ForceClose <= 0 {
		cfg.ForceClose = defaultForceClose
	}
	return cfg
}
