package config

import (
	"fmt"
)

// Validate rejects configs the service cannot start (or keep running) with.
// Duration strings are parsed here so a bad reload is caught before commit.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	switch cfg.Store.Driver {
	case "sqlite":
		if cfg.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	case "":
		return fmt.Errorf("store.driver is required (sqlite or postgres)")
	default:
		return fmt.Errorf("store.driver: unknown driver %q", cfg.Store.Driver)
	}

	durations := []struct{ path, raw string }{
		{"monitor.poll_interval", cfg.Monitor.PollInterval},
		{"monitor.settle_delay", cfg.Monitor.SettleDelay},
		{"monitor.default_offline_timeout", cfg.Monitor.DefaultOfflineTimeout},
		{"monitor.unit_timeout", cfg.Monitor.UnitTimeout},
		{"store.busy_timeout", cfg.Store.BusyTimeout},
		{"store.cache_ttl", cfg.Store.CacheTTL},
		{"http.read_timeout", cfg.HTTP.ReadTimeout},
		{"http.write_timeout", cfg.HTTP.WriteTimeout},
		{"http.idle_timeout", cfg.HTTP.IdleTimeout},
	}
	for _, d := range durations {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}

	if cfg.Monitor.SampleWindow < 0 {
		return fmt.Errorf("monitor.sample_window must be >= 0")
	}
	if cfg.Notify.RatePerSec < 0 {
		return fmt.Errorf("notify.rate_per_sec must be >= 0")
	}
	if cfg.Push != nil && cfg.Push.Enabled && cfg.Push.CredentialsFile == "" {
		return fmt.Errorf("push.credentials_file is required when push is enabled")
	}
	if cfg.Email != nil && cfg.Email.Enabled {
		if cfg.Email.Host == "" {
			return fmt.Errorf("email.host is required when email is enabled")
		}
		if cfg.Email.From == "" {
			return fmt.Errorf("email.from is required when email is enabled")
		}
	}
	return nil
}
