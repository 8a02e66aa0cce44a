package app

import (
	"time"

	"aquamon/internal/config"
	"aquamon/internal/httpapi"
	"aquamon/internal/monitor"
	"aquamon/internal/store"
)

// The config file carries durations as strings; these helpers materialize the
// typed component configs. Validation already checked the strings parse, so
// errors here mean a programming mistake, not bad input.

func buildMonitorConfig(cfg *config.Config) (monitor.Config, error) {
	poll, err := config.ParseDurationOrDefault("monitor.poll_interval", cfg.Monitor.PollInterval, time.Minute)
	if err != nil {
		return monitor.Config{}, err
	}
	settle, err := config.ParseDurationOrDefault("monitor.settle_delay", cfg.Monitor.SettleDelay, 5*time.Second)
	if err != nil {
		return monitor.Config{}, err
	}
	offline, err := config.ParseDurationOrDefault("monitor.default_offline_timeout", cfg.Monitor.DefaultOfflineTimeout, 10*time.Minute)
	if err != nil {
		return monitor.Config{}, err
	}
	unitTimeout, err := config.ParseDurationOrDefault("monitor.unit_timeout", cfg.Monitor.UnitTimeout, 30*time.Second)
	if err != nil {
		return monitor.Config{}, err
	}
	return monitor.Config{
		PollInterval:          poll,
		SettleDelay:           settle,
		DefaultOfflineTimeout: offline,
		SampleWindow:          cfg.Monitor.SampleWindow,
		UnitTimeout:           unitTimeout,
	}, nil
}

func buildStoreConfig(cfg *config.Config) (store.Config, error) {
	busy, err := config.ParseDurationField("store.busy_timeout", cfg.Store.BusyTimeout)
	if err != nil {
		return store.Config{}, err
	}
	ttl, err := config.ParseDurationField("store.cache_ttl", cfg.Store.CacheTTL)
	if err != nil {
		return store.Config{}, err
	}
	return store.Config{
		Driver:      cfg.Store.Driver,
		DSN:         cfg.Store.DSN,
		Path:        cfg.Store.Path,
		BusyTimeout: busy,
		RedisAddr:   cfg.Store.RedisAddr,
		CacheTTL:    ttl,
	}, nil
}

func buildHTTPConfig(cfg *config.Config) (httpapi.Config, error) {
	read, err := config.ParseDurationField("http.read_timeout", cfg.HTTP.ReadTimeout)
	if err != nil {
		return httpapi.Config{}, err
	}
	write, err := config.ParseDurationField("http.write_timeout", cfg.HTTP.WriteTimeout)
	if err != nil {
		return httpapi.Config{}, err
	}
	idle, err := config.ParseDurationField("http.idle_timeout", cfg.HTTP.IdleTimeout)
	if err != nil {
		return httpapi.Config{}, err
	}
	return httpapi.Config{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
	}, nil
}
