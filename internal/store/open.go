package store

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// Open initializes the configured store and verifies connectivity.
// When cfg.RedisAddr is set the returned store is wrapped with the
// latest-sample cache.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))

	var (
		st  Store
		err error
	)
	switch driver {
	case "postgres", "pg":
		st, err = openPostgres(ctx, cfg, log)
	case "sqlite", "sqlite3":
		st, err = openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown store driver: " + cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Ping(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	if strings.TrimSpace(cfg.RedisAddr) != "" {
		st = newLatestCache(st, cfg, log)
	}
	return st, nil
}
