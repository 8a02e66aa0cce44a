package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default TTL stays below the poll interval so the cache can never hide a
// data point long enough to flip a liveness verdict.
const defaultCacheTTL = 45 * time.Second

// latestCache is a read-through cache for the latest-sample hot path.
// Every monitoring cycle fetches samples for every device; the newest point
// is all the evaluator needs, so it is kept in Redis under a short TTL
// (key "device:last:<id>"). The underlying store stays the source of truth
// and serves every miss.
type latestCache struct {
	Store
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

func newLatestCache(inner Store, cfg Config, log zerolog.Logger) Store {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &latestCache{
		Store: inner,
		rdb:   redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}),
		ttl:   ttl,
		log:   log,
	}
}

func lastSampleKey(deviceID string) string { return "device:last:" + deviceID }

func (c *latestCache) Samples(ctx context.Context, deviceID string, limit int) ([]Sample, error) {
	raw, err := c.rdb.Get(ctx, lastSampleKey(deviceID)).Bytes()
	if err == nil {
		var sm Sample
		if jerr := json.Unmarshal(raw, &sm); jerr == nil && sm.Timestamp > 0 {
			return []Sample{sm}, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		// Cache trouble is not a store failure; fall through to the inner store.
		c.log.Debug().Err(err).Str("device", deviceID).Msg("latest-sample cache read failed")
	}

	samples, err := c.Store.Samples(ctx, deviceID, limit)
	if err != nil {
		return nil, err
	}
	if latest, ok := newestOf(samples); ok {
		if b, jerr := json.Marshal(latest); jerr == nil {
			if serr := c.rdb.Set(ctx, lastSampleKey(deviceID), b, c.ttl).Err(); serr != nil {
				c.log.Debug().Err(serr).Str("device", deviceID).Msg("latest-sample cache write failed")
			}
		}
	}
	return samples, nil
}

func (c *latestCache) Close() error {
	_ = c.rdb.Close()
	return c.Store.Close()
}

func newestOf(samples []Sample) (Sample, bool) {
	if len(samples) == 0 {
		return Sample{}, false
	}
	latest := samples[0]
	for _, s := range samples[1:] {
		if s.Timestamp > latest.Timestamp {
			latest = s
		}
	}
	return latest, true
}
