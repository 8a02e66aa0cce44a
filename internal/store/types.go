package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("store: not found")

// Config configures the backing store.
//
// Driver values:
//   - "postgres": pgx connection pool, DSN required
//   - "sqlite":   SQLite database file, Path required
//
// RedisAddr optionally enables the latest-sample read cache on top of
// whichever driver is selected.
type Config struct {
	Driver      string
	DSN         string        // postgres
	Path        string        // sqlite
	BusyTimeout time.Duration // sqlite only; 0 means default

	RedisAddr string
	CacheTTL  time.Duration // latest-sample cache TTL; 0 means default
}

// Unit is a monitored entity (an aquarium) owning at most one device.
type Unit struct {
	ID       string
	Name     string
	Location string
	UserID   string
}

// DeviceConfig is the per-unit monitoring configuration.
type DeviceConfig struct {
	DeviceID       string
	OfflineTimeout time.Duration
}

// UnitSettings holds the per-unit device config and notification addresses.
type UnitSettings struct {
	UnitID            string
	Device            *DeviceConfig // nil when no device is configured
	NotificationEmail string
	UserEmail         string
	UserID            string
}

// Sample is one device data point. Timestamp is the producer clock and may be
// in seconds or milliseconds; normalization happens at the liveness boundary.
type Sample struct {
	DeviceID  string
	Timestamp int64
	Payload   []byte // raw sensor payload, opaque to the monitor
}

// PushToken is one push-delivery credential owned by a user.
// Tokens are never deleted; deactivation is a soft state change.
type PushToken struct {
	Token         string
	Active        bool
	DeactivatedAt *time.Time
}

// AlertRecord is the persisted notification shown in the user's UI.
// Append-only; immutable once created.
type AlertRecord struct {
	ID       string
	UserID   string
	UnitID   string
	UnitName string
	DeviceID string
	Type     string
	Severity string
	Title    string
	Message  string
	Reason   string
	At       time.Time
	Read     bool
}

// Store is the persistence API consumed by the monitoring core.
//
// Reads cover units, settings, samples, and user emails; writes are limited
// to appending alerts and flipping token active state.
type Store interface {
	Units(ctx context.Context) ([]Unit, error)
	Settings(ctx context.Context, unitID string) (*UnitSettings, error)
	Samples(ctx context.Context, deviceID string, limit int) ([]Sample, error)
	UserEmail(ctx context.Context, userID string) (string, error)

	Tokens(ctx context.Context, userID string) ([]PushToken, error)
	DeactivateTokens(ctx context.Context, userID string, tokens []string, at time.Time) error

	AppendAlert(ctx context.Context, a AlertRecord) error

	Ping(ctx context.Context) error
	Close() error
}
