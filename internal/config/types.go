package config

type Config struct {
	Monitor MonitorConfig `json:"monitor"`
	Store   StoreConfig   `json:"store"`
	Push    *PushConfig   `json:"push,omitempty"`
	Email   *EmailConfig  `json:"email,omitempty"`
	Notify  NotifyConfig  `json:"notify,omitempty"`
	HTTP    HTTPConfig    `json:"http"`
	Logging LoggingConfig `json:"logging"`
}

// MonitorConfig controls the inspection cycle.
//
// All durations are Go duration strings (e.g. "30s", "1m", "10m").
//
// Defaults (when fields are omitted/zero):
//   - poll_interval: "1m"
//   - settle_delay: "5s"
//   - default_offline_timeout: "10m"
//   - sample_window: 50
//   - unit_timeout: "30s"
type MonitorConfig struct {
	PollInterval          string `json:"poll_interval,omitempty"`
	SettleDelay           string `json:"settle_delay,omitempty"`
	DefaultOfflineTimeout string `json:"default_offline_timeout,omitempty"`
	SampleWindow          int    `json:"sample_window,omitempty"`

	// UnitTimeout bounds the store work done for a single unit per cycle.
	UnitTimeout string `json:"unit_timeout,omitempty"`
}

// StoreConfig selects and configures the persistence layer.
//
// Example:
//
//	"store": { "driver": "sqlite", "path": "./aquamon.db" }
type StoreConfig struct {
	Driver      string `json:"driver"` // "sqlite" or "postgres"
	Path        string `json:"path,omitempty"`
	DSN         string `json:"dsn,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)

	// RedisAddr enables the latest-sample read-through cache when set.
	RedisAddr string `json:"redis_addr,omitempty"`
	CacheTTL  string `json:"cache_ttl,omitempty"`
}

// PushConfig configures the FCM push channel. Omit the section to disable
// push delivery entirely.
type PushConfig struct {
	Enabled         bool   `json:"enabled"`
	ProjectID       string `json:"project_id,omitempty"`
	CredentialsFile string `json:"credentials_file,omitempty"`
}

// EmailConfig configures the SMTP email channel. Omit the section to disable
// email delivery entirely.
type EmailConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"` // do not log
	From     string `json:"from"`

	// AdminEmail is the terminal fallback recipient for alert mail and the
	// default target for test notifications.
	AdminEmail string `json:"admin_email,omitempty"`
}

// NotifyConfig controls notification dispatch behavior.
type NotifyConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"` // default: 3
}

type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: ":8080"

	// Server timeouts (Go duration strings).
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

type LoggingConfig struct {
	Level  string `json:"level,omitempty"`  // trace|debug|info|warn|error (default: info)
	Format string `json:"format,omitempty"` // "json" (default) or "console"
}
