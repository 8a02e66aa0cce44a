package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

func openSQLite(cfg Config, log zerolog.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Units(ctx context.Context) ([]Unit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, location, user_id FROM units ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.Name, &u.Location, &u.UserID); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (s *sqliteStore) Settings(ctx context.Context, unitID string) (*UnitSettings, error) {
	var (
		st          UnitSettings
		deviceID    string
		timeoutSecs int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT unit_id, device_id, offline_timeout_secs, notification_email, user_email, user_id
		 FROM unit_settings WHERE unit_id = ?`, unitID).
		Scan(&st.UnitID, &deviceID, &timeoutSecs, &st.NotificationEmail, &st.UserEmail, &st.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if deviceID != "" {
		st.Device = &DeviceConfig{
			DeviceID:       deviceID,
			OfflineTimeout: time.Duration(timeoutSecs) * time.Second,
		}
	}
	return &st, nil
}

func (s *sqliteStore) Samples(ctx context.Context, deviceID string, limit int) ([]Sample, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT device_id, ts, payload FROM samples WHERE device_id = ? ORDER BY ts DESC LIMIT ?`,
		deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var (
			sm      Sample
			payload sql.NullString
		)
		if err := rows.Scan(&sm.DeviceID, &sm.Timestamp, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			sm.Payload = []byte(payload.String)
		}
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

func (s *sqliteStore) UserEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := s.db.QueryRowContext(ctx, `SELECT email FROM users WHERE id = ?`, userID).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return email, err
}

func (s *sqliteStore) Tokens(ctx context.Context, userID string) ([]PushToken, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT token, is_active, deactivated_at FROM push_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []PushToken
	for rows.Next() {
		var (
			t   PushToken
			at  sql.NullString
			act int
		)
		if err := rows.Scan(&t.Token, &act, &at); err != nil {
			return nil, err
		}
		t.Active = act != 0
		if at.Valid {
			if ts, err := time.Parse(time.RFC3339Nano, at.String); err == nil {
				t.DeactivatedAt = &ts
			}
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *sqliteStore) DeactivateTokens(ctx context.Context, userID string, tokens []string, at time.Time) error {
	if len(tokens) == 0 {
		return nil
	}
	stamp := at.UTC().Format(time.RFC3339Nano)
	for _, tok := range tokens {
		// Only flips still-active rows, so repeated deactivation is a no-op.
		_, err := s.db.ExecContext(ctx,
			`UPDATE push_tokens SET is_active = 0, deactivated_at = ?
			 WHERE user_id = ? AND token = ? AND is_active = 1`,
			stamp, userID, tok)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) AppendAlert(ctx context.Context, a AlertRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts(id, user_id, unit_id, unit_name, device_id, type, severity, title, message, reason, at, is_read)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.UserID, a.UnitID, a.UnitName, a.DeviceID, a.Type, a.Severity,
		a.Title, a.Message, a.Reason, a.At.UTC().Format(time.RFC3339Nano), boolInt(a.Read),
	)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
