package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type pgStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func openPostgres(ctx context.Context, cfg Config, log zerolog.Logger) (Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	return &pgStore{pool: pool, log: log}, nil
}

func (s *pgStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *pgStore) Units(ctx context.Context) ([]Unit, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, location, user_id FROM units ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
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

func (s *pgStore) Settings(ctx context.Context, unitID string) (*UnitSettings, error) {
	var (
		st          UnitSettings
		deviceID    string
		timeoutSecs int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT unit_id, device_id, offline_timeout_secs, notification_email, user_email, user_id
		 FROM unit_settings WHERE unit_id = $1`, unitID).
		Scan(&st.UnitID, &deviceID, &timeoutSecs, &st.NotificationEmail, &st.UserEmail, &st.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	if deviceID != "" {
		st.Device = &DeviceConfig{
			DeviceID:       deviceID,
			OfflineTimeout: time.Duration(timeoutSecs) * time.Second,
		}
	}
	return &st, nil
}

func (s *pgStore) Samples(ctx context.Context, deviceID string, limit int) ([]Sample, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT device_id, ts, payload FROM samples WHERE device_id = $1 ORDER BY ts DESC LIMIT $2`,
		deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	samples := make([]Sample, 0, limit)
	for rows.Next() {
		var sm Sample
		if err := rows.Scan(&sm.DeviceID, &sm.Timestamp, &sm.Payload); err != nil {
			return nil, err
		}
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

func (s *pgStore) UserEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := s.pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return email, err
}

func (s *pgStore) Tokens(ctx context.Context, userID string) ([]PushToken, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT token, is_active, deactivated_at FROM push_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []PushToken
	for rows.Next() {
		var t PushToken
		if err := rows.Scan(&t.Token, &t.Active, &t.DeactivatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *pgStore) DeactivateTokens(ctx context.Context, userID string, tokens []string, at time.Time) error {
	if len(tokens) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE push_tokens SET is_active = false, deactivated_at = $1
		 WHERE user_id = $2 AND token = ANY($3) AND is_active`,
		at.UTC(), userID, tokens)
	return err
}

func (s *pgStore) AppendAlert(ctx context.Context, a AlertRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO alerts(id, user_id, unit_id, unit_name, device_id, type, severity, title, message, reason, at, is_read)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.UserID, a.UnitID, a.UnitName, a.DeviceID, a.Type, a.Severity,
		a.Title, a.Message, a.Reason, a.At.UTC(), a.Read)
	return err
}
