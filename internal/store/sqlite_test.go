package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *sqliteStore {
	t.Helper()
	st, err := openSQLite(Config{Path: filepath.Join(t.TempDir(), "test.db")}, zerolog.Nop())
	if err != nil {
		t.Fatalf("openSQLite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st.(*sqliteStore)
}

func seed(t *testing.T, st *sqliteStore, query string, args ...any) {
	t.Helper()
	if _, err := st.db.Exec(query, args...); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestSQLiteUnitsAndSettings(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seed(t, st, `INSERT INTO units(id, name, location, user_id) VALUES('aq1', 'Reef', 'Office', 'u1')`)
	seed(t, st, `INSERT INTO units(id, name, location, user_id) VALUES('aq2', 'Nano', 'Home', 'u2')`)
	seed(t, st, `INSERT INTO unit_settings(unit_id, device_id, offline_timeout_secs, notification_email, user_email, user_id)
		VALUES('aq1', 'esp32-01', 300, 'alerts@example.com', '', 'u1')`)

	units, err := st.Units(ctx)
	if err != nil {
		t.Fatalf("Units: %v", err)
	}
	if len(units) != 2 || units[0].ID != "aq1" || units[1].UserID != "u2" {
		t.Fatalf("units = %+v", units)
	}

	settings, err := st.Settings(ctx, "aq1")
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if settings == nil || settings.Device == nil {
		t.Fatalf("settings = %+v", settings)
	}
	if settings.Device.DeviceID != "esp32-01" || settings.Device.OfflineTimeout != 5*time.Minute {
		t.Fatalf("device = %+v", settings.Device)
	}

	// Units without settings report nil, not an error.
	missing, err := st.Settings(ctx, "aq2")
	if err != nil {
		t.Fatalf("Settings(aq2): %v", err)
	}
	if missing != nil {
		t.Fatalf("settings for unconfigured unit = %+v, want nil", missing)
	}
}

func TestSQLiteSamplesNewestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, ts := range []int64{100, 300, 200} {
		seed(t, st, `INSERT INTO samples(device_id, ts, payload) VALUES('d1', ?, '{}')`, ts)
	}
	seed(t, st, `INSERT INTO samples(device_id, ts, payload) VALUES('other', 999, NULL)`)

	samples, err := st.Samples(ctx, "d1", 2)
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("samples = %+v, want 2", samples)
	}
	if samples[0].Timestamp != 300 || samples[1].Timestamp != 200 {
		t.Fatalf("order = %d, %d; want newest first", samples[0].Timestamp, samples[1].Timestamp)
	}
}

func TestSQLiteUserEmail(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seed(t, st, `INSERT INTO users(id, email) VALUES('u1', 'owner@example.com')`)

	email, err := st.UserEmail(ctx, "u1")
	if err != nil || email != "owner@example.com" {
		t.Fatalf("UserEmail = %q, %v", email, err)
	}

	email, err = st.UserEmail(ctx, "ghost")
	if err != nil || email != "" {
		t.Fatalf("UserEmail(ghost) = %q, %v; want empty, nil", email, err)
	}
}

func TestSQLiteTokenDeactivation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seed(t, st, `INSERT INTO push_tokens(user_id, token, is_active) VALUES('u1', 'a', 1)`)
	seed(t, st, `INSERT INTO push_tokens(user_id, token, is_active) VALUES('u1', 'b', 1)`)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := st.DeactivateTokens(ctx, "u1", []string{"a"}, at); err != nil {
		t.Fatalf("DeactivateTokens: %v", err)
	}

	tokens, err := st.Tokens(ctx, "u1")
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	byToken := map[string]PushToken{}
	for _, tok := range tokens {
		byToken[tok.Token] = tok
	}
	if byToken["a"].Active {
		t.Fatal("token a still active")
	}
	if byToken["a"].DeactivatedAt == nil || !byToken["a"].DeactivatedAt.Equal(at) {
		t.Fatalf("deactivated_at = %v, want %v", byToken["a"].DeactivatedAt, at)
	}
	if !byToken["b"].Active {
		t.Fatal("token b should stay active")
	}

	// Repeating the deactivation must not move the original stamp.
	later := at.Add(time.Hour)
	if err := st.DeactivateTokens(ctx, "u1", []string{"a"}, later); err != nil {
		t.Fatalf("repeat DeactivateTokens: %v", err)
	}
	tokens, _ = st.Tokens(ctx, "u1")
	for _, tok := range tokens {
		if tok.Token == "a" && !tok.DeactivatedAt.Equal(at) {
			t.Fatalf("stamp moved to %v on repeat", tok.DeactivatedAt)
		}
	}
}

func TestSQLiteAppendAlert(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec := AlertRecord{
		ID:       "alert-1",
		UserID:   "u1",
		UnitID:   "aq1",
		UnitName: "Reef",
		DeviceID: "esp32-01",
		Type:     "system",
		Severity: "high",
		Title:    "Device esp32-01 is Offline",
		Message:  "Device esp32-01 has been offline (no data for 11 minutes). Please check the device connection.",
		Reason:   "no data for 11 minutes",
		At:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := st.AppendAlert(ctx, rec); err != nil {
		t.Fatalf("AppendAlert: %v", err)
	}

	var (
		severity string
		isRead   int
	)
	err := st.db.QueryRow(`SELECT severity, is_read FROM alerts WHERE id = 'alert-1'`).Scan(&severity, &isRead)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if severity != "high" || isRead != 0 {
		t.Fatalf("severity=%q is_read=%d", severity, isRead)
	}

	// IDs are unique; a duplicate append is rejected.
	if err := st.AppendAlert(ctx, rec); err == nil {
		t.Fatal("expected duplicate id to fail")
	}
}
