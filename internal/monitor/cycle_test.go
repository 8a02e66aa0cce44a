package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"aquamon/internal/notify"
	"aquamon/internal/store"
)

type fakeStore struct {
	units       []store.Unit
	settings    map[string]*store.UnitSettings
	samples     map[string][]store.Sample
	settingsErr map[string]error
}

func (f *fakeStore) Units(context.Context) ([]store.Unit, error) { return f.units, nil }

func (f *fakeStore) Settings(_ context.Context, unitID string) (*store.UnitSettings, error) {
	if err := f.settingsErr[unitID]; err != nil {
		return nil, err
	}
	return f.settings[unitID], nil
}

func (f *fakeStore) Samples(_ context.Context, deviceID string, _ int) ([]store.Sample, error) {
	return f.samples[deviceID], nil
}

func (f *fakeStore) UserEmail(context.Context, string) (string, error) { return "", nil }
func (f *fakeStore) Tokens(context.Context, string) ([]store.PushToken, error) {
	return nil, nil
}
func (f *fakeStore) DeactivateTokens(context.Context, string, []string, time.Time) error {
	return nil
}
func (f *fakeStore) AppendAlert(context.Context, store.AlertRecord) error { return nil }
func (f *fakeStore) Ping(context.Context) error                           { return nil }
func (f *fakeStore) Close() error                                         { return nil }

type fakeDispatcher struct {
	events []notify.Event
	result notify.Result
}

func (f *fakeDispatcher) Dispatch(_ context.Context, ev notify.Event) notify.Result {
	f.events = append(f.events, ev)
	return f.result
}

func okResult() notify.Result {
	return notify.Result{
		Push:   notify.PushResult{ChannelResult: notify.ChannelResult{Status: notify.ChannelOK}},
		Email:  notify.ChannelResult{Status: notify.ChannelOK},
		Record: notify.ChannelResult{Status: notify.ChannelOK},
	}
}

func staleSample(deviceID string) store.Sample {
	return store.Sample{DeviceID: deviceID, Timestamp: time.Now().Add(-time.Hour).Unix()}
}

func freshSample(deviceID string) store.Sample {
	return store.Sample{DeviceID: deviceID, Timestamp: time.Now().Unix()}
}

func newTestService(st *fakeStore, disp Dispatcher) *Service {
	return New(Config{}, st, NewTracker(), disp, NewStats(), zerolog.Nop())
}

func TestRunCycleFiresOfflineOnce(t *testing.T) {
	st := &fakeStore{
		units: []store.Unit{{ID: "aq1", Name: "Reef", Location: "Office", UserID: "owner"}},
		settings: map[string]*store.UnitSettings{
			"aq1": {
				UnitID:            "aq1",
				Device:            &store.DeviceConfig{DeviceID: "d1", OfflineTimeout: 10 * time.Minute},
				NotificationEmail: "alerts@example.com",
				UserEmail:         "owner@example.com",
			},
		},
		samples: map[string][]store.Sample{"d1": {staleSample("d1")}},
	}
	disp := &fakeDispatcher{result: okResult()}
	svc := newTestService(st, disp)

	svc.RunCycle(context.Background())
	svc.RunCycle(context.Background())

	if len(disp.events) != 1 {
		t.Fatalf("events = %d, want exactly 1 across repeated cycles", len(disp.events))
	}
	ev := disp.events[0]
	if ev.Kind != notify.DeviceOffline || ev.DeviceID != "d1" || ev.UnitID != "aq1" {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Reason == "" {
		t.Fatal("offline event missing reason")
	}
	// No per-settings user id: unit owner is used.
	if ev.UserID != "owner" {
		t.Fatalf("user id = %q, want unit owner", ev.UserID)
	}
	if ev.NotificationEmail != "alerts@example.com" || ev.UserEmail != "owner@example.com" {
		t.Fatalf("event addresses = %q, %q", ev.NotificationEmail, ev.UserEmail)
	}

	keys := svc.OfflineKeys()
	if len(keys) != 1 || keys[0] != "aq1-d1" {
		t.Fatalf("offline keys = %v", keys)
	}

	snap := svc.Stats().Snapshot()
	if snap.TotalChecks != 2 || snap.OfflineDevices != 1 {
		t.Fatalf("stats = %+v", snap)
	}
	if snap.NotificationsSent != 3 {
		t.Fatalf("sent = %d, want 3 channels from one event", snap.NotificationsSent)
	}
}

func TestRunCycleRecovery(t *testing.T) {
	st := &fakeStore{
		units: []store.Unit{{ID: "aq1", UserID: "owner"}},
		settings: map[string]*store.UnitSettings{
			"aq1": {UnitID: "aq1", Device: &store.DeviceConfig{DeviceID: "d1"}},
		},
		samples: map[string][]store.Sample{"d1": {staleSample("d1")}},
	}
	disp := &fakeDispatcher{result: okResult()}
	svc := newTestService(st, disp)

	svc.RunCycle(context.Background())
	st.samples["d1"] = []store.Sample{freshSample("d1")}
	svc.RunCycle(context.Background())

	if len(disp.events) != 2 {
		t.Fatalf("events = %d, want offline then recovery", len(disp.events))
	}
	rec := disp.events[1]
	if rec.Kind != notify.DeviceRecovered {
		t.Fatalf("second event = %v", rec.Kind)
	}
	if rec.Reason != "" {
		t.Fatalf("recovery reason = %q, want empty", rec.Reason)
	}
	if svc.Tracker().OfflineCount() != 0 {
		t.Fatal("tracker still holds the key after recovery")
	}
}

func TestRunCycleSkipsUnconfiguredUnits(t *testing.T) {
	st := &fakeStore{
		units: []store.Unit{
			{ID: "aq1"},
			{ID: "aq2"},
		},
		settings: map[string]*store.UnitSettings{
			"aq2": {UnitID: "aq2"}, // settings exist but no device
		},
	}
	disp := &fakeDispatcher{result: okResult()}
	svc := newTestService(st, disp)

	svc.RunCycle(context.Background())
	if len(disp.events) != 0 {
		t.Fatalf("events = %+v, want none", disp.events)
	}
	if svc.Stats().Snapshot().Errors != 0 {
		t.Fatal("unconfigured units counted as errors")
	}
}

func TestRunCycleContainsUnitFailure(t *testing.T) {
	st := &fakeStore{
		units: []store.Unit{{ID: "broken"}, {ID: "aq1", UserID: "owner"}},
		settings: map[string]*store.UnitSettings{
			"aq1": {UnitID: "aq1", Device: &store.DeviceConfig{DeviceID: "d1"}},
		},
		settingsErr: map[string]error{"broken": errors.New("row corrupt")},
		samples:     map[string][]store.Sample{"d1": {staleSample("d1")}},
	}
	disp := &fakeDispatcher{result: okResult()}
	svc := newTestService(st, disp)

	svc.RunCycle(context.Background())

	// The failing unit is counted but the healthy one is still checked.
	if len(disp.events) != 1 {
		t.Fatalf("events = %d, want the healthy unit's alert", len(disp.events))
	}
	if svc.Stats().Snapshot().Errors != 1 {
		t.Fatalf("errors = %d, want 1", svc.Stats().Snapshot().Errors)
	}
}

func TestRunCycleNoDataDeviceGoesOffline(t *testing.T) {
	st := &fakeStore{
		units: []store.Unit{{ID: "aq1", UserID: "owner"}},
		settings: map[string]*store.UnitSettings{
			"aq1": {UnitID: "aq1", Device: &store.DeviceConfig{DeviceID: "silent"}},
		},
	}
	disp := &fakeDispatcher{result: okResult()}
	svc := newTestService(st, disp)

	svc.RunCycle(context.Background())
	if len(disp.events) != 1 {
		t.Fatalf("events = %d, want 1", len(disp.events))
	}
	if got := disp.events[0].Reason; got != "no data point found" {
		t.Fatalf("reason = %q", got)
	}
}

func TestDeviceStatusesDoesNotTouchTracker(t *testing.T) {
	st := &fakeStore{
		units: []store.Unit{{ID: "aq1", Name: "Reef", UserID: "owner"}},
		settings: map[string]*store.UnitSettings{
			"aq1": {UnitID: "aq1", Device: &store.DeviceConfig{DeviceID: "d1"}},
		},
		samples: map[string][]store.Sample{"d1": {staleSample("d1")}},
	}
	disp := &fakeDispatcher{result: okResult()}
	svc := newTestService(st, disp)

	statuses, err := svc.DeviceStatuses(context.Background())
	if err != nil {
		t.Fatalf("DeviceStatuses: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Status != "offline" {
		t.Fatalf("statuses = %+v", statuses)
	}
	if svc.Tracker().OfflineCount() != 0 {
		t.Fatal("status view mutated dedup state")
	}
	if len(disp.events) != 0 {
		t.Fatal("status view dispatched events")
	}
}

func TestDeviceStatusesUnknownWithoutData(t *testing.T) {
	st := &fakeStore{
		units: []store.Unit{{ID: "aq1", UserID: "owner"}},
		settings: map[string]*store.UnitSettings{
			"aq1": {UnitID: "aq1", Device: &store.DeviceConfig{DeviceID: "silent"}},
		},
	}
	svc := newTestService(st, &fakeDispatcher{result: okResult()})

	statuses, err := svc.DeviceStatuses(context.Background())
	if err != nil {
		t.Fatalf("DeviceStatuses: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("statuses = %+v", statuses)
	}
	ds := statuses[0]
	if ds.Status != "unknown" || ds.LastUpdate != nil || ds.SecondsSinceUpdate != nil {
		t.Fatalf("status = %+v, want unknown with nil timing fields", ds)
	}
}
