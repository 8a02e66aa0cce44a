package monitor

import (
	"context"
	"fmt"
	"time"

	"aquamon/internal/liveness"
)

// DeviceStatus is the read-only per-device view served on /devices.
type DeviceStatus struct {
	UnitID                string     `json:"unitId"`
	UnitName              string     `json:"unitName"`
	Location              string     `json:"location"`
	DeviceID              string     `json:"deviceId"`
	Status                string     `json:"status"`
	LastUpdate            *time.Time `json:"lastUpdate"`
	SecondsSinceUpdate    *int64     `json:"secondsSinceUpdate"`
	OfflineTimeoutSeconds int64      `json:"offlineTimeoutSeconds"`
}

// DeviceStatuses evaluates every configured device on demand. Unlike the
// cycle it never touches the tracker, so querying it has no side effects on
// deduplication state. Devices with no data point at all report "unknown".
func (s *Service) DeviceStatuses(ctx context.Context) ([]DeviceStatus, error) {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	units, err := s.store.Units(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}

	out := make([]DeviceStatus, 0, len(units))
	for _, u := range units {
		settings, err := s.store.Settings(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("settings for %s: %w", u.ID, err)
		}
		if settings == nil || settings.Device == nil || settings.Device.DeviceID == "" {
			continue
		}

		timeout := settings.Device.OfflineTimeout
		if timeout <= 0 {
			timeout = cfg.DefaultOfflineTimeout
		}

		ds := DeviceStatus{
			UnitID:                u.ID,
			UnitName:              u.Name,
			Location:              u.Location,
			DeviceID:              settings.Device.DeviceID,
			Status:                liveness.StatusUnknown.String(),
			OfflineTimeoutSeconds: int64(timeout / time.Second),
		}

		samples, err := s.store.Samples(ctx, settings.Device.DeviceID, cfg.SampleWindow)
		if err != nil {
			return nil, fmt.Errorf("samples for %s: %w", settings.Device.DeviceID, err)
		}
		if res := liveness.Evaluate(timeout, samples, time.Now()); !res.LastSeen.IsZero() {
			ds.Status = res.Status.String()
			last := res.LastSeen
			ds.LastUpdate = &last
			secs := int64(res.Age.Seconds())
			ds.SecondsSinceUpdate = &secs
		}
		out = append(out, ds)
	}
	return out, nil
}
