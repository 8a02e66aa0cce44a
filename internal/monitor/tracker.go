package monitor

import (
	"sort"
	"sync"

	"aquamon/internal/liveness"
	"aquamon/internal/notify"
)

// Key identifies a device within its unit for deduplication purposes.
type Key struct {
	UnitID   string
	DeviceID string
}

func (k Key) String() string { return k.UnitID + "-" + k.DeviceID }

// Tracker remembers which device keys are currently believed offline and
// turns raw liveness verdicts into at-most-one transition event per edge.
//
// Membership in the offline set is the sole source of truth: a key enters on
// the first offline verdict (one DeviceOffline event), leaves on the first
// online verdict after that (one DeviceRecovered event), and repeat verdicts
// in either direction emit nothing. The set lives in memory only; after a
// restart every device starts out assumed online and the first cycle corrects
// any that aren't.
type Tracker struct {
	mu      sync.Mutex
	offline map[Key]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{offline: make(map[Key]struct{})}
}

// Observe feeds one evaluation result for a key. The returned kind is only
// meaningful when fire is true.
func (t *Tracker) Observe(key Key, status liveness.Status) (kind notify.EventKind, fire bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, down := t.offline[key]
	switch status {
	case liveness.StatusOffline:
		if down {
			return 0, false
		}
		t.offline[key] = struct{}{}
		return notify.DeviceOffline, true
	case liveness.StatusOnline:
		if !down {
			return 0, false
		}
		delete(t.offline, key)
		return notify.DeviceRecovered, true
	default:
		return 0, false
	}
}

// OfflineKeys returns the currently-offline device keys, sorted for stable
// output on the health endpoint.
func (t *Tracker) OfflineKeys() []string {
	t.mu.Lock()
	keys := make([]string, 0, len(t.offline))
	for k := range t.offline {
		keys = append(keys, k.String())
	}
	t.mu.Unlock()

	sort.Strings(keys)
	return keys
}

// OfflineCount reports the size of the offline set.
func (t *Tracker) OfflineCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.offline)
}
