package monitor

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats holds the cumulative service counters surfaced on /health and
// /status. Safe for concurrent use.
type Stats struct {
	start time.Time

	totalCycles       atomic.Uint64
	notificationsSent atomic.Uint64
	errors            atomic.Uint64
	offlineDevices    atomic.Int64

	mu        sync.Mutex
	lastCycle time.Time
}

func NewStats() *Stats {
	return &Stats{start: time.Now()}
}

func (s *Stats) CycleDone(at time.Time, offline int) {
	s.totalCycles.Add(1)
	s.offlineDevices.Store(int64(offline))
	s.mu.Lock()
	s.lastCycle = at
	s.mu.Unlock()
}

func (s *Stats) AddSent(n int) {
	if n > 0 {
		s.notificationsSent.Add(uint64(n))
	}
}

func (s *Stats) AddErrors(n int) {
	if n > 0 {
		s.errors.Add(uint64(n))
	}
}

// Snapshot is the JSON shape of the counters.
type Snapshot struct {
	StartTime         time.Time  `json:"startTime"`
	TotalChecks       uint64     `json:"totalChecks"`
	OfflineDevices    int64      `json:"offlineDevices"`
	NotificationsSent uint64     `json:"notificationsSent"`
	Errors            uint64     `json:"errors"`
	LastCheck         *time.Time `json:"lastCheck,omitempty"`
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	last := s.lastCycle
	s.mu.Unlock()

	snap := Snapshot{
		StartTime:         s.start,
		TotalChecks:       s.totalCycles.Load(),
		OfflineDevices:    s.offlineDevices.Load(),
		NotificationsSent: s.notificationsSent.Load(),
		Errors:            s.errors.Load(),
	}
	if !last.IsZero() {
		snap.LastCheck = &last
	}
	return snap
}

func (s *Stats) Uptime() time.Duration { return time.Since(s.start) }
