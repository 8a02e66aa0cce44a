// Package liveness decides whether a device is still reporting.
//
// Evaluation is a pure function of the device's configured timeout, its data
// points, and the clock passed in: no I/O, deterministic given inputs.
package liveness

import (
	"fmt"
	"time"

	"aquamon/internal/store"
)

type Status int

const (
	StatusUnknown Status = iota
	StatusOnline
	StatusOffline
)

func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// DefaultOfflineTimeout applies when a unit has no configured timeout.
const DefaultOfflineTimeout = 10 * time.Minute

// Timestamps at or above this are taken as milliseconds. Seconds-based
// producer clocks won't cross it until the year 33658.
const millisThreshold = int64(1e12)

// NormalizeSeconds folds producer timestamps stored in either seconds or
// milliseconds down to seconds. This is the single place unit normalization
// happens; everything downstream compares seconds to seconds.
func NormalizeSeconds(ts int64) int64 {
	if ts >= millisThreshold {
		return ts / 1000
	}
	return ts
}

// Result is one liveness verdict.
// LastSeen is zero and Age is -1 when no valid data point exists.
type Result struct {
	Status   Status
	Reason   string
	LastSeen time.Time
	Age      time.Duration
}

// Evaluate computes the liveness of a device from its data points.
//
// The newest point by timestamp wins; ties are broken arbitrarily (producers
// are expected to emit monotonically distinct timestamps). Data points with a
// missing or non-positive timestamp are treated as absent rather than failing
// the evaluation. A device is offline when its newest point is strictly older
// than the timeout; age exactly equal to the timeout still counts as online.
func Evaluate(timeout time.Duration, points []store.Sample, now time.Time) Result {
	if timeout <= 0 {
		timeout = DefaultOfflineTimeout
	}

	var (
		latest int64
		found  bool
	)
	for _, p := range points {
		if p.Timestamp <= 0 {
			continue
		}
		if sec := NormalizeSeconds(p.Timestamp); !found || sec > latest {
			latest = sec
			found = true
		}
	}
	if !found {
		return Result{Status: StatusOffline, Reason: "no data point found", Age: -1}
	}

	lastSeen := time.Unix(latest, 0)
	age := now.Sub(lastSeen)
	if age > timeout {
		return Result{
			Status:   StatusOffline,
			Reason:   fmt.Sprintf("no data for %d minutes", int64(age.Seconds())/60),
			LastSeen: lastSeen,
			Age:      age,
		}
	}
	return Result{Status: StatusOnline, LastSeen: lastSeen, Age: age}
}
