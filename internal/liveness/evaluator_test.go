package liveness

import (
	"testing"
	"time"

	"aquamon/internal/store"
)

func TestEvaluateNoData(t *testing.T) {
	now := time.Unix(1700, 0)
	res := Evaluate(10*time.Minute, nil, now)
	if res.Status != StatusOffline {
		t.Fatalf("status = %v, want offline", res.Status)
	}
	if res.Reason != "no data point found" {
		t.Fatalf("reason = %q", res.Reason)
	}
	if !res.LastSeen.IsZero() || res.Age != -1 {
		t.Fatalf("lastSeen = %v, age = %v, want zero/-1", res.LastSeen, res.Age)
	}
}

func TestEvaluateMalformedTimestampsOnly(t *testing.T) {
	now := time.Unix(1700, 0)
	points := []store.Sample{
		{DeviceID: "d1", Timestamp: 0},
		{DeviceID: "d1", Timestamp: -5},
	}
	res := Evaluate(10*time.Minute, points, now)
	if res.Status != StatusOffline || res.Reason != "no data point found" {
		t.Fatalf("got %v %q, want offline with no-data reason", res.Status, res.Reason)
	}
}

func TestEvaluateOfflineReason(t *testing.T) {
	// 700s stale with a 600s timeout: offline, floor(700/60) = 11 minutes.
	now := time.Unix(1700, 0)
	points := []store.Sample{{DeviceID: "d1", Timestamp: 1000}}
	res := Evaluate(600*time.Second, points, now)
	if res.Status != StatusOffline {
		t.Fatalf("status = %v, want offline", res.Status)
	}
	if want := "no data for 11 minutes"; res.Reason != want {
		t.Fatalf("reason = %q, want %q", res.Reason, want)
	}
	if !res.LastSeen.Equal(time.Unix(1000, 0)) {
		t.Fatalf("lastSeen = %v", res.LastSeen)
	}
	if res.Age != 700*time.Second {
		t.Fatalf("age = %v", res.Age)
	}
}

func TestEvaluateBoundaryIsOnline(t *testing.T) {
	// Age exactly equal to the timeout stays online; offline needs strictly
	// older data.
	now := time.Unix(1600, 0)
	points := []store.Sample{{DeviceID: "d1", Timestamp: 1000}}
	res := Evaluate(600*time.Second, points, now)
	if res.Status != StatusOnline {
		t.Fatalf("status = %v, want online at the boundary", res.Status)
	}
	if res.Reason != "" {
		t.Fatalf("reason = %q, want empty for online", res.Reason)
	}
}

func TestEvaluateNewestPointWins(t *testing.T) {
	now := time.Unix(2000, 0)
	points := []store.Sample{
		{DeviceID: "d1", Timestamp: 100},
		{DeviceID: "d1", Timestamp: 1950},
		{DeviceID: "d1", Timestamp: 500},
	}
	res := Evaluate(600*time.Second, points, now)
	if res.Status != StatusOnline {
		t.Fatalf("status = %v, want online", res.Status)
	}
	if !res.LastSeen.Equal(time.Unix(1950, 0)) {
		t.Fatalf("lastSeen = %v, want newest point", res.LastSeen)
	}
}

func TestEvaluateMillisecondClock(t *testing.T) {
	// A producer reporting in milliseconds must compare equal to the same
	// instant reported in seconds.
	sec := int64(1_700_000_000)
	now := time.Unix(sec+30, 0)
	points := []store.Sample{{DeviceID: "d1", Timestamp: sec * 1000}}
	res := Evaluate(10*time.Minute, points, now)
	if res.Status != StatusOnline {
		t.Fatalf("status = %v, want online", res.Status)
	}
	if !res.LastSeen.Equal(time.Unix(sec, 0)) {
		t.Fatalf("lastSeen = %v, want %v", res.LastSeen, time.Unix(sec, 0))
	}
}

func TestEvaluateZeroTimeoutUsesDefault(t *testing.T) {
	now := time.Unix(0, 0).Add(9 * time.Minute)
	points := []store.Sample{{DeviceID: "d1", Timestamp: 1}}
	res := Evaluate(0, points, now)
	if res.Status != StatusOnline {
		t.Fatalf("status = %v, want online under the default timeout", res.Status)
	}
}

func TestNormalizeSeconds(t *testing.T) {
	cases := []struct {
		name string
		in   int64
		want int64
	}{
		{"seconds pass through", 1_700_000_000, 1_700_000_000},
		{"milliseconds divided", 1_700_000_000_000, 1_700_000_000},
		{"threshold is millis", 1_000_000_000_000, 1_000_000_000},
		{"below threshold untouched", 999_999_999_999, 999_999_999_999},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeSeconds(tc.in); got != tc.want {
				t.Fatalf("NormalizeSeconds(%d) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}
