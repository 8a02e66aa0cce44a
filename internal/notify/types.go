package notify

import "time"

type EventKind int

const (
	DeviceOffline EventKind = iota
	DeviceRecovered
)

func (k EventKind) String() string {
	if k == DeviceRecovered {
		return "device_online"
	}
	return "device_offline"
}

// Event is one liveness transition, the only trigger for outbound
// notifications. Reason is set for offline events only.
type Event struct {
	Kind     EventKind
	UnitID   string
	UnitName string
	Location string
	DeviceID string
	UserID   string

	// NotificationEmail is the unit's configured address, first in the
	// recipient fallback chain.
	NotificationEmail string
	// UserEmail is the owner address stored alongside the unit settings,
	// tried after NotificationEmail.
	UserEmail string

	Reason string
	At     time.Time
}

type ChannelStatus int

const (
	ChannelOK ChannelStatus = iota
	ChannelSkipped
	ChannelFailed
)

func (s ChannelStatus) String() string {
	switch s {
	case ChannelOK:
		return "ok"
	case ChannelSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// ChannelResult reports one channel's outcome. Skips carry a Detail
// ("no active tokens", "no recipient"); failures carry Err.
type ChannelResult struct {
	Status ChannelStatus
	Detail string
	Err    error
}

// PushResult adds the per-token counts from the batched push send.
type PushResult struct {
	ChannelResult
	SuccessCount int
	FailureCount int
}

// Result aggregates the independent channel outcomes for one event.
// Failures stay here as data; none of them abort the other channels.
type Result struct {
	Push   PushResult
	Email  ChannelResult
	Record ChannelResult
}

// SentChannels counts channels that delivered.
func (r Result) SentChannels() int {
	n := 0
	for _, st := range []ChannelStatus{r.Push.Status, r.Email.Status, r.Record.Status} {
		if st == ChannelOK {
			n++
		}
	}
	return n
}

// FailedChannels counts channels that errored.
func (r Result) FailedChannels() int {
	n := 0
	for _, st := range []ChannelStatus{r.Push.Status, r.Email.Status, r.Record.Status} {
		if st == ChannelFailed {
			n++
		}
	}
	return n
}
