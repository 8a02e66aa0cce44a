package monitor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"aquamon/internal/liveness"
	"aquamon/internal/notify"
	"aquamon/internal/store"
)

// Dispatcher fans a transition event out to the notification channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev notify.Event) notify.Result
}

// Config controls the monitoring cycle.
type Config struct {
	// PollInterval is the fixed tick between cycles (default 60s).
	PollInterval time.Duration
	// SettleDelay postpones the immediate startup cycle (default 5s).
	SettleDelay time.Duration
	// DefaultOfflineTimeout applies to units without a configured timeout.
	DefaultOfflineTimeout time.Duration
	// SampleWindow caps how many recent data points are fetched per device.
	SampleWindow int
	// UnitTimeout bounds all store/transport calls for a single unit so a
	// stuck call can't hold up the rest of the cycle.
	UnitTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Minute
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 5 * time.Second
	}
	if c.DefaultOfflineTimeout <= 0 {
		c.DefaultOfflineTimeout = liveness.DefaultOfflineTimeout
	}
	if c.SampleWindow <= 0 {
		c.SampleWindow = 50
	}
	if c.UnitTimeout <= 0 {
		c.UnitTimeout = 30 * time.Second
	}
	return c
}

// Service runs the periodic monitoring cycle: enumerate units, evaluate each
// configured device, feed the tracker, and dispatch transition events.
type Service struct {
	mu  sync.Mutex
	cfg Config

	store   store.Store
	tracker *Tracker
	disp    Dispatcher
	stats   *Stats
	log     zerolog.Logger

	c      *cron.Cron
	entry  cron.EntryID
	runCtx context.Context
	cancel context.CancelFunc
}

func New(cfg Config, st store.Store, tracker *Tracker, disp Dispatcher, stats *Stats, log zerolog.Logger) *Service {
	return &Service{
		cfg:     cfg.withDefaults(),
		store:   st,
		tracker: tracker,
		disp:    disp,
		stats:   stats,
		log:     log,
	}
}

func (s *Service) Tracker() *Tracker { return s.tracker }
func (s *Service) Stats() *Stats     { return s.stats }

// OfflineKeys exposes the currently-offline device keys for the health view.
func (s *Service) OfflineKeys() []string { return s.tracker.OfflineKeys() }

// Start schedules the cycle and kicks off the delayed startup run.
// A new tick is skipped while the previous cycle is still running; the
// tracker's mutex makes that a safety net rather than a correctness
// requirement.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	s.runCtx, s.cancel = context.WithCancel(ctx)
	clog := cronLogger{log: s.log}
	s.c = cron.New(cron.WithChain(
		cron.Recover(clog),
		cron.SkipIfStillRunning(clog),
	))

	entry, err := s.c.AddFunc(fmt.Sprintf("@every %s", s.cfg.PollInterval), func() {
		s.RunCycle(s.runCtx)
	})
	if err != nil {
		return err
	}
	s.entry = entry
	s.c.Start()

	settle := s.cfg.SettleDelay
	runCtx := s.runCtx
	go func() {
		t := time.NewTimer(settle)
		defer t.Stop()
		select {
		case <-runCtx.Done():
		case <-t.C:
			s.RunCycle(runCtx)
		}
	}()

	s.log.Info().
		Dur("poll_interval", s.cfg.PollInterval).
		Dur("settle_delay", settle).
		Msg("monitoring started")
	return nil
}

// Stop halts the schedule and waits for a running cycle to finish, bounded
// by ctx.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	cancel := s.cancel
	s.c = nil
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info().Msg("monitoring stopped")
}

// Apply picks up a changed poll interval at runtime.
func (s *Service) Apply(cfg Config) error {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.cfg
	s.cfg = cfg
	if s.c == nil || cfg.PollInterval == old.PollInterval {
		return nil
	}

	s.c.Remove(s.entry)
	entry, err := s.c.AddFunc(fmt.Sprintf("@every %s", cfg.PollInterval), func() {
		s.RunCycle(s.runCtx)
	})
	if err != nil {
		s.cfg = old
		return err
	}
	s.entry = entry
	s.log.Info().Dur("poll_interval", cfg.PollInterval).Msg("poll interval updated")
	return nil
}

// RunCycle executes one full pass over all units. Per-unit failures are
// contained and counted; a panic is recovered so the scheduler always
// survives to fire the next tick.
func (s *Service) RunCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.stats.AddErrors(1)
			s.log.Error().Any("panic", r).Str("stack", string(debug.Stack())).Msg("panic in monitoring cycle")
		}
	}()

	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	start := time.Now()
	units, err := s.store.Units(ctx)
	if err != nil {
		s.stats.AddErrors(1)
		s.log.Error().Err(err).Msg("listing units failed")
		return
	}
	if len(units) == 0 {
		s.log.Debug().Msg("no units found")
		s.stats.CycleDone(time.Now(), s.tracker.OfflineCount())
		return
	}

	s.log.Debug().Int("units", len(units)).Msg("checking all devices")
	for _, u := range units {
		if ctx.Err() != nil {
			return
		}
		if err := s.checkUnit(ctx, cfg, u); err != nil {
			s.stats.AddErrors(1)
			s.log.Error().Err(err).Str("unit", u.ID).Msg("unit check failed")
		}
	}

	s.stats.CycleDone(time.Now(), s.tracker.OfflineCount())
	s.log.Debug().
		Int("units", len(units)).
		Int("offline", s.tracker.OfflineCount()).
		Dur("took", time.Since(start)).
		Msg("cycle finished")
}

func (s *Service) checkUnit(ctx context.Context, cfg Config, u store.Unit) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.UnitTimeout)
	defer cancel()

	settings, err := s.store.Settings(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if settings == nil || settings.Device == nil || settings.Device.DeviceID == "" {
		// Unconfigured units are a valid steady state, not an error.
		s.log.Debug().Str("unit", u.ID).Msg("no device configured")
		return nil
	}

	deviceID := settings.Device.DeviceID
	timeout := settings.Device.OfflineTimeout
	if timeout <= 0 {
		timeout = cfg.DefaultOfflineTimeout
	}

	samples, err := s.store.Samples(ctx, deviceID, cfg.SampleWindow)
	if err != nil {
		return fmt.Errorf("load samples for %s: %w", deviceID, err)
	}

	res := liveness.Evaluate(timeout, samples, time.Now())
	key := Key{UnitID: u.ID, DeviceID: deviceID}
	kind, fire := s.tracker.Observe(key, res.Status)
	if !fire {
		return nil
	}

	userID := settings.UserID
	if userID == "" {
		userID = u.UserID
	}
	ev := notify.Event{
		Kind:              kind,
		UnitID:            u.ID,
		UnitName:          u.Name,
		Location:          u.Location,
		DeviceID:          deviceID,
		UserID:            userID,
		NotificationEmail: settings.NotificationEmail,
		UserEmail:         settings.UserEmail,
		Reason:            res.Reason,
		At:                time.Now(),
	}
	if kind == notify.DeviceRecovered {
		ev.Reason = ""
	}

	s.log.Info().
		Str("device_key", key.String()).
		Str("event", kind.String()).
		Str("reason", res.Reason).
		Msg("liveness transition")

	dres := s.disp.Dispatch(ctx, ev)
	s.stats.AddSent(dres.SentChannels())
	s.stats.AddErrors(dres.FailedChannels())
	return nil
}

// cronLogger adapts zerolog to cron's logging interface.
type cronLogger struct{ log zerolog.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug().Fields(kvMap(kv)).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error().Err(err).Fields(kvMap(kv)).Msg(msg)
}

func kvMap(kv []interface{}) map[string]interface{} {
	if len(kv) == 0 {
		return nil
	}
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			k = fmt.Sprint(kv[i])
		}
		m[k] = kv[i+1]
	}
	return m
}
