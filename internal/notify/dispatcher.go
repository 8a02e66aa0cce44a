// Package notify fans liveness transition events out to the notification
// channels: push, email, and the persisted alert record.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"aquamon/internal/mail"
	"aquamon/internal/push"
	"aquamon/internal/store"
)

// TokenRegistry resolves and retires push tokens for a user.
type TokenRegistry interface {
	ActiveTokens(ctx context.Context, userID string) ([]string, error)
	Deactivate(ctx context.Context, userID string, tokens []string) error
}

// AlertSink persists alert records.
type AlertSink interface {
	AppendAlert(ctx context.Context, a store.AlertRecord) error
}

// Config controls the dispatcher.
type Config struct {
	// AdminEmail terminates the recipient fallback chain.
	AdminEmail string
	// RatePerSec bounds outbound push/email sends. Defaults to 3.
	RatePerSec int
}

// Dispatcher delivers one event to all three channels independently.
// A channel failure is captured in the result and logged; it never blocks
// the other channels or propagates to the cycle.
type Dispatcher struct {
	cfg     Config
	tokens  TokenRegistry
	push    push.Sender // nil when the push channel is disabled
	mail    mail.Mailer // nil when the email channel is disabled
	alerts  AlertSink
	resolve *RecipientResolver
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewDispatcher(cfg Config, reg TokenRegistry, sender push.Sender, mailer mail.Mailer, alerts AlertSink, resolver *RecipientResolver, log zerolog.Logger) *Dispatcher {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 3
	}
	return &Dispatcher{
		cfg:     cfg,
		tokens:  reg,
		push:    sender,
		mail:    mailer,
		alerts:  alerts,
		resolve: resolver,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}
}

// Dispatch attempts all three channels for the event and reports what
// happened on each.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) Result {
	res := Result{
		Push:   d.sendPush(ctx, ev),
		Email:  d.sendEmail(ctx, ev),
		Record: d.persistRecord(ctx, ev),
	}

	log := d.log.With().
		Str("event", ev.Kind.String()).
		Str("unit", ev.UnitID).
		Str("device", ev.DeviceID).
		Logger()
	if res.Push.Status == ChannelFailed {
		log.Error().Err(res.Push.Err).Msg("push channel failed")
	}
	if res.Email.Status == ChannelFailed {
		log.Error().Err(res.Email.Err).Msg("email channel failed")
	}
	if res.Record.Status == ChannelFailed {
		log.Error().Err(res.Record.Err).Msg("alert record channel failed")
	}
	return res
}

func (d *Dispatcher) sendPush(ctx context.Context, ev Event) PushResult {
	if d.push == nil {
		return PushResult{ChannelResult: ChannelResult{Status: ChannelSkipped, Detail: "push disabled"}}
	}
	if ev.UserID == "" {
		return PushResult{ChannelResult: ChannelResult{Status: ChannelSkipped, Detail: "no owning user"}}
	}

	tokens, err := d.tokens.ActiveTokens(ctx, ev.UserID)
	if err != nil {
		return PushResult{ChannelResult: ChannelResult{Status: ChannelFailed, Err: fmt.Errorf("resolving tokens: %w", err)}}
	}
	if len(tokens) == 0 {
		d.log.Debug().Str("user", ev.UserID).Msg("no active push tokens, skipping push")
		return PushResult{ChannelResult: ChannelResult{Status: ChannelSkipped, Detail: "no active tokens"}}
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return PushResult{ChannelResult: ChannelResult{Status: ChannelFailed, Err: err}}
	}

	rep, err := d.push.Send(ctx, pushMessage(ev, tokens))
	if err != nil {
		return PushResult{ChannelResult: ChannelResult{Status: ChannelFailed, Err: err}}
	}

	if len(rep.Invalid) > 0 {
		// Permanent credential errors retire the token; they are not a
		// channel failure.
		if derr := d.tokens.Deactivate(ctx, ev.UserID, rep.Invalid); derr != nil {
			d.log.Warn().Err(derr).Str("user", ev.UserID).Msg("push token deactivation failed")
		}
	}

	pr := PushResult{SuccessCount: rep.SuccessCount, FailureCount: rep.FailureCount}
	if rep.SuccessCount == 0 && rep.FailureCount > 0 {
		pr.Status = ChannelFailed
		pr.Err = errors.New("all push tokens failed")
	}
	return pr
}

func pushMessage(ev Event, tokens []string) push.Message {
	m := push.Message{
		Tokens: tokens,
		Data: map[string]string{
			"type":     ev.Kind.String(),
			"unitId":   ev.UnitID,
			"deviceId": ev.DeviceID,
			"severity": severityFor(ev.Kind),
			"reason":   ev.Reason,
		},
	}
	if ev.Kind == DeviceRecovered {
		m.Title = "🟢 Device Online"
		m.Body = fmt.Sprintf("%s: %s is back online", ev.UnitName, ev.DeviceID)
	} else {
		m.Title = "🔴 Device Offline"
		m.Body = fmt.Sprintf("%s: %s is offline - %s", ev.UnitName, ev.DeviceID, ev.Reason)
	}
	return m
}

func (d *Dispatcher) sendEmail(ctx context.Context, ev Event) ChannelResult {
	if d.mail == nil {
		return ChannelResult{Status: ChannelSkipped, Detail: "email disabled"}
	}

	to, err := d.resolve.Resolve(ctx, ev)
	if err != nil {
		return ChannelResult{Status: ChannelFailed, Err: fmt.Errorf("resolving recipient: %w", err)}
	}
	if to == "" {
		d.log.Debug().Str("user", ev.UserID).Msg("no resolvable email address, skipping email")
		return ChannelResult{Status: ChannelSkipped, Detail: "no recipient"}
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return ChannelResult{Status: ChannelFailed, Err: err}
	}

	var m mail.Message
	if ev.Kind == DeviceRecovered {
		m = mail.Message{To: to, Subject: recoverySubject(ev), HTML: recoveryBody(ev)}
	} else {
		m = mail.Message{To: to, Subject: offlineSubject(ev), HTML: offlineBody(ev)}
	}
	if err := d.mail.Send(ctx, m); err != nil {
		return ChannelResult{Status: ChannelFailed, Err: err}
	}
	d.log.Info().Str("to", to).Str("device", ev.DeviceID).Msg("email notification sent")
	return ChannelResult{Status: ChannelOK}
}

func (d *Dispatcher) persistRecord(ctx context.Context, ev Event) ChannelResult {
	rec := store.AlertRecord{
		ID:       uuid.NewString(),
		UserID:   ev.UserID,
		UnitID:   ev.UnitID,
		UnitName: ev.UnitName,
		DeviceID: ev.DeviceID,
		Type:     "system",
		Severity: severityFor(ev.Kind),
		Reason:   ev.Reason,
		At:       ev.At,
	}
	if ev.Kind == DeviceRecovered {
		rec.Title = fmt.Sprintf("Device %s is Back Online", ev.DeviceID)
		rec.Message = fmt.Sprintf("Device %s has recovered and is now sending data normally.", ev.DeviceID)
	} else {
		rec.Title = fmt.Sprintf("Device %s is Offline", ev.DeviceID)
		rec.Message = fmt.Sprintf("Device %s has been offline (%s). Please check the device connection.", ev.DeviceID, ev.Reason)
	}

	if err := d.alerts.AppendAlert(ctx, rec); err != nil {
		return ChannelResult{Status: ChannelFailed, Err: err}
	}
	return ChannelResult{Status: ChannelOK}
}

func severityFor(k EventKind) string {
	if k == DeviceRecovered {
		return "low"
	}
	return "high"
}

// SendTest pushes a one-off message through the email channel only, for
// operational verification. Falls back to the admin address when to is empty.
func (d *Dispatcher) SendTest(ctx context.Context, to string) error {
	if d.mail == nil {
		return errors.New("email channel disabled")
	}
	if to == "" {
		to = d.cfg.AdminEmail
	}
	if to == "" {
		return errors.New("no recipient and no admin email configured")
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	now := time.Now()
	if err := d.mail.Send(ctx, mail.Message{To: to, Subject: testSubject(), HTML: testBody(now)}); err != nil {
		return err
	}
	d.log.Info().Str("to", to).Msg("test notification sent")
	return nil
}
