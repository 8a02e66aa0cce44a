// Package app wires configuration, storage, notification channels, and the
// monitoring cycle into one runnable service.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"aquamon/internal/config"
	"aquamon/internal/httpapi"
	"aquamon/internal/mail"
	"aquamon/internal/monitor"
	"aquamon/internal/notify"
	"aquamon/internal/push"
	"aquamon/internal/store"
	"aquamon/internal/tokens"
)

type App struct {
	log    zerolog.Logger
	cfgMgr *config.Manager

	store      store.Store
	mailer     *mail.SMTP // nil when email is disabled
	dispatcher *notify.Dispatcher
	monitor    *monitor.Service
	http       *httpapi.Server // nil when http is disabled

	wg        sync.WaitGroup
	cancelBkg context.CancelFunc
}

// New builds the full service from the config file at path. Construction
// order matters: store before channels, channels before dispatcher,
// dispatcher before the cycle.
func New(ctx context.Context, path string) (*App, error) {
	cfgMgr := config.NewManager(path, zerolog.Nop())
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.Logging)
	a := &App{log: log, cfgMgr: cfgMgr}
	cfgMgr.SetLogger(log.With().Str("component", "config").Logger())

	storeCfg, err := buildStoreConfig(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, storeCfg, log.With().Str("component", "store").Logger())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = st

	var mailer *mail.SMTP
	adminEmail := ""
	if cfg.Email != nil && cfg.Email.Enabled {
		mailer = mail.NewSMTP(mail.Config{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		}, log.With().Str("component", "mail").Logger())
		adminEmail = cfg.Email.AdminEmail
	}
	a.mailer = mailer

	var sender push.Sender
	if cfg.Push != nil && cfg.Push.Enabled {
		fcm, err := push.NewFCM(ctx, push.Config{
			ProjectID:       cfg.Push.ProjectID,
			CredentialsFile: cfg.Push.CredentialsFile,
		}, log.With().Str("component", "push").Logger())
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("init push: %w", err)
		}
		sender = fcm
	}

	registry := tokens.NewRegistry(st, log.With().Str("component", "tokens").Logger())
	resolver := notify.NewRecipientResolver(
		notify.UnitNotificationEmail(),
		notify.SettingsUserEmail(),
		notify.StoredUserEmail(st),
		notify.AdminEmail(adminEmail),
	)

	var mailChan mail.Mailer
	if mailer != nil {
		mailChan = mailer
	}
	a.dispatcher = notify.NewDispatcher(
		notify.Config{AdminEmail: adminEmail, RatePerSec: cfg.Notify.RatePerSec},
		registry, sender, mailChan, st, resolver,
		log.With().Str("component", "notify").Logger(),
	)

	monCfg, err := buildMonitorConfig(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	a.monitor = monitor.New(monCfg, st, monitor.NewTracker(), a.dispatcher, monitor.NewStats(),
		log.With().Str("component", "monitor").Logger())

	if cfg.HTTP.Enabled {
		httpCfg, err := buildHTTPConfig(cfg)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		a.http = httpapi.NewServer(httpCfg, a.monitor, a.monitor.Stats(), a.dispatcher,
			log.With().Str("component", "http").Logger())
	}

	return a, nil
}

// Start verifies the outbound channels, launches the cycle and HTTP server,
// and begins watching the config file for reloads.
func (a *App) Start(ctx context.Context) error {
	if a.mailer != nil {
		// A broken mail transport should not keep the monitor down; alerts
		// still go out via push and the persisted record.
		if err := a.mailer.Verify(ctx); err != nil {
			a.log.Warn().Err(err).Msg("mail transport verification failed")
		}
	}

	if err := a.monitor.Start(ctx); err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}
	if a.http != nil {
		a.http.Start()
	}

	bkgCtx, cancel := context.WithCancel(context.Background())
	a.cancelBkg = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgMgr.Watch(bkgCtx)
	}()

	updates := a.cfgMgr.Subscribe(1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgMgr.Unsubscribe(updates)
		for {
			select {
			case <-bkgCtx.Done():
				return
			case cfg, ok := <-updates:
				if !ok {
					return
				}
				a.applyReload(cfg)
			}
		}
	}()

	a.log.Info().Msg("service started")
	return nil
}

// applyReload applies the live-tunable subset of a config change. Store,
// push, email, and HTTP changes need a restart and are called out in the log.
func (a *App) applyReload(cfg *config.Config) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Logging.Level))

	monCfg, err := buildMonitorConfig(cfg)
	if err != nil {
		a.log.Warn().Err(err).Msg("reload: bad monitor config")
		return
	}
	if err := a.monitor.Apply(monCfg); err != nil {
		a.log.Warn().Err(err).Msg("reload: applying monitor config failed")
		return
	}
	a.log.Info().Msg("config reload applied (store/push/email/http changes need a restart)")
}

// Stop shuts the service down in reverse start order, bounded by ctx.
func (a *App) Stop(ctx context.Context) {
	if a.cancelBkg != nil {
		a.cancelBkg()
	}
	if a.http != nil {
		if err := a.http.Stop(ctx); err != nil {
			a.log.Warn().Err(err).Msg("http shutdown failed")
		}
	}
	a.monitor.Stop(ctx)
	a.wg.Wait()
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("store close failed")
	}
	a.log.Info().Msg("service stopped")
}
