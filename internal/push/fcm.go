package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Config configures the FCM sender.
type Config struct {
	ProjectID       string
	CredentialsFile string // optional; ADC is used when empty
}

// FCM sends via Firebase Cloud Messaging.
type FCM struct {
	client *messaging.Client
	log    zerolog.Logger
}

func NewFCM(ctx context.Context, cfg Config, log zerolog.Logger) (*FCM, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging client: %w", err)
	}
	return &FCM{client: client, log: log}, nil
}

func (f *FCM) Send(ctx context.Context, m Message) (Report, error) {
	resp, err := f.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Notification: &messaging.Notification{Title: m.Title, Body: m.Body},
		Data:         m.Data,
		Tokens:       m.Tokens,
	})
	if err != nil {
		return Report{}, fmt.Errorf("fcm multicast: %w", err)
	}

	rep := Report{SuccessCount: resp.SuccessCount, FailureCount: resp.FailureCount}
	for i, r := range resp.Responses {
		if r.Success || r.Error == nil {
			continue
		}
		// Unregistered and malformed tokens are gone for good; anything
		// else (quota, transient transport trouble) keeps the token alive
		// for the next cycle.
		if messaging.IsUnregistered(r.Error) || messaging.IsInvalidArgument(r.Error) {
			rep.Invalid = append(rep.Invalid, m.Tokens[i])
			f.log.Debug().Str("token", m.Tokens[i]).Err(r.Error).Msg("push token permanently invalid")
		} else {
			f.log.Debug().Str("token", m.Tokens[i]).Err(r.Error).Msg("push send failed")
		}
	}
	return rep, nil
}
