// Package tokens owns the mapping from users to active push-delivery tokens.
package tokens

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"aquamon/internal/store"
)

// Store is the slice of the data store the registry needs.
type Store interface {
	Tokens(ctx context.Context, userID string) ([]store.PushToken, error)
	DeactivateTokens(ctx context.Context, userID string, tokens []string, at time.Time) error
}

// Registry reads and soft-retires push tokens. Tokens are never deleted
// here: deactivation leaves the record in place so a later re-registration
// (handled elsewhere) can revive the same token.
type Registry struct {
	store Store
	log   zerolog.Logger
}

func NewRegistry(st Store, log zerolog.Logger) *Registry {
	return &Registry{store: st, log: log}
}

// ActiveTokens returns the user's active token strings, order not
// significant. An empty result is a normal condition, not an error.
func (r *Registry) ActiveTokens(ctx context.Context, userID string) ([]string, error) {
	recs, err := r.store.Tokens(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := make([]string, 0, len(recs))
	for _, t := range recs {
		if t.Active && t.Token != "" {
			active = append(active, t.Token)
		}
	}
	return active, nil
}

// Deactivate marks the given tokens inactive with a deactivation stamp.
// Idempotent: already-inactive or unknown tokens are left untouched.
func (r *Registry) Deactivate(ctx context.Context, userID string, badTokens []string) error {
	cleaned := dedupe(badTokens)
	if len(cleaned) == 0 {
		return nil
	}
	if err := r.store.DeactivateTokens(ctx, userID, cleaned, time.Now()); err != nil {
		return err
	}
	r.log.Info().Str("user", userID).Int("tokens", len(cleaned)).Msg("deactivated invalid push tokens")
	return nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, t := range in {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
