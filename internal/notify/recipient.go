package notify

import (
	"context"
	"strings"
)

// ResolverFunc tries one address source. Empty string means "try the next
// source"; an error aborts the chain.
type ResolverFunc func(ctx context.Context, ev Event) (string, error)

// RecipientResolver walks an ordered list of address sources and returns the
// first hit: unit address, then the owner's stored address, then the admin
// address.
type RecipientResolver struct {
	chain []ResolverFunc
}

func NewRecipientResolver(chain ...ResolverFunc) *RecipientResolver {
	return &RecipientResolver{chain: chain}
}

// Resolve returns the recipient address or "" when no source has one.
func (r *RecipientResolver) Resolve(ctx context.Context, ev Event) (string, error) {
	for _, fn := range r.chain {
		addr, err := fn(ctx, ev)
		if err != nil {
			return "", err
		}
		if addr = strings.TrimSpace(addr); addr != "" {
			return addr, nil
		}
	}
	return "", nil
}

// UnitNotificationEmail reads the unit's configured notification address off
// the event.
func UnitNotificationEmail() ResolverFunc {
	return func(_ context.Context, ev Event) (string, error) {
		return ev.NotificationEmail, nil
	}
}

// SettingsUserEmail reads the owner address stored with the unit settings.
func SettingsUserEmail() ResolverFunc {
	return func(_ context.Context, ev Event) (string, error) {
		return ev.UserEmail, nil
	}
}

// UserEmails is the store slice the stored-address source needs.
type UserEmails interface {
	UserEmail(ctx context.Context, userID string) (string, error)
}

// StoredUserEmail looks the owning user's address up in the store.
func StoredUserEmail(users UserEmails) ResolverFunc {
	return func(ctx context.Context, ev Event) (string, error) {
		if ev.UserID == "" {
			return "", nil
		}
		return users.UserEmail(ctx, ev.UserID)
	}
}

// AdminEmail terminates the chain at the configured operator address.
func AdminEmail(addr string) ResolverFunc {
	return func(context.Context, Event) (string, error) {
		return addr, nil
	}
}
