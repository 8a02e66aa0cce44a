package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"aquamon/internal/store"
)

type fakeStore struct {
	tokens map[string][]store.PushToken
	calls  [][]string
}

func (f *fakeStore) Tokens(_ context.Context, userID string) ([]store.PushToken, error) {
	return f.tokens[userID], nil
}

func (f *fakeStore) DeactivateTokens(_ context.Context, _ string, tokens []string, _ time.Time) error {
	f.calls = append(f.calls, tokens)
	return nil
}

func TestActiveTokensFiltersInactive(t *testing.T) {
	st := &fakeStore{tokens: map[string][]store.PushToken{
		"u1": {
			{Token: "a", Active: true},
			{Token: "b", Active: false},
			{Token: "", Active: true},
			{Token: "c", Active: true},
		},
	}}
	r := NewRegistry(st, zerolog.Nop())

	got, err := r.ActiveTokens(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ActiveTokens: %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("tokens = %v, want [a c]", got)
	}
}

func TestActiveTokensUnknownUser(t *testing.T) {
	r := NewRegistry(&fakeStore{}, zerolog.Nop())
	got, err := r.ActiveTokens(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ActiveTokens: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("tokens = %v, want empty", got)
	}
}

func TestDeactivateDeduplicates(t *testing.T) {
	st := &fakeStore{}
	r := NewRegistry(st, zerolog.Nop())

	if err := r.Deactivate(context.Background(), "u1", []string{"x", "x", "", "y"}); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if len(st.calls) != 1 {
		t.Fatalf("store calls = %d, want 1", len(st.calls))
	}
	if got := st.calls[0]; len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Fatalf("deactivated = %v, want [x y]", got)
	}
}

func TestDeactivateEmptyIsNoop(t *testing.T) {
	st := &fakeStore{}
	r := NewRegistry(st, zerolog.Nop())

	if err := r.Deactivate(context.Background(), "u1", nil); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if err := r.Deactivate(context.Background(), "u1", []string{""}); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if len(st.calls) != 0 {
		t.Fatalf("store calls = %d, want 0", len(st.calls))
	}
}
