package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapDoesNotRewrapTypedErrors(t *testing.T) {
	orig := NewAppError(ErrRateLimit, "tmdb rate limit exceeded", nil)
	wrapped := Wrap(fmt.Errorf("context: %w", orig), ErrNetwork, "outer")

	if wrapped != orig {
		t.Fatalf("expected the original typed error back, got %+v", wrapped)
	}
	if TypeOf(wrapped) != ErrRateLimit {
		t.Fatalf("type must survive wrapping, got %s", TypeOf(wrapped))
	}
}

func TestWrapTypesPlainErrors(t *testing.T) {
	wrapped := Wrap(errors.New("connection refused"), ErrNetwork, "request failed")
	if TypeOf(wrapped) != ErrNetwork {
		t.Fatalf("expected NETWORK_ERROR, got %s", TypeOf(wrapped))
	}
	if wrapped.Details["cause"] != "connection refused" {
		t.Fatalf("cause must be preserved in details, got %v", wrapped.Details)
	}
}

func TestUserMessageNeverLeaksRawErrors(t *testing.T) {
	raw := errors.New("dial tcp 10.0.0.1:443: i/o timeout")
	msg := UserMessage(Wrap(raw, ErrNetwork, "tmdb request failed"))
	if msg != "Network error. Please check your internet connection." {
		t.Fatalf("unexpected message: %q", msg)
	}

	if got := UserMessage(errors.New("anything")); got != unknownUserMessage {
		t.Fatalf("untyped errors map to the generic message, got %q", got)
	}
}

func TestMovieYear(t *testing.T) {
	cases := []struct {
		date string
		want int
	}{
		{"2010-07-16", 2010},
		{"1984", 1984},
		{"", 0},
		{"n/a", 0},
	}
	for _, tc := range cases {
		m := Movie{ReleaseDate: tc.date}
		if got := m.Year(); got != tc.want {
			t.Errorf("Year(%q) = %d, want %d", tc.date, got, tc.want)
		}
	}
}
