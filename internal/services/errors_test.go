package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrUnavailable, "audiobookshelf", "fetch catalog", "list libraries", cause)

	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable classification, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause preserved, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"audiobookshelf", "fetch catalog", "list libraries"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in message %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "sync", "run", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestIsCatalogFailure(t *testing.T) {
	cases := []struct {
		err    error
		expect bool
	}{
		{Wrap(ErrNotConfigured, "audiobookshelf", "", "", nil), true},
		{Wrap(ErrUnavailable, "audiobookshelf", "", "", nil), true},
		{fmt.Errorf("wrapped: %w", ErrUnavailable), true},
		{ErrSyncAlreadyRunning, false},
		{errors.New("other"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := IsCatalogFailure(tc.err); got != tc.expect {
			t.Fatalf("IsCatalogFailure(%v) = %v, want %v", tc.err, got, tc.expect)
		}
	}
}
