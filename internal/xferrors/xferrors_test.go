package xferrors

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestClassOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"connect retryable", Wrap(Connect, "dial", "imap.example.com", errors.New("timeout")), Retryable},
		{"auth fatal", Wrap(Auth, "login", "imap.example.com", errors.New("bad password")), Fatal},
		{"fetch retryable", Wrap(Fetch, "fetch", "", errors.New("no such uid")), Retryable},
		{"size limit skip", Wrap(SizeLimit, "append", "", errors.New("too big")), Skip},
		{"unclassified error defaults fatal", errors.New("boom"), Fatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassOf(tt.err); got != tt.want {
				t.Errorf("ClassOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandlerDoRetriesThenSucceeds(t *testing.T) {
	h := NewHandler(3, time.Millisecond)
	attempts := 0

	err := h.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return Wrap(Connect, "dial", "host", errors.New("refused"))
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestHandlerDoStopsOnNonRetryable(t *testing.T) {
	h := NewHandler(5, time.Millisecond)
	attempts := 0

	err := h.Do(context.Background(), func() error {
		attempts++
		return Wrap(Auth, "login", "host", errors.New("denied"))
	})

	if err == nil {
		t.Fatal("Do() expected error, got nil")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on fatal)", attempts)
	}
}

func TestHandlerDoExhaustsRetries(t *testing.T) {
	h := NewHandler(2, time.Millisecond)
	attempts := 0

	err := h.Do(context.Background(), func() error {
		attempts++
		return Wrap(Protocol, "fetch", "host", errors.New("truncated"))
	})

	if err == nil {
		t.Fatal("Do() expected error after exhausting retries")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (exactly MaxRetries total attempts)", attempts)
	}
}

func TestHandlerDoHonorsCancellation(t *testing.T) {
	h := NewHandler(5, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.Do(ctx, func() error {
		t.Fatal("op should not run after ctx is already canceled")
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
}
