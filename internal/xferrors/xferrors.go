// Package xferrors classifies transfer failures and drives retry decisions.
package xferrors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind enumerates the closed set of failure categories a transfer can hit.
type Kind string

const (
	ConfigInvalid Kind = "CONFIG_INVALID"
	Connect       Kind = "CONNECT"
	Auth          Kind = "AUTH"
	FolderOp      Kind = "FOLDER_OP"
	Fetch         Kind = "FETCH"
	Append        Kind = "APPEND"
	Cache         Kind = "CACHE"
	SizeLimit     Kind = "SIZE_LIMIT"
	Protocol      Kind = "PROTOCOL"
	Interrupted   Kind = "INTERRUPTED"
)

// Class describes how the orchestrator should react to an error of this kind.
type Class int

const (
	// Retryable errors are worth retrying the same operation a bounded number of times.
	Retryable Class = iota
	// Skip errors should abandon the current message/folder and move on.
	Skip
	// Fatal errors abort the whole run.
	Fatal
)

// classOf returns the recovery policy for a given kind.
func classOf(k Kind) Class {
	switch k {
	case Connect, Fetch, Append, Protocol:
		return Retryable
	case ConfigInvalid, Auth:
		return Fatal
	case FolderOp, Cache, SizeLimit:
		return Skip
	case Interrupted:
		return Fatal
	default:
		return Fatal
	}
}

// Error is a typed, classified transfer error carrying the failing operation and host.
type Error struct {
	Kind  Kind
	Op    string
	Host  string
	Cause error
}

// Wrap builds a classified Error preserving the original cause for errors.As/Is.
func Wrap(kind Kind, op, host string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Host: host, Cause: cause}
}

func (e *Error) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Kind, e.Host, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Class reports the recovery policy for this error.
func (e *Error) Class() Class {
	return classOf(e.Kind)
}

// ClassOf extracts the recovery class from any error, defaulting to Fatal
// when the error was never classified by this package.
func ClassOf(err error) Class {
	var xe *Error
	if errors.As(err, &xe) {
		return xe.Class()
	}
	return Fatal
}

// KindOf extracts the Kind from a classified error, returning "" otherwise.
func KindOf(err error) Kind {
	var xe *Error
	if errors.As(err, &xe) {
		return xe.Kind
	}
	return ""
}

// Handler runs an operation with bounded exponential backoff, honoring
// context cancellation while waiting between attempts.
type Handler struct {
	MaxRetries int
	BaseDelay  time.Duration

	// OnRetry, when set, is called just before each backoff sleep with the
	// 1-indexed attempt number that just failed, the total attempts
	// allowed, the error that triggered the retry, and the delay about to
	// be slept. Callers use this to log "attempt k/n failed, retrying in
	// d" without this package taking a logging dependency.
	OnRetry func(attempt, maxAttempts int, err error, delay time.Duration)
}

// NewHandler builds a retry Handler with the given bounds.
func NewHandler(maxRetries int, baseDelay time.Duration) *Handler {
	return &Handler{MaxRetries: maxRetries, BaseDelay: baseDelay}
}

// Do runs op, retrying on Retryable classified errors with delay
// BaseDelay * 2^k for the k-th (0-indexed) retry attempt. Non-retryable
// errors and ctx cancellation are returned immediately. Do makes exactly
// MaxRetries total attempts (at least one, even when MaxRetries is zero);
// after the last one fails, the last error is returned unchanged.
func (h *Handler) Do(ctx context.Context, op func() error) error {
	maxAttempts := h.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if ClassOf(lastErr) != Retryable {
			return lastErr
		}

		if attempt == maxAttempts-1 {
			break
		}

		delay := h.BaseDelay * time.Duration(1<<uint(attempt))
		if h.OnRetry != nil {
			h.OnRetry(attempt+1, maxAttempts, lastErr, delay)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
