package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mboxbridge/mailxfer/internal/cache"
	"github.com/mboxbridge/mailxfer/internal/imapclient"
	"github.com/mboxbridge/mailxfer/internal/xferrors"
)

// Reporter receives progress updates as a folder transfer proceeds. Any
// concrete progress bar/spinner implementation can satisfy it; the engine
// itself has no rendering concerns.
type Reporter interface {
	Advance(n int64)
	Describe(text string)
}

// noopReporter discards all progress updates.
type noopReporter struct{}

func (noopReporter) Advance(int64)  {}
func (noopReporter) Describe(string) {}

// Result aggregates the outcome of transferring one folder.
type Result struct {
	Folder      string
	Total       int
	Transferred int
	Skipped     int
	Failed      int
	TotalSize   int64
	Duration    time.Duration
	Errors      []error
}

// maxRecordedErrors bounds how many per-message errors a Result keeps, to
// avoid unbounded memory growth on a pathologically broken folder. Errors
// beyond this bound still count toward Failed.
const maxRecordedErrors = 20

// Engine copies one folder's messages from src to dst, skipping messages
// the cache already recorded as delivered and recording newly delivered
// ones as it goes. It is strictly sequential: one message's fetch, size
// check, append, and cache mark complete before the next UID is requested,
// so at most one message payload is ever held in memory.
type Engine struct {
	Src            imapclient.Session
	Dst            imapclient.Session
	Cache          *cache.Cache
	Retry          *xferrors.Handler
	MaxMessageSize int64
	Logger         zerolog.Logger
}

// retryWithLogging wraps e.Retry so every backoff sleep emits a warning
// naming the operation, the attempt counter, the cause, and the delay, and
// a successful retry after a prior failure emits a debug confirmation.
func (e *Engine) retryWithLogging(ctx context.Context, op, folder string, uid uint32, fn func() error) error {
	failed := false
	h := *e.Retry
	h.OnRetry = func(attempt, maxAttempts int, err error, delay time.Duration) {
		failed = true
		e.Logger.Warn().
			Str("op", op).
			Str("folder", folder).
			Uint32("uid", uid).
			Err(err).
			Dur("retry_in", delay).
			Msgf("attempt %d/%d failed for %s uid %d, retrying in %s", attempt, maxAttempts, op, uid, delay)
	}
	err := h.Do(ctx, fn)
	if err == nil && failed {
		e.Logger.Debug().Str("op", op).Str("folder", folder).Uint32("uid", uid).Msg("succeeded after retry")
	}
	return err
}

// TransferFolder copies every not-yet-delivered message from sourceFolder to
// destFolder, reporting progress via r (pass nil to discard progress).
func (e *Engine) TransferFolder(ctx context.Context, sourceFolder, destFolder string, r Reporter) (Result, error) {
	if r == nil {
		r = noopReporter{}
	}
	start := time.Now()
	result := Result{Folder: sourceFolder}

	if _, err := e.Src.SelectFolder(sourceFolder, true); err != nil {
		result.Duration = time.Since(start)
		return result, err
	}

	uids, err := e.Src.UIDSearchAll(nil)
	if err != nil {
		result.Duration = time.Since(start)
		return result, err
	}
	result.Total = len(uids)

	delivered, err := e.Cache.TransferredUIDs(ctx, sourceFolder)
	if err != nil {
		result.Duration = time.Since(start)
		return result, err
	}

	pending := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		if delivered[uid] {
			result.Skipped++
			continue
		}
		pending = append(pending, uid)
	}

	r.Describe(fmt.Sprintf("%s: %d to transfer, %d already done", sourceFolder, len(pending), result.Skipped))

	for i, uid := range pending {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		r.Describe(fmt.Sprintf("%s (%d/%d)", sourceFolder, i+1, len(pending)))

		if err := e.transferOne(ctx, sourceFolder, destFolder, uid, &result); err != nil {
			result.Failed++
			result.Errors = recordError(result.Errors, err)
		}

		r.Advance(1)
	}

	result.Duration = time.Since(start)

	return result, nil
}

// transferOne fetches, size-gates, appends, and marks a single message.
func (e *Engine) transferOne(ctx context.Context, sourceFolder, destFolder string, uid uint32, result *Result) error {
	var msg imapclient.Message
	fetchErr := e.retryWithLogging(ctx, "fetch", sourceFolder, uid, func() error {
		var err error
		msg, err = e.Src.Fetch(uid)
		return err
	})
	if fetchErr != nil {
		return fetchErr
	}

	if e.MaxMessageSize > 0 && int64(len(msg.Payload)) > e.MaxMessageSize {
		e.Logger.Warn().
			Str("folder", sourceFolder).
			Uint32("uid", uid).
			Int("size", len(msg.Payload)).
			Int64("limit", e.MaxMessageSize).
			Msgf("uid %d exceeds max message size (%d > %d), skipping", uid, len(msg.Payload), e.MaxMessageSize)
		return xferrors.Wrap(xferrors.SizeLimit, "append", sourceFolder,
			fmt.Errorf("uid %d: message size %d exceeds limit %d", uid, len(msg.Payload), e.MaxMessageSize))
	}

	var destUID string
	appendErr := e.retryWithLogging(ctx, "append", sourceFolder, uid, func() error {
		var err error
		destUID, err = e.Dst.Append(destFolder, msg)
		return err
	})
	if appendErr != nil {
		return appendErr
	}

	// A mark failure is logged but never turns a delivered message into a
	// failure: the append already succeeded, so the message is transferred
	// regardless. The next run may redeliver it as a duplicate, which is
	// the accepted trade-off over silently losing the delivery record.
	if err := e.Cache.Mark(ctx, sourceFolder, uid, destUID, int64(len(msg.Payload))); err != nil {
		e.Logger.Error().
			Str("folder", sourceFolder).
			Uint32("uid", uid).
			Err(err).
			Msg("cache mark failed after successful append; message may be redelivered on next run")
	}

	result.Transferred++
	result.TotalSize += int64(len(msg.Payload))
	return nil
}

func recordError(errs []error, err error) []error {
	if len(errs) >= maxRecordedErrors {
		return errs
	}
	return append(errs, err)
}
