// Package orchestrator wires the cache, both IMAP sessions, the transfer
// engine, and progress/log sinks together into one run, which stops when
// the context passed in by its caller is cancelled.
package orchestrator

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mboxbridge/mailxfer/internal/cache"
	"github.com/mboxbridge/mailxfer/internal/config"
	"github.com/mboxbridge/mailxfer/internal/imapclient"
	"github.com/mboxbridge/mailxfer/internal/progress"
	"github.com/mboxbridge/mailxfer/internal/transfer"
	"github.com/mboxbridge/mailxfer/internal/xferrors"
)

// maxSummaryErrors caps how many per-folder error lines the final summary
// prints before truncating, so a badly broken mailbox doesn't flood the
// terminal.
const maxSummaryErrors = 10

// Orchestrator owns everything a single run needs and carries no package
// level state: every field here is local to one invocation of Run, so two
// runs (e.g. in tests) never interfere with each other.
type Orchestrator struct {
	Cfg    *config.Config
	Logger zerolog.Logger
}

// New builds an Orchestrator for cfg.
func New(cfg *config.Config, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{Cfg: cfg, Logger: logger}
}

func rewriteRuleFromString(s string) transfer.RewriteRule {
	switch strings.ToLower(s) {
	case "off":
		return transfer.Off
	case "always-prefix":
		return transfer.AlwaysPrefix
	default:
		return transfer.PrefixWhenNested
	}
}

// Run connects to both endpoints, opens the resume cache, and transfers
// either a single folder or the whole discovered mailbox depending on
// o.Cfg.AutoMode. It returns promptly on ctx cancellation.
func (o *Orchestrator) Run(ctx context.Context) error {
	cfg := o.Cfg
	log := o.Logger

	srcEP := imapclient.Endpoint{Host: cfg.SourceHost, Port: cfg.Port, User: cfg.SourceUser, Pass: cfg.SourcePass}
	dstEP := imapclient.Endpoint{Host: cfg.DestHost, Port: cfg.Port, User: cfg.DestUser, Pass: cfg.DestPass}

	log.Info().Str("host", srcEP.Host).Msg("connecting to source")
	src, err := imapclient.Dial(srcEP, "source", &tls.Config{ServerName: cfg.SourceHost}, cfg.Timeout)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	log.Info().Str("host", dstEP.Host).Msg("connecting to destination")
	dst, err := imapclient.Dial(dstEP, "destination", &tls.Config{ServerName: cfg.DestHost}, cfg.Timeout)
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()

	resumeCache, err := cache.Open(cfg.CacheDB)
	if err != nil {
		return err
	}
	defer func() { _ = resumeCache.Close() }()

	engine := &transfer.Engine{
		Src:            src,
		Dst:            dst,
		Cache:          resumeCache,
		Retry:          xferrors.NewHandler(cfg.RetryCount, cfg.RetryDelay),
		MaxMessageSize: cfg.MaxMessageSize,
		Logger:         log,
	}

	rule := rewriteRuleFromString(cfg.InboxRewrite)

	if cfg.AutoMode {
		return o.runAuto(ctx, engine, src, dst, rule)
	}
	return o.runSingleFolder(ctx, engine, dst, cfg.Folder, rule)
}

func (o *Orchestrator) runSingleFolder(ctx context.Context, engine *transfer.Engine, dst imapclient.Session, folder string, rule transfer.RewriteRule) error {
	destFolder, err := transfer.EnsureDestinationFolder(dst, folder, rule)
	if err != nil {
		return fmt.Errorf("ensure destination folder: %w", err)
	}
	if _, err := dst.SelectFolder(destFolder, false); err != nil {
		return fmt.Errorf("select destination folder: %w", err)
	}

	reporter := progress.NewReporter(folder, false)
	defer reporter.Close()

	result, err := engine.TransferFolder(ctx, folder, destFolder, reporter)
	if err != nil {
		return err
	}

	o.Logger.Info().
		Str("folder", folder).
		Int("transferred", result.Transferred).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("folder transfer complete")

	if result.Failed > 0 {
		return fmt.Errorf("folder %q completed with %d failed messages", folder, result.Failed)
	}
	return nil
}

func (o *Orchestrator) runAuto(ctx context.Context, engine *transfer.Engine, src, dst imapclient.Session, rule transfer.RewriteRule) error {
	reporter := progress.NewReporter("discovering folders", false)
	defer reporter.Close()

	driver := &transfer.AutoDriver{
		Engine:       engine,
		Src:          src,
		Dst:          dst,
		RewriteRule:  rule,
		SkipPatterns: o.Cfg.SkipPatterns,
		OnFolderDone: func(s transfer.FolderRunSummary) {
			if s.Succeeded() {
				o.Logger.Info().
					Str("folder", s.Folder).
					Int("transferred", s.Result.Transferred).
					Int("skipped", s.Result.Skipped).
					Int("failed", s.Result.Failed).
					Msg("folder done")
			} else {
				o.Logger.Error().Str("folder", s.Folder).Err(s.Err).Msg("folder failed")
			}
		},
	}

	summaries, err := driver.Run(ctx, reporter)
	if err != nil {
		return err
	}

	totals := transfer.Summarize(summaries)
	o.Logger.Info().
		Int("folders_ok", totals.FoldersOK).
		Int("folders_failed", totals.FoldersFailed).
		Int("transferred", totals.Transferred).
		Int("skipped", totals.Skipped).
		Int("failed", totals.Failed).
		Msg("run complete")

	printed := 0
	for _, s := range summaries {
		if s.Succeeded() {
			continue
		}
		if printed >= maxSummaryErrors {
			o.Logger.Warn().Int("remaining", totals.FoldersFailed-printed).Msg("additional folder failures omitted")
			break
		}
		o.Logger.Error().Str("folder", s.Folder).Err(s.Err).Msg("folder failed")
		printed++
	}

	if totals.FoldersFailed > 0 {
		return fmt.Errorf("%d of %d folders failed", totals.FoldersFailed, len(summaries))
	}
	return nil
}
