// Package commands implements the mailxfer CLI subcommands.
package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/mboxbridge/mailxfer/internal/applog"
	"github.com/mboxbridge/mailxfer/internal/config"
	"github.com/mboxbridge/mailxfer/internal/orchestrator"
)

// TransferCommand copies messages from the source mailbox to the
// destination mailbox, either a single named folder or, with --auto, every
// discovered folder.
func TransferCommand() *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "copy messages from the source mailbox to the destination mailbox",
		Flags: transferFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.New(c)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, logFile, err := applog.New(cfg.LogFile)
			if err != nil {
				return fmt.Errorf("open log file %q: %w", cfg.LogFile, err)
			}
			defer func() { _ = logFile.Close() }()

			return orchestrator.New(cfg, logger).Run(ctx)
		},
	}
}

func transferFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "source-host", Usage: "source IMAP server hostname", Sources: cli.EnvVars("SOURCE_HOST")},
		&cli.StringFlag{Name: "source-user", Usage: "source IMAP account username", Sources: cli.EnvVars("SOURCE_USER")},
		&cli.StringFlag{Name: "source-pass", Usage: "source IMAP account password (falls back to $SOURCE_PASS)", Sources: cli.EnvVars("SOURCE_PASS")},
		&cli.StringFlag{Name: "dest-host", Usage: "destination IMAP server hostname", Sources: cli.EnvVars("DEST_HOST")},
		&cli.StringFlag{Name: "dest-user", Usage: "destination IMAP account username", Sources: cli.EnvVars("DEST_USER")},
		&cli.StringFlag{Name: "dest-pass", Usage: "destination IMAP account password (falls back to $DEST_PASS)", Sources: cli.EnvVars("DEST_PASS")},
		&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "single source folder to transfer; omit with --auto"},
		&cli.BoolFlag{Name: "auto", Usage: "transfer every discovered folder instead of a single one"},
		&cli.IntFlag{Name: "port", Usage: "IMAP port used for both servers", Value: config.DefaultPort},
		&cli.IntFlag{Name: "timeout", Usage: "connection timeout in seconds", Value: int64(config.DefaultTimeout.Seconds())},
		&cli.IntFlag{Name: "retry-count", Usage: "total attempts per fetch/append before giving up on a message", Value: config.DefaultRetryCount},
		&cli.IntFlag{Name: "retry-delay", Usage: "base retry delay in seconds (doubles per attempt)", Value: int64(config.DefaultRetryDelay.Seconds())},
		&cli.StringFlag{Name: "log-file", Usage: "path to the run's log file", Value: config.DefaultLogFile},
		&cli.StringFlag{Name: "cache-db", Usage: "path to the resume cache database", Value: config.DefaultCacheDB},
		&cli.IntFlag{Name: "max-message-size", Usage: "messages larger than this many bytes are skipped", Value: config.DefaultMaxMessageSize},
		&cli.StringFlag{Name: "inbox-rewrite", Usage: "destination namespace rewrite rule: off, always-prefix, prefix-when-nested", Value: "prefix-when-nested"},
	}
}
