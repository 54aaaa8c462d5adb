// Package main is the mailxfer CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/mboxbridge/mailxfer/cmd/imapsync-go/commands"
	"github.com/mboxbridge/mailxfer/cmd/imapsync-go/helpers"
)

//nolint:gochecknoglobals
var (
	Version string
	Commit  string
	Date    string
	BuiltBy string
)

// terminatingSignals are the signals that should cause a clean, exit-coded
// shutdown rather than the default Go process-kill behavior.
var terminatingSignals = []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}

func main() {
	os.Exit(run())
}

func run() int {
	app := &cli.Command{
		Name:                   "mailxfer",
		Usage:                  "resumable IMAP to IMAP mailbox transfer",
		UseShortOptionHandling: true,
		Version:                helpers.Version(Version, Commit, Date, BuiltBy),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "optional JSON/YAML config file"},
		},
		Commands: []*cli.Command{
			commands.TransferCommand(),
			commands.ShowCommand(),
		},
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, terminatingSignals...)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	var caught os.Signal
	go func() {
		select {
		case s := <-sigCh:
			caught = s
			cancel()
		case <-ctx.Done():
		}
	}()
	defer cancel()

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(caught)
	}
	return 0
}

// exitCode maps the signal (if any) that stopped the run to the
// conventional shell exit status: 130 for SIGINT, 128+signum for any other
// terminating signal, 1 when the failure was not signal-driven.
func exitCode(caught os.Signal) int {
	sig, ok := caught.(syscall.Signal)
	if !ok {
		return 1
	}
	if sig == syscall.SIGINT {
		return 130
	}
	return 128 + int(sig)
}
