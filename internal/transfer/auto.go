package transfer

import (
	"context"
	"fmt"

	"github.com/mboxbridge/mailxfer/internal/imapclient"
)

// FolderRunSummary is the outcome of attempting to transfer one folder
// during an auto run, whether or not it succeeded.
type FolderRunSummary struct {
	Folder string
	Result Result
	Err    error
}

// Succeeded reports whether the folder transferred without a hard failure.
// A folder with per-message failures still "succeeded" at the folder level
// per the scenario in which failures are message-local, not folder-fatal.
func (s FolderRunSummary) Succeeded() bool {
	return s.Err == nil
}

// AutoDriver runs the transfer engine across every discovered, non-skipped
// folder in sequence. It is the whole-mailbox entry point: single folder
// transfers go straight through Engine.TransferFolder instead.
type AutoDriver struct {
	Engine       *Engine
	Src          imapclient.Session
	Dst          imapclient.Session
	SkipPatterns []string
	RewriteRule  RewriteRule
	OnFolderDone func(FolderRunSummary)
}

// Run discovers folders on Src, ensures each has a destination counterpart,
// and transfers it, continuing past per-folder failures so one broken
// folder never aborts the rest of the mailbox.
func (d *AutoDriver) Run(ctx context.Context, r Reporter) ([]FolderRunSummary, error) {
	folders, err := DiscoverFolders(d.Src, d.SkipPatterns)
	if err != nil {
		return nil, err
	}

	summaries := make([]FolderRunSummary, 0, len(folders))

	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}

		summary := d.runOne(ctx, folder, r)
		summaries = append(summaries, summary)

		if d.OnFolderDone != nil {
			d.OnFolderDone(summary)
		}
	}

	return summaries, nil
}

func (d *AutoDriver) runOne(ctx context.Context, folder string, r Reporter) FolderRunSummary {
	destFolder, err := EnsureDestinationFolder(d.Dst, folder, d.RewriteRule)
	if err != nil {
		return FolderRunSummary{Folder: folder, Err: fmt.Errorf("ensure destination folder: %w", err)}
	}

	if _, err := d.Dst.SelectFolder(destFolder, false); err != nil {
		return FolderRunSummary{Folder: folder, Err: fmt.Errorf("select destination folder: %w", err)}
	}

	result, err := d.Engine.TransferFolder(ctx, folder, destFolder, r)
	if err != nil {
		return FolderRunSummary{Folder: folder, Result: result, Err: err}
	}

	return FolderRunSummary{Folder: folder, Result: result}
}

// Totals aggregates per-folder results across a whole auto run.
type Totals struct {
	FoldersOK     int
	FoldersFailed int
	Transferred   int
	Skipped       int
	Failed        int
	TotalSize     int64
}

// Summarize reduces a slice of FolderRunSummary into run-wide totals.
func Summarize(summaries []FolderRunSummary) Totals {
	var t Totals
	for _, s := range summaries {
		if s.Succeeded() {
			t.FoldersOK++
		} else {
			t.FoldersFailed++
		}
		t.Transferred += s.Result.Transferred
		t.Skipped += s.Result.Skipped
		t.Failed += s.Result.Failed
		t.TotalSize += s.Result.TotalSize
	}
	return t
}
