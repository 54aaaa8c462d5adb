package transfer

import (
	"context"
	"testing"

	"github.com/mboxbridge/mailxfer/internal/imapclient"
)

func TestAutoDriverRunTransfersAllDiscoveredFolders(t *testing.T) {
	src := newFakeSession()
	dst := newFakeSession()

	src.folders["INBOX"] = true
	src.folders["Archive"] = true
	src.folders["[Gmail]/All Mail"] = true // should be skipped

	src.addMessage("INBOX", imapclient.Message{UID: 1, Payload: []byte("a")})
	src.addMessage("Archive", imapclient.Message{UID: 1, Payload: []byte("b")})

	e := newTestEngine(t, src, dst)
	driver := &AutoDriver{Engine: e, Src: src, Dst: dst, RewriteRule: PrefixWhenNested}

	summaries, err := driver.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2 (Gmail system folder skipped)", len(summaries))
	}

	totals := Summarize(summaries)
	if totals.Transferred != 2 {
		t.Errorf("Transferred = %d, want 2", totals.Transferred)
	}
	if totals.FoldersOK != 2 {
		t.Errorf("FoldersOK = %d, want 2", totals.FoldersOK)
	}
}

func TestAutoDriverContinuesPastFolderFailure(t *testing.T) {
	src := newFakeSession()
	dst := newFakeSession()

	src.folders["INBOX"] = true
	src.folders["Broken"] = true
	dst.failCreate["INBOX.Broken"] = true
	dst.failCreate["Broken"] = true

	src.addMessage("INBOX", imapclient.Message{UID: 1, Payload: []byte("a")})

	e := newTestEngine(t, src, dst)

	var notified []FolderRunSummary
	driver := &AutoDriver{
		Engine:      e,
		Src:         src,
		Dst:         dst,
		RewriteRule: PrefixWhenNested,
		OnFolderDone: func(s FolderRunSummary) {
			notified = append(notified, s)
		},
	}

	summaries, err := driver.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2", len(summaries))
	}
	if len(notified) != 2 {
		t.Fatalf("OnFolderDone called %d times, want 2", len(notified))
	}

	totals := Summarize(summaries)
	if totals.FoldersFailed != 1 || totals.FoldersOK != 1 {
		t.Errorf("FoldersFailed=%d FoldersOK=%d, want 1 and 1", totals.FoldersFailed, totals.FoldersOK)
	}
}
