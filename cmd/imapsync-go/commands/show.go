package commands

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/urfave/cli/v3"

	"github.com/mboxbridge/mailxfer/internal/config"
	"github.com/mboxbridge/mailxfer/internal/imapclient"
	"github.com/mboxbridge/mailxfer/internal/stdout"
)

// folderInfo is one row of the show command's table: a folder name plus
// its message count (from SELECT's EXISTS response, the cheapest way to
// size a folder without fetching every message).
type folderInfo struct {
	name     string
	messages uint32
}

// ShowCommand lists both mailboxes' folders with message counts, purely
// informational: it never touches the resume cache or the transfer engine.
func ShowCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "list folders and message counts on both mailboxes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source-host", Usage: "source IMAP server hostname", Sources: cli.EnvVars("SOURCE_HOST")},
			&cli.StringFlag{Name: "source-user", Usage: "source IMAP account username", Sources: cli.EnvVars("SOURCE_USER")},
			&cli.StringFlag{Name: "source-pass", Usage: "source IMAP account password (falls back to $SOURCE_PASS)", Sources: cli.EnvVars("SOURCE_PASS")},
			&cli.StringFlag{Name: "dest-host", Usage: "destination IMAP server hostname", Sources: cli.EnvVars("DEST_HOST")},
			&cli.StringFlag{Name: "dest-user", Usage: "destination IMAP account username", Sources: cli.EnvVars("DEST_USER")},
			&cli.StringFlag{Name: "dest-pass", Usage: "destination IMAP account password (falls back to $DEST_PASS)", Sources: cli.EnvVars("DEST_PASS")},
			&cli.IntFlag{Name: "port", Usage: "IMAP port used for both servers", Value: config.DefaultPort},
			&cli.IntFlag{Name: "timeout", Usage: "connection timeout in seconds", Value: int64(config.DefaultTimeout.Seconds())},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"V"}, Usage: "print each folder as it is scanned"},
		},
		Action: runShow,
	}
}

func runShow(ctx context.Context, c *cli.Command) error {
	verbose := c.Bool("verbose")
	port := int(c.Int("port"))
	timeout := time.Duration(c.Int("timeout")) * time.Second

	sourcePass := c.String("source-pass")
	if sourcePass == "" {
		sourcePass = os.Getenv("SOURCE_PASS")
	}
	destPass := c.String("dest-pass")
	if destPass == "" {
		destPass = os.Getenv("DEST_PASS")
	}

	srcEP := imapclient.Endpoint{Host: c.String("source-host"), Port: port, User: c.String("source-user"), Pass: sourcePass}
	dstEP := imapclient.Endpoint{Host: c.String("dest-host"), Port: port, User: c.String("dest-user"), Pass: destPass}

	spin := stdout.New(false, verbose)
	defer spin.Stop()

	spin.Update("[source] connecting...")
	src, err := imapclient.Dial(srcEP, "source", &tls.Config{ServerName: srcEP.Host}, timeout)
	if err != nil {
		spin.Error(fmt.Sprintf("source connection failed: %v", err))
		return err
	}
	defer func() { _ = src.Close() }()

	spin.Update("[destination] connecting...")
	dst, err := imapclient.Dial(dstEP, "destination", &tls.Config{ServerName: dstEP.Host}, timeout)
	if err != nil {
		spin.Error(fmt.Sprintf("destination connection failed: %v", err))
		return err
	}
	defer func() { _ = dst.Close() }()

	srcInfo, err := listFolderInfo(ctx, src, "source", spin, verbose)
	if err != nil {
		return err
	}
	dstInfo, err := listFolderInfo(ctx, dst, "destination", spin, verbose)
	if err != nil {
		return err
	}

	spin.Success("mailbox metadata collected")

	printAccountInfo("Source", srcEP.Host, srcEP.User, srcInfo)
	fmt.Println()
	printAccountInfo("Destination", dstEP.Host, dstEP.User, dstInfo)

	return nil
}

// listFolderInfo lists every folder on sess and selects each one (read-only)
// to obtain its message count. It never issues STORE/EXPUNGE/CREATE.
func listFolderInfo(ctx context.Context, sess imapclient.Session, label string, spin *stdout.Spinner, verbose bool) ([]folderInfo, error) {
	names, err := sess.ListFolders()
	if err != nil {
		return nil, fmt.Errorf("[%s] list folders: %w", label, err)
	}

	infos := make([]folderInfo, 0, len(names))
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		spin.Update(fmt.Sprintf("[%s] scanning %s (%d/%d)", label, name, i+1, len(names)))

		count, err := sess.SelectFolder(name, true)
		if err != nil {
			if verbose {
				spin.Print(fmt.Sprintf("[%s] %s: %v", label, name, err))
			}
			continue
		}
		infos = append(infos, folderInfo{name: name, messages: count})
	}
	spin.Flush()
	return infos, nil
}

func printAccountInfo(title, host, user string, folders []folderInfo) {
	header := table.NewWriter()
	header.SetOutputMirror(os.Stdout)
	header.Style().Options.DrawBorder = false
	header.Style().Options.SeparateColumns = false
	header.SetTitle(title)
	header.AppendRows([]table.Row{
		{"Server", host},
		{"User", user},
	})
	header.Render()
	fmt.Println()

	if len(folders) == 0 {
		fmt.Println("no folders found")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.AppendHeader(table.Row{"Folder", "Messages"})

	var totalMessages uint32
	for _, f := range folders {
		totalMessages += f.messages
		t.AppendRow(table.Row{f.name, f.messages})
	}

	t.AppendFooter(table.Row{
		text.Bold.Sprintf("total folders %d", len(folders)),
		text.Bold.Sprintf("%d", totalMessages),
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignCenter},
	})

	t.Render()
}
