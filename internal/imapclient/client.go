// Package imapclient wraps github.com/emersion/go-imap with the UID-based
// operations the transfer engine needs: folder discovery, UID search,
// streaming fetch, and flag/date-preserving append.
package imapclient

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	uidplus "github.com/emersion/go-imap-uidplus"

	"github.com/mboxbridge/mailxfer/internal/xferrors"
)

// Session is the capability contract the transfer engine and folder
// discovery consume. Both the source and destination sides of a run satisfy
// it identically, so neither package needs to know it is talking to a
// *Client rather than a test double.
type Session interface {
	ListFolders() ([]string, error)
	Delimiter() (string, error)
	FolderExists(name string) (bool, error)
	CreateFolder(name string) error
	SelectFolder(name string, readOnly bool) (uint32, error)
	UIDSearchAll(criteria *imap.SearchCriteria) ([]uint32, error)
	Fetch(uid uint32) (Message, error)
	Append(folder string, msg Message) (string, error)
}

// Endpoint names one side of a transfer: a host/port plus credentials.
type Endpoint struct {
	Host string
	Port int
	User string
	Pass string
}

// Addr returns the "host:port" dial target for this endpoint.
func (e Endpoint) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Message is a fetched source message carrying everything an APPEND needs
// to reproduce it byte-for-byte and flag-for-flag on the destination.
type Message struct {
	UID          uint32
	Payload      []byte
	InternalDate time.Time
	Flags        []string
	Size         uint32
}

// Client is a thin, UID-oriented wrapper around *client.Client.
type Client struct {
	*client.Client
	label string
}

// Dial connects to ep over TLS and authenticates.
func Dial(ep Endpoint, label string, tlsConfig *tls.Config, timeout time.Duration) (*Client, error) {
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", ep.Addr(), tlsConfig)
	if err != nil {
		return nil, xferrors.Wrap(xferrors.Connect, "dial", ep.Addr(), err)
	}

	c, err := client.New(conn)
	if err != nil {
		_ = conn.Close()
		return nil, xferrors.Wrap(xferrors.Connect, "handshake", ep.Addr(), err)
	}

	if err := c.Login(ep.User, ep.Pass); err != nil {
		_ = c.Logout()
		return nil, xferrors.Wrap(xferrors.Auth, "login", ep.Addr(), err)
	}

	return &Client{Client: c, label: label}, nil
}

// Close logs out and closes the underlying connection.
func (c *Client) Close() error {
	return c.Logout()
}

// Label returns the human-readable name this client was constructed with
// ("source"/"destination"), used for error and log messages.
func (c *Client) Label() string {
	return c.label
}

// quoteName returns the wire form of a mailbox name, quoting it when it
// contains characters that would otherwise need escaping in the command.
func quoteName(name string) string {
	if strings.ContainsAny(name, " &|/") {
		return `"` + name + `"`
	}
	return name
}

// ListFolders returns every mailbox name on the server, in the server's
// modified UTF-7 decoded form (go-imap decodes this automatically).
func (c *Client) ListFolders() ([]string, error) {
	mailboxes := make(chan *imap.MailboxInfo, 16)
	done := make(chan error, 1)
	go func() { done <- c.List("", "*", mailboxes) }()

	var names []string
	for m := range mailboxes {
		names = append(names, m.Name)
	}
	if err := <-done; err != nil {
		return nil, xferrors.Wrap(xferrors.FolderOp, "list", c.label, err)
	}
	return names, nil
}

// Delimiter returns the server's hierarchy delimiter, defaulting to "/" if
// the server does not report one.
func (c *Client) Delimiter() (string, error) {
	mailboxes := make(chan *imap.MailboxInfo, 1)
	done := make(chan error, 1)
	go func() { done <- c.List("", "", mailboxes) }()

	delim := "/"
	for m := range mailboxes {
		if m.Delimiter != "" {
			delim = m.Delimiter
		}
	}
	if err := <-done; err != nil {
		return "", xferrors.Wrap(xferrors.FolderOp, "delimiter", c.label, err)
	}
	return delim, nil
}

// FolderExists reports whether a mailbox with the given name exists.
func (c *Client) FolderExists(name string) (bool, error) {
	mailboxes := make(chan *imap.MailboxInfo, 1)
	done := make(chan error, 1)
	go func() { done <- c.List("", name, mailboxes) }()

	exists := false
	for range mailboxes {
		exists = true
	}
	if err := <-done; err != nil {
		return false, xferrors.Wrap(xferrors.FolderOp, "list", c.label, err)
	}
	return exists, nil
}

// alreadyExists reports whether err indicates the mailbox already exists,
// via go-imap's typed response code when present, falling back to a
// case-insensitive text match since not every server tags this response.
func alreadyExists(err error) bool {
	if err == nil {
		return false
	}
	if imapErr, ok := err.(*imap.ErrStatusResp); ok && imapErr.Resp != nil {
		for _, code := range []string{"ALREADYEXISTS"} {
			if strings.EqualFold(string(imapErr.Resp.Code), code) {
				return true
			}
		}
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "alreadyexists") || strings.Contains(lower, "already exists")
}

// CreateFolder creates name on the server. It is idempotent: if the server
// reports the folder already exists, that is treated as success.
func (c *Client) CreateFolder(name string) error {
	if err := c.Create(quoteName(name)); err != nil {
		if alreadyExists(err) {
			return nil
		}
		return xferrors.Wrap(xferrors.FolderOp, "create", c.label, err)
	}
	return nil
}

// SelectFolder selects name read-write (read-only when readOnly is true)
// and returns the message count.
func (c *Client) SelectFolder(name string, readOnly bool) (uint32, error) {
	mbox, err := c.Select(quoteName(name), readOnly)
	if err != nil {
		return 0, xferrors.Wrap(xferrors.FolderOp, "select", c.label, err)
	}
	return mbox.Messages, nil
}

// UIDSearchAll returns every message UID in the currently selected folder,
// in the order the server reports them (ascending, per RFC 3501).
func (c *Client) UIDSearchAll(criteria *imap.SearchCriteria) ([]uint32, error) {
	if criteria == nil {
		criteria = imap.NewSearchCriteria()
	}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, xferrors.Wrap(xferrors.Fetch, "uid_search", c.label, err)
	}
	return uids, nil
}

// Fetch retrieves the full message (RFC822 body, INTERNALDATE, FLAGS) for
// one source UID.
func (c *Client) Fetch(uid uint32) (Message, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchInternalDate, imap.FetchFlags, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() { done <- c.UidFetch(seqset, items, messages) }()

	var msg *imap.Message
	for m := range messages {
		msg = m
	}
	if err := <-done; err != nil {
		return Message{}, xferrors.Wrap(xferrors.Fetch, "uid_fetch", c.label, err)
	}
	if msg == nil {
		return Message{}, xferrors.Wrap(xferrors.Fetch, "uid_fetch", c.label, fmt.Errorf("uid %d not found", uid))
	}

	body := msg.GetBody(section)
	if body == nil {
		return Message{}, xferrors.Wrap(xferrors.Fetch, "uid_fetch", c.label, fmt.Errorf("uid %d: empty body section", uid))
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return Message{}, xferrors.Wrap(xferrors.Fetch, "read_body", c.label, err)
	}

	return Message{
		UID:          msg.Uid,
		Payload:      raw,
		InternalDate: msg.InternalDate,
		Flags:        msg.Flags,
		Size:         msg.Size,
	}, nil
}

// Append uploads msg to folder, preserving its original flags and
// INTERNALDATE exactly. It returns the destination UID assigned by the
// server when the server advertises UIDPLUS and returns an APPENDUID
// response code; otherwise it returns an empty string.
func (c *Client) Append(folder string, msg Message) (destUID string, err error) {
	literal := bytes.NewReader(msg.Payload)

	_, uid, appendErr := uidplus.Append(c.Client, quoteName(folder), msg.Flags, msg.InternalDate, literal)
	if appendErr != nil {
		return "", xferrors.Wrap(xferrors.Append, "append", c.label, appendErr)
	}
	if uid != 0 {
		return fmt.Sprintf("%d", uid), nil
	}
	return "", nil
}
