package transfer

import (
	"fmt"

	"github.com/emersion/go-imap"
	"github.com/mboxbridge/mailxfer/internal/imapclient"
)

// fakeSession is an in-memory imapclient.Session double used across the
// transfer package's tests.
type fakeSession struct {
	folders      map[string]bool
	failCreate   map[string]bool
	messages     map[string]map[uint32]imapclient.Message // folder -> uid -> message
	appended     map[string][]imapclient.Message
	nextDestUID  uint32
	appendErrors map[string]error
	fetchErrors  map[uint32]error
	// fetchFailCount, when set for a UID, makes Fetch return fetchErrors[uid]
	// for that many calls before succeeding, simulating a transient fault
	// that recovers on retry.
	fetchFailCount map[uint32]int
	selected       string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		folders:        make(map[string]bool),
		failCreate:     make(map[string]bool),
		messages:       make(map[string]map[uint32]imapclient.Message),
		appended:       make(map[string][]imapclient.Message),
		appendErrors:   make(map[string]error),
		fetchErrors:    make(map[uint32]error),
		fetchFailCount: make(map[uint32]int),
	}
}

func (f *fakeSession) ListFolders() ([]string, error) {
	names := make([]string, 0, len(f.folders))
	for n := range f.folders {
		names = append(names, n)
	}
	return names, nil
}

func (f *fakeSession) Delimiter() (string, error) { return ".", nil }

func (f *fakeSession) FolderExists(name string) (bool, error) {
	return f.folders[name], nil
}

func (f *fakeSession) CreateFolder(name string) error {
	if f.failCreate[name] {
		return fmt.Errorf("create %s: denied", name)
	}
	f.folders[name] = true
	return nil
}

func (f *fakeSession) SelectFolder(name string, readOnly bool) (uint32, error) {
	f.selected = name
	return uint32(len(f.messages[name])), nil
}

func (f *fakeSession) UIDSearchAll(criteria *imap.SearchCriteria) ([]uint32, error) {
	msgs := f.messages[f.selected]
	uids := make([]uint32, 0, len(msgs))
	for uid := range msgs {
		uids = append(uids, uid)
	}
	return uids, nil
}

func (f *fakeSession) Fetch(uid uint32) (imapclient.Message, error) {
	if n, transient := f.fetchFailCount[uid]; transient {
		if n > 0 {
			f.fetchFailCount[uid] = n - 1
			return imapclient.Message{}, f.fetchErrors[uid]
		}
	} else if err := f.fetchErrors[uid]; err != nil {
		return imapclient.Message{}, err
	}
	msg, ok := f.messages[f.selected][uid]
	if !ok {
		return imapclient.Message{}, fmt.Errorf("uid %d not found in %s", uid, f.selected)
	}
	return msg, nil
}

func (f *fakeSession) Append(folder string, msg imapclient.Message) (string, error) {
	if err := f.appendErrors[folder]; err != nil {
		return "", err
	}
	f.nextDestUID++
	f.appended[folder] = append(f.appended[folder], msg)
	return fmt.Sprintf("%d", f.nextDestUID), nil
}

func (f *fakeSession) addMessage(folder string, msg imapclient.Message) {
	if f.messages[folder] == nil {
		f.messages[folder] = make(map[uint32]imapclient.Message)
	}
	f.messages[folder][msg.UID] = msg
}
