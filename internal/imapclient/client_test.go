package imapclient

import (
	"errors"
	"testing"
)

func TestEndpointAddr(t *testing.T) {
	ep := Endpoint{Host: "imap.example.com", Port: 993}
	if got, want := ep.Addr(), "imap.example.com:993"; got != want {
		t.Errorf("Addr() = %q, want %q", got, want)
	}
}

func TestQuoteName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain name unquoted", "INBOX", "INBOX"},
		{"nested name unquoted", "INBOX.Archive", "INBOX.Archive"},
		{"space quoted", "Sent Items", `"Sent Items"`},
		{"ampersand quoted", "Q&A", `"Q&A"`},
		{"pipe quoted", "A|B", `"A|B"`},
		{"slash quoted", "A/B", `"A/B"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := quoteName(tt.in); got != tt.want {
				t.Errorf("quoteName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAlreadyExists(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"lowercase already exists", errors.New("mailbox already exists"), true},
		{"uppercase ALREADYEXISTS code text", errors.New("[ALREADYEXISTS] Mailbox already exists"), true},
		{"unrelated error", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := alreadyExists(tt.err); got != tt.want {
				t.Errorf("alreadyExists(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
