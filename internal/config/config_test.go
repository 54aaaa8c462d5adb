package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		SourceHost: "imap.source.com",
		SourceUser: "user@source.com",
		SourcePass: "password",
		DestHost:   "imap.dest.com",
		DestUser:   "user@dest.com",
		DestPass:   "password",
		AutoMode:   true,
		Port:       993,
		Timeout:    60 * time.Second,
		RetryCount: 3,
		RetryDelay: 5 * time.Second,
		MaxMessageSize: 1024,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errContains string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{
			name:        "missing source host",
			mutate:      func(c *Config) { c.SourceHost = "" },
			wantErr:     true,
			errContains: "source host is required",
		},
		{
			name:        "missing source pass",
			mutate:      func(c *Config) { c.SourcePass = "" },
			wantErr:     true,
			errContains: "source pass is required",
		},
		{
			name:        "missing dest host",
			mutate:      func(c *Config) { c.DestHost = "" },
			wantErr:     true,
			errContains: "dest host is required",
		},
		{
			name:        "invalid port too low",
			mutate:      func(c *Config) { c.Port = 0 },
			wantErr:     true,
			errContains: "invalid port",
		},
		{
			name:        "invalid port too high",
			mutate:      func(c *Config) { c.Port = 70000 },
			wantErr:     true,
			errContains: "invalid port",
		},
		{
			name:        "negative retry count",
			mutate:      func(c *Config) { c.RetryCount = -1 },
			wantErr:     true,
			errContains: "invalid retry count",
		},
		{
			name:        "zero max message size",
			mutate:      func(c *Config) { c.MaxMessageSize = 0 },
			wantErr:     true,
			errContains: "invalid max message size",
		},
		{
			name: "folder and auto both set",
			mutate: func(c *Config) {
				c.AutoMode = true
				c.Folder = "INBOX"
			},
			wantErr:     true,
			errContains: "mutually exclusive",
		},
		{
			name: "neither folder nor auto set",
			mutate: func(c *Config) {
				c.AutoMode = false
				c.Folder = ""
			},
			wantErr:     true,
			errContains: "either --folder or --auto",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("expected error containing %q, got %v", tt.errContains, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestApplyOverlayLeavesDefaultsWhenFieldsZero(t *testing.T) {
	cfg := &Config{SourceHost: "preexisting"}
	applyOverlay(cfg, &fileOverlay{})

	if cfg.SourceHost != "preexisting" {
		t.Errorf("SourceHost = %q, want unchanged", cfg.SourceHost)
	}
}

func TestApplyOverlayFillsFields(t *testing.T) {
	cfg := &Config{}
	applyOverlay(cfg, &fileOverlay{
		SourceHost:     "imap.example.com",
		Port:           143,
		TimeoutSeconds: 30,
		RetryCount:     7,
	})

	if cfg.SourceHost != "imap.example.com" {
		t.Errorf("SourceHost = %q", cfg.SourceHost)
	}
	if cfg.Port != 143 {
		t.Errorf("Port = %d, want 143", cfg.Port)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.RetryCount != 7 {
		t.Errorf("RetryCount = %d, want 7", cfg.RetryCount)
	}
}
