// Package config builds and validates the run configuration from CLI flags,
// with an optional JSON/YAML file layer supplying defaults underneath them.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/mboxbridge/mailxfer/internal/xferrors"
)

const (
	DefaultPort           = 993
	DefaultTimeout        = 60 * time.Second
	DefaultRetryCount     = 3
	DefaultRetryDelay     = 5 * time.Second
	DefaultLogFile        = "transfer.log"
	DefaultCacheDB        = "transfer_cache.db"
	DefaultMaxMessageSize = 50 * 1024 * 1024
)

// Config holds everything a run needs: both endpoints' credentials, the
// folder selection (single folder XOR auto whole-mailbox mode), and the
// transfer engine's tunables.
type Config struct {
	SourceHost string
	SourceUser string
	SourcePass string
	DestHost   string
	DestUser   string
	DestPass   string

	Folder   string
	AutoMode bool

	Port           int
	Timeout        time.Duration
	RetryCount     int
	RetryDelay     time.Duration
	LogFile        string
	CacheDB        string
	MaxMessageSize int64

	InboxRewrite string
	SkipPatterns []string
}

// fileOverlay is the optional config-file shape; any field left zero-valued
// here simply leaves the corresponding CLI default untouched.
type fileOverlay struct {
	SourceHost     string   `json:"source_host" yaml:"source_host"`
	SourceUser     string   `json:"source_user" yaml:"source_user"`
	SourcePass     string   `json:"source_pass" yaml:"source_pass"`
	DestHost       string   `json:"dest_host"   yaml:"dest_host"`
	DestUser       string   `json:"dest_user"   yaml:"dest_user"`
	DestPass       string   `json:"dest_pass"   yaml:"dest_pass"`
	Folder         string   `json:"folder"      yaml:"folder"`
	Port           int      `json:"port"        yaml:"port"`
	TimeoutSeconds int      `json:"timeout"     yaml:"timeout"`
	RetryCount     int      `json:"retry_count" yaml:"retry_count"`
	RetryDelay     int      `json:"retry_delay" yaml:"retry_delay"`
	LogFile        string   `json:"log_file"    yaml:"log_file"`
	CacheDB        string   `json:"cache_db"    yaml:"cache_db"`
	MaxMessageSize int64    `json:"max_message_size" yaml:"max_message_size"`
	InboxRewrite   string   `json:"inbox_rewrite"    yaml:"inbox_rewrite"`
	SkipPatterns   []string `json:"skip_patterns"    yaml:"skip_patterns"`
}

// loadOverlay reads an optional JSON/YAML config file. A missing path
// (the common case: no --config flag given) is not an error.
func loadOverlay(path string) (*fileOverlay, error) {
	if path == "" {
		return nil, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %q: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config file %q: %w", abs, err)
	}

	var overlay fileOverlay
	switch ext := strings.ToLower(filepath.Ext(abs)); ext {
	case ".json":
		if err := json.Unmarshal(data, &overlay); err != nil {
			return nil, fmt.Errorf("invalid JSON in config file %q: %w", abs, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &overlay); err != nil {
			return nil, fmt.Errorf("invalid YAML in config file %q: %w", abs, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format %q; supported: .json, .yaml, .yml", ext)
	}
	return &overlay, nil
}

// New builds a Config from CLI flags on c, layering an optional --config
// file underneath them (flags always win over the file) and applying
// SOURCE_PASS/DEST_PASS environment fallbacks for passwords left empty by
// both. It validates the result before returning.
func New(c *cli.Command) (*Config, error) {
	overlay, err := loadOverlay(c.String("config"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           DefaultPort,
		Timeout:        DefaultTimeout,
		RetryCount:     DefaultRetryCount,
		RetryDelay:     DefaultRetryDelay,
		LogFile:        DefaultLogFile,
		CacheDB:        DefaultCacheDB,
		MaxMessageSize: DefaultMaxMessageSize,
		InboxRewrite:   "prefix-when-nested",
	}

	if overlay != nil {
		applyOverlay(cfg, overlay)
	}

	applyFlags(cfg, c)

	if cfg.SourcePass == "" {
		cfg.SourcePass = os.Getenv("SOURCE_PASS")
	}
	if cfg.DestPass == "" {
		cfg.DestPass = os.Getenv("DEST_PASS")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverlay(cfg *Config, o *fileOverlay) {
	setIfNonZero(&cfg.SourceHost, o.SourceHost)
	setIfNonZero(&cfg.SourceUser, o.SourceUser)
	setIfNonZero(&cfg.SourcePass, o.SourcePass)
	setIfNonZero(&cfg.DestHost, o.DestHost)
	setIfNonZero(&cfg.DestUser, o.DestUser)
	setIfNonZero(&cfg.DestPass, o.DestPass)
	setIfNonZero(&cfg.Folder, o.Folder)
	setIfNonZero(&cfg.LogFile, o.LogFile)
	setIfNonZero(&cfg.CacheDB, o.CacheDB)
	setIfNonZero(&cfg.InboxRewrite, o.InboxRewrite)
	if o.Port != 0 {
		cfg.Port = o.Port
	}
	if o.TimeoutSeconds != 0 {
		cfg.Timeout = time.Duration(o.TimeoutSeconds) * time.Second
	}
	if o.RetryCount != 0 {
		cfg.RetryCount = o.RetryCount
	}
	if o.RetryDelay != 0 {
		cfg.RetryDelay = time.Duration(o.RetryDelay) * time.Second
	}
	if o.MaxMessageSize != 0 {
		cfg.MaxMessageSize = o.MaxMessageSize
	}
	if len(o.SkipPatterns) > 0 {
		cfg.SkipPatterns = o.SkipPatterns
	}
}

func setIfNonZero(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func applyFlags(cfg *Config, c *cli.Command) {
	setFlagString(&cfg.SourceHost, c, "source-host")
	setFlagString(&cfg.SourceUser, c, "source-user")
	setFlagString(&cfg.SourcePass, c, "source-pass")
	setFlagString(&cfg.DestHost, c, "dest-host")
	setFlagString(&cfg.DestUser, c, "dest-user")
	setFlagString(&cfg.DestPass, c, "dest-pass")
	setFlagString(&cfg.Folder, c, "folder")
	setFlagString(&cfg.LogFile, c, "log-file")
	setFlagString(&cfg.CacheDB, c, "cache-db")
	setFlagString(&cfg.InboxRewrite, c, "inbox-rewrite")

	if c.Bool("auto") || cfg.Folder == "" {
		cfg.AutoMode = true
	}
	if c.IsSet("port") {
		cfg.Port = int(c.Int("port"))
	}
	if c.IsSet("timeout") {
		cfg.Timeout = time.Duration(c.Int("timeout")) * time.Second
	}
	if c.IsSet("retry-count") {
		cfg.RetryCount = int(c.Int("retry-count"))
	}
	if c.IsSet("retry-delay") {
		cfg.RetryDelay = time.Duration(c.Int("retry-delay")) * time.Second
	}
	if c.IsSet("max-message-size") {
		cfg.MaxMessageSize = c.Int("max-message-size")
	}
}

func setFlagString(dst *string, c *cli.Command, name string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}

// validate checks that the configuration is complete and internally
// consistent, mirroring the required-field and range checks a transfer
// run depends on.
func (c *Config) validate() error {
	required := []struct {
		name, value string
	}{
		{"source host", c.SourceHost},
		{"source user", c.SourceUser},
		{"source pass", c.SourcePass},
		{"dest host", c.DestHost},
		{"dest user", c.DestUser},
		{"dest pass", c.DestPass},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return configErr("%s is required", f.name)
		}
	}

	if c.Port < 1 || c.Port > 65535 {
		return configErr("invalid port %d: must be between 1 and 65535", c.Port)
	}
	if c.Timeout < time.Second {
		return configErr("invalid timeout %s: must be at least one second", c.Timeout)
	}
	if c.RetryCount < 0 {
		return configErr("invalid retry count %d: must be non-negative", c.RetryCount)
	}
	if c.RetryDelay < 0 {
		return configErr("invalid retry delay %s: must be non-negative", c.RetryDelay)
	}
	if c.MaxMessageSize < 1 {
		return configErr("invalid max message size %d: must be positive", c.MaxMessageSize)
	}
	if !c.AutoMode && c.Folder == "" {
		return configErr("either --folder or --auto must be specified")
	}
	if c.AutoMode && c.Folder != "" {
		return configErr("--folder and --auto are mutually exclusive")
	}

	return nil
}

// configErr builds a classified xferrors.ConfigInvalid error from a
// formatted message, so validation failures carry the same typed kind as
// every other component's errors.
func configErr(format string, args ...any) error {
	return xferrors.Wrap(xferrors.ConfigInvalid, "validate", "", fmt.Errorf(format, args...))
}
