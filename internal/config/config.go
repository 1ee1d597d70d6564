package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/goccy/go-yaml"
	"github.com/vango-dev/bore/el"
	"github.com/vango-dev/bore/internal/errors"
	"github.com/vango-dev/bore/pkg/bore"
	"github.com/vango-dev/bore/pkg/dom"
)

const (
	// DefaultAddr is the default address for bore serve.
	DefaultAddr = ":7357"

	// DefaultNamespace is the default metrics namespace.
	DefaultNamespace = "bore"

	// DefaultMaxBody is the default request body limit for bore serve.
	DefaultMaxBody = 1 << 20

	// DefaultWaitTimeout bounds bore serve waits that set no timeout.
	DefaultWaitTimeout = 30 * time.Second
)

// FileNames are the config file names Load looks for, in order.
var FileNames = []string{"bore.json", "bore.yaml", "bore.yml"}

// Config represents the complete bore configuration.
type Config struct {
	// Delay is the default poll interval for waits.
	Delay Duration `json:"delay,omitempty"`

	// Timeout is the default wait deadline. Zero waits forever.
	Timeout Duration `json:"timeout,omitempty"`

	// Reactions is "sync" or "deferred".
	Reactions string `json:"reactions,omitempty"`

	// Policy is the builder attribute policy, "buckets" or "prefix".
	Policy string `json:"policy,omitempty"`

	// FixtureID is the id of the fixture element.
	FixtureID string `json:"fixtureId,omitempty"`

	// ForceOpenShadow makes every attached shadow root open.
	ForceOpenShadow *bool `json:"forceOpenShadow,omitempty"`

	Log     LogConfig     `json:"log,omitempty"`
	Metrics MetricsConfig `json:"metrics,omitempty"`
	Server  ServerConfig  `json:"server,omitempty"`
	Source  SourceConfig  `json:"source,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// MetricsConfig configures Prometheus metric names.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty"`
	Subsystem string `json:"subsystem,omitempty"`
}

// ServerConfig configures bore serve.
type ServerConfig struct {
	Addr        string   `json:"addr,omitempty"`
	ReadTimeout Duration `json:"readTimeout,omitempty"`
	MaxBody     int64    `json:"maxBody,omitempty"`

	// WaitTimeout bounds waits that give no timeout of their own.
	WaitTimeout Duration `json:"waitTimeout,omitempty"`
}

// SourceConfig configures fixture loading.
type SourceConfig struct {
	HTTPTimeout Duration `json:"httpTimeout,omitempty"`
	S3          S3Config `json:"s3,omitempty"`
}

// S3Config configures s3:// fixture sources.
type S3Config struct {
	Region    string `json:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty"`
}

// Duration is a time.Duration that decodes from a Go duration string or a
// number of milliseconds.
type Duration time.Duration

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// MarshalJSON encodes d as a duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes "250ms" or 250.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var ms float64
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("duration must be a string or milliseconds: %s", b)
	}
	*d = Duration(ms * float64(time.Millisecond))
	return nil
}

// New creates a new Config with default values.
func New() *Config {
	force := true
	return &Config{
		Delay:           Duration(bore.DefaultDelay),
		Reactions:       dom.ReactionsSync.String(),
		Policy:          el.BucketPolicy.String(),
		FixtureID:       bore.DefaultFixtureID,
		ForceOpenShadow: &force,
		Log:             LogConfig{Level: "info", Format: "text"},
		Metrics:         MetricsConfig{Namespace: DefaultNamespace},
		Server: ServerConfig{
			Addr:        DefaultAddr,
			ReadTimeout: Duration(10 * time.Second),
			MaxBody:     DefaultMaxBody,
			WaitTimeout: Duration(DefaultWaitTimeout),
		},
		Source: SourceConfig{HTTPTimeout: Duration(30 * time.Second)},
	}
}

// Load reads the first config file found in dir. Without one it returns
// the defaults.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return New(), nil
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("B030").
				WithDetail("No config file at " + path).
				Wrap(err)
		}
		return nil, errors.New("B030").Wrap(err)
	}

	if isYAML(path) {
		data, err = yaml.YAMLToJSON(data)
		if err != nil {
			return nil, errors.New("B030").
				WithDetail("Failed to parse " + filepath.Base(path) + ":\n" + yaml.FormatError(err, false, true)).
				WithSuggestion("Check that the file is valid YAML")
		}
	}

	cfg := New()
	if err := decode(data, cfg); err != nil {
		be := errors.New("B030").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Durations are strings such as \"5ms\" or numbers of milliseconds")
		if se, ok := err.(*json.SyntaxError); ok && !isYAML(path) {
			be.WithOffset(path, data, se.Offset)
		}
		return nil, be
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func decode(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

// SaveTo writes the configuration to path, as YAML for .yaml and .yml
// files and JSON otherwise.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("B030").Wrap(err)
	}
	if isYAML(path) {
		if data, err = yaml.JSONToYAML(data); err != nil {
			return errors.New("B030").Wrap(err)
		}
	} else {
		data = append(data, '\n')
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("B030").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()
	if c.Reactions == "" {
		c.Reactions = d.Reactions
	}
	if c.Policy == "" {
		c.Policy = d.Policy
	}
	if c.FixtureID == "" {
		c.FixtureID = d.FixtureID
	}
	if c.ForceOpenShadow == nil {
		c.ForceOpenShadow = d.ForceOpenShadow
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.MaxBody == 0 {
		c.Server.MaxBody = d.Server.MaxBody
	}
	if c.Server.WaitTimeout == 0 {
		c.Server.WaitTimeout = d.Server.WaitTimeout
	}
}

// envKeys lists the environment variables ApplyEnv reads.
var envKeys = []string{"BORE_DELAY", "BORE_TIMEOUT", "BORE_REACTIONS", "BORE_POLICY", "BORE_ADDR", "BORE_LOG_LEVEL"}

// ApplyEnv overrides values from BORE_* variables found by lookup,
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, key := range envKeys {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		switch key {
		case "BORE_DELAY", "BORE_TIMEOUT":
			d, err := time.ParseDuration(v)
			if err != nil {
				return errors.New("B031").
					WithDetail(key + " must be a Go duration such as 5ms").
					Wrap(err)
			}
			if key == "BORE_DELAY" {
				c.Delay = Duration(d)
			} else {
				c.Timeout = Duration(d)
			}
		case "BORE_REACTIONS":
			c.Reactions = v
		case "BORE_POLICY":
			c.Policy = v
		case "BORE_ADDR":
			c.Server.Addr = v
		case "BORE_LOG_LEVEL":
			c.Log.Level = v
		}
	}
	return nil
}

// ApplyPatch applies an RFC 7386 JSON merge patch to the configuration.
func (c *Config) ApplyPatch(patch []byte) error {
	if len(bytes.TrimSpace(patch)) == 0 {
		return nil
	}
	doc, err := json.Marshal(c)
	if err != nil {
		return errors.New("B032").Wrap(err)
	}
	merged, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return errors.New("B032").
			WithExample(`--config-patch '{"timeout":"2s","server":{"addr":":9000"}}'`).
			Wrap(err)
	}
	next := &Config{}
	if err := decode(merged, next); err != nil {
		return errors.New("B032").Wrap(err)
	}
	next.configPath = c.configPath
	*c = *next
	c.applyDefaults()
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Delay < 0 {
		return errors.New("B031").WithDetail("delay must not be negative")
	}
	if c.Timeout < 0 {
		return errors.New("B031").WithDetail("timeout must not be negative")
	}
	if _, err := c.ReactionMode(); err != nil {
		return err
	}
	if _, err := c.BuilderPolicy(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("B031").WithDetail(fmt.Sprintf("log format %q must be text or json", c.Log.Format))
	}
	if c.Server.MaxBody < 0 {
		return errors.New("B031").WithDetail("server.maxBody must not be negative")
	}
	if c.Server.WaitTimeout < 0 {
		return errors.New("B031").WithDetail("server.waitTimeout must not be negative")
	}
	return nil
}

// ReactionMode parses Reactions.
func (c *Config) ReactionMode() (dom.ReactionMode, error) {
	switch strings.ToLower(c.Reactions) {
	case "", "sync":
		return dom.ReactionsSync, nil
	case "deferred":
		return dom.ReactionsDeferred, nil
	}
	return 0, errors.New("B031").
		WithDetail(fmt.Sprintf("reactions %q must be sync or deferred", c.Reactions))
}

// BuilderPolicy parses Policy.
func (c *Config) BuilderPolicy() (el.Policy, error) {
	p, err := el.ParsePolicy(c.Policy)
	if err != nil {
		return 0, errors.New("B031").
			WithDetail(fmt.Sprintf("policy %q must be buckets or prefix", c.Policy)).
			Wrap(err)
	}
	return p, nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, errors.New("B031").
			WithDetail(fmt.Sprintf("log level %q must be debug, info, warn or error", c.Log.Level)).
			Wrap(err)
	}
	return lvl, nil
}

// NewLogger returns a slog logger writing to w in the configured format
// and level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	lvl, _ := c.LogLevel()
	opts := &slog.HandlerOptions{Level: lvl}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ArenaOptions converts the configuration into arena options. The config
// should be validated first; invalid enum values fall back to defaults.
func (c *Config) ArenaOptions() []bore.Option {
	mode, _ := c.ReactionMode()
	opts := []bore.Option{
		bore.WithDefaultDelay(c.Delay.D()),
		bore.WithDefaultTimeout(c.Timeout.D()),
		bore.WithReactionMode(mode),
		bore.WithFixtureID(c.FixtureID),
	}
	if c.ForceOpenShadow != nil {
		opts = append(opts, bore.WithForceOpenShadow(*c.ForceOpenShadow))
	}
	return opts
}
