package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/bore/el"
	"github.com/vango-dev/bore/internal/errors"
	"github.com/vango-dev/bore/pkg/bore"
	"github.com/vango-dev/bore/pkg/dom"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func code(err error) string {
	var be *errors.BoreError
	if stderrors.As(err, &be) {
		return be.Code
	}
	return ""
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Delay.D() != bore.DefaultDelay {
		t.Errorf("Delay = %v, want %v", cfg.Delay.D(), bore.DefaultDelay)
	}
	if cfg.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", cfg.Timeout.D())
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if cfg.ForceOpenShadow == nil || !*cfg.ForceOpenShadow {
		t.Error("ForceOpenShadow should default to true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if diff := cmp.Diff(New(), cfg, cmp.AllowUnexported(Config{})); diff != "" {
		t.Errorf("Load without a file should return defaults (-want +got):\n%s", diff)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bore.json", `{
  "delay": "5ms",
  "timeout": 2000,
  "reactions": "deferred",
  "forceOpenShadow": false,
  "server": {"addr": ":9000"},
  "source": {"s3": {"region": "eu-west-1", "pathStyle": true}}
}
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path = %q, want %q", cfg.Path(), path)
	}
	if cfg.Delay.D() != 5*time.Millisecond {
		t.Errorf("Delay = %v, want 5ms", cfg.Delay.D())
	}
	if cfg.Timeout.D() != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", cfg.Timeout.D())
	}
	if cfg.Reactions != "deferred" {
		t.Errorf("Reactions = %q", cfg.Reactions)
	}
	if *cfg.ForceOpenShadow {
		t.Error("ForceOpenShadow should be false")
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.MaxBody != DefaultMaxBody || cfg.Server.WaitTimeout.D() != DefaultWaitTimeout {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Source.S3.Region != "eu-west-1" || !cfg.Source.S3.PathStyle {
		t.Errorf("Source.S3 = %+v", cfg.Source.S3)
	}
	if cfg.Policy != "buckets" || cfg.FixtureID != bore.DefaultFixtureID {
		t.Errorf("defaults not applied: policy=%q fixture=%q", cfg.Policy, cfg.FixtureID)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bore.yaml", `
delay: 10ms
policy: prefix
log:
  level: debug
  format: json
metrics:
  namespace: fixtures
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Delay.D() != 10*time.Millisecond {
		t.Errorf("Delay = %v, want 10ms", cfg.Delay.D())
	}
	if cfg.Policy != "prefix" {
		t.Errorf("Policy = %q, want prefix", cfg.Policy)
	}
	if cfg.Log != (LogConfig{Level: "debug", Format: "json"}) {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Metrics.Namespace != "fixtures" {
		t.Errorf("Metrics.Namespace = %q", cfg.Metrics.Namespace)
	}
}

func TestLoadPrefersJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bore.json", `{"fixtureId": "from-json"}`)
	writeFile(t, dir, "bore.yml", "fixtureId: from-yaml\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FixtureID != "from-json" {
		t.Errorf("FixtureID = %q, want from-json", cfg.FixtureID)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"invalid json", "bore.json", "{\n  \"delay\": \"5ms\",\n  oops\n}"},
		{"invalid yaml", "bore.yaml", "delay: [5ms\n"},
		{"bad duration", "bore.json", `{"delay": "soon"}`},
		{"unknown field", "bore.json", `{"dealy": "5ms"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			_, err := LoadFile(path)
			if code(err) != "B030" {
				t.Errorf("err = %v, want B030", err)
			}
		})
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.json")); code(err) != "B030" {
		t.Errorf("missing file err = %v, want B030", err)
	}
}

func TestLoadFileSyntaxLocation(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bore.json", "{\n  \"delay\": \"5ms\",\n  oops\n}")

	_, err := LoadFile(path)
	var be *errors.BoreError
	if !stderrors.As(err, &be) {
		t.Fatalf("err = %v, want BoreError", err)
	}
	if be.Location == nil || be.Location.Line != 3 {
		t.Errorf("Location = %+v, want line 3", be.Location)
	}
}

func TestSaveTo(t *testing.T) {
	dir := t.TempDir()
	cfg := New()
	cfg.Timeout = Duration(3 * time.Second)
	cfg.Policy = "prefix"

	for _, name := range []string{"bore.json", "bore.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo: %v", err)
			}
			got, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if got.Timeout != cfg.Timeout || got.Policy != "prefix" {
				t.Errorf("reloaded timeout=%v policy=%q", got.Timeout.D(), got.Policy)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"BORE_DELAY":     "20ms",
		"BORE_TIMEOUT":   "1s",
		"BORE_REACTIONS": "deferred",
		"BORE_POLICY":    "prefix",
		"BORE_ADDR":      "127.0.0.1:8000",
		"BORE_LOG_LEVEL": "warn",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := New()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatal(err)
	}
	if cfg.Delay.D() != 20*time.Millisecond || cfg.Timeout.D() != time.Second {
		t.Errorf("delay=%v timeout=%v", cfg.Delay.D(), cfg.Timeout.D())
	}
	if cfg.Reactions != "deferred" || cfg.Policy != "prefix" {
		t.Errorf("reactions=%q policy=%q", cfg.Reactions, cfg.Policy)
	}
	if cfg.Server.Addr != "127.0.0.1:8000" || cfg.Log.Level != "warn" {
		t.Errorf("addr=%q level=%q", cfg.Server.Addr, cfg.Log.Level)
	}

	env = map[string]string{"BORE_TIMEOUT": "forever"}
	if err := New().ApplyEnv(lookup); code(err) != "B031" {
		t.Errorf("err = %v, want B031", err)
	}
}

func TestApplyPatch(t *testing.T) {
	cfg := New()
	err := cfg.ApplyPatch([]byte(`{"timeout": "2s", "server": {"addr": ":9000"}, "forceOpenShadow": null}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout.D() != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", cfg.Timeout.D())
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.MaxBody != DefaultMaxBody {
		t.Errorf("unpatched MaxBody = %d, want %d", cfg.Server.MaxBody, DefaultMaxBody)
	}
	if cfg.ForceOpenShadow == nil || !*cfg.ForceOpenShadow {
		t.Error("removed forceOpenShadow should fall back to the default")
	}

	if err := cfg.ApplyPatch(nil); err != nil {
		t.Errorf("empty patch: %v", err)
	}
	if err := cfg.ApplyPatch([]byte(`{"timeout":`)); code(err) != "B032" {
		t.Errorf("err = %v, want B032", err)
	}
	if err := cfg.ApplyPatch([]byte(`{"nope": 1}`)); code(err) != "B032" {
		t.Errorf("unknown field err = %v, want B032", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative delay", func(c *Config) { c.Delay = -1 }},
		{"negative timeout", func(c *Config) { c.Timeout = Duration(-time.Second) }},
		{"reactions", func(c *Config) { c.Reactions = "later" }},
		{"policy", func(c *Config) { c.Policy = "everything" }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"max body", func(c *Config) { c.Server.MaxBody = -1 }},
		{"wait timeout", func(c *Config) { c.Server.WaitTimeout = Duration(-time.Second) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			if err := cfg.Validate(); code(err) != "B031" {
				t.Errorf("Validate = %v, want B031", err)
			}
		})
	}
}

func TestParsedValues(t *testing.T) {
	cfg := New()
	cfg.Reactions = "Deferred"
	cfg.Policy = "prefix"

	mode, err := cfg.ReactionMode()
	if err != nil || mode != dom.ReactionsDeferred {
		t.Errorf("ReactionMode = %v, %v", mode, err)
	}
	policy, err := cfg.BuilderPolicy()
	if err != nil || policy != el.PrefixPolicy {
		t.Errorf("BuilderPolicy = %v, %v", policy, err)
	}
}

func TestArenaOptions(t *testing.T) {
	cfg := New()
	cfg.Delay = Duration(7 * time.Millisecond)
	cfg.Timeout = Duration(time.Second)
	cfg.FixtureID = "custom-fixture"
	cfg.Reactions = "deferred"

	a := bore.New(cfg.ArenaOptions()...)
	defer a.Close()

	if a.Options().Delay != 7*time.Millisecond || a.Options().Timeout != time.Second {
		t.Errorf("Options = %+v", *a.Options())
	}
	if a.Fixture().ID() != "custom-fixture" {
		t.Errorf("fixture id = %q", a.Fixture().ID())
	}
	if a.Registry().Mode() != dom.ReactionsDeferred {
		t.Errorf("reaction mode = %v", a.Registry().Mode())
	}
	if !a.Document().ForceOpenShadow() {
		t.Error("shadow roots should be forced open")
	}
}

func TestNewLogger(t *testing.T) {
	var b strings.Builder
	cfg := New()
	cfg.Log = LogConfig{Level: "warn", Format: "json"}

	logger := cfg.NewLogger(&b)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	out := b.String()
	if strings.Contains(out, "hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("expected JSON record, got %q", out)
	}
}
