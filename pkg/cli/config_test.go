package cli

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"1234", "****"},
		{"12345678", "********"},
		{"123456789", "1234*6789"},
		{"sk-1234567890abcdef", "sk-1***********cdef"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := MaskAPIKey(tt.key); got != tt.want {
				t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestContext_Defaults(t *testing.T) {
	ctx := &Context{}
	if !ctx.IsRealtime() {
		t.Error("IsRealtime() with nil Realtime = false, want true")
	}
	if got := ctx.ReconnectInterval(); got != 0 {
		t.Errorf("ReconnectInterval() = %v, want 0", got)
	}

	off := false
	ctx = &Context{Realtime: &off, ReconnectIntervalMS: 1500}
	if ctx.IsRealtime() {
		t.Error("IsRealtime() = true, want false")
	}
	if got := ctx.ReconnectInterval(); got != 1500*time.Millisecond {
		t.Errorf("ReconnectInterval() = %v, want 1.5s", got)
	}
}

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "text2dot", "config.yaml")
	cfg, err := LoadConfigWithPath("text2dot", path)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}
	return cfg
}

func TestLoadConfigWithPath_NewConfig(t *testing.T) {
	cfg := newTestConfig(t)

	if cfg.AppName != "text2dot" {
		t.Errorf("AppName = %q, want text2dot", cfg.AppName)
	}
	if len(cfg.Contexts) != 0 {
		t.Errorf("Contexts = %v, want empty", cfg.Contexts)
	}
	if _, err := os.Stat(cfg.Path()); err != nil {
		t.Errorf("config file not created: %v", err)
	}
}

func TestLoadConfigWithPath_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("contexts: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigWithPath("text2dot", path); err == nil {
		t.Fatal("LoadConfigWithPath on invalid YAML: want error")
	}
}

func TestConfig_AddContext(t *testing.T) {
	cfg := newTestConfig(t)

	if err := cfg.AddContext("local", &Context{URL: "ws://localhost:4000"}); err != nil {
		t.Fatalf("AddContext error: %v", err)
	}
	if cfg.CurrentContext != "local" {
		t.Errorf("CurrentContext = %q, want first added context", cfg.CurrentContext)
	}
	if err := cfg.AddContext("remote", &Context{URL: "wss://example.com"}); err != nil {
		t.Fatalf("AddContext error: %v", err)
	}
	if cfg.CurrentContext != "local" {
		t.Errorf("CurrentContext = %q after second add, want local", cfg.CurrentContext)
	}

	ctx, err := cfg.GetContext("remote")
	if err != nil {
		t.Fatalf("GetContext error: %v", err)
	}
	if ctx.Name != "remote" {
		t.Errorf("Name = %q, want remote", ctx.Name)
	}
}

func TestConfig_DeleteAndUse(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.AddContext("a", &Context{})
	cfg.AddContext("b", &Context{})

	if err := cfg.UseContext("b"); err != nil {
		t.Fatalf("UseContext error: %v", err)
	}
	if err := cfg.UseContext("missing"); err == nil {
		t.Error("UseContext(missing): want error")
	}
	if err := cfg.DeleteContext("b"); err != nil {
		t.Fatalf("DeleteContext error: %v", err)
	}
	if cfg.CurrentContext != "" {
		t.Errorf("CurrentContext = %q after deleting it, want empty", cfg.CurrentContext)
	}
	if err := cfg.DeleteContext("b"); err == nil {
		t.Error("DeleteContext twice: want error")
	}
}

func TestConfig_ResolveContext(t *testing.T) {
	cfg := newTestConfig(t)

	ctx, err := cfg.ResolveContext("")
	if err != nil || ctx == nil || ctx.URL != "" {
		t.Fatalf("ResolveContext with nothing configured = %+v, %v; want empty context", ctx, err)
	}

	cfg.AddContext("local", &Context{URL: "ws://localhost:4000"})
	ctx, err = cfg.ResolveContext("")
	if err != nil || ctx.URL != "ws://localhost:4000" {
		t.Fatalf("ResolveContext(\"\") = %+v, %v; want current context", ctx, err)
	}
	if _, err := cfg.ResolveContext("nope"); err == nil {
		t.Fatal("ResolveContext(nope): want error")
	}
}

func TestConfig_ListContexts(t *testing.T) {
	cfg := newTestConfig(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		cfg.AddContext(name, &Context{})
	}
	if got, want := cfg.ListContexts(), []string{"alpha", "mid", "zeta"}; !slices.Equal(got, want) {
		t.Errorf("ListContexts() = %v, want %v", got, want)
	}
}

func TestConfig_Persistence(t *testing.T) {
	cfg := newTestConfig(t)
	off := false
	err := cfg.AddContext("local", &Context{
		URL:                 "ws://localhost:4000",
		ReconnectIntervalMS: 2000,
		AnnounceURL:         "http://localhost:4100/audio/connected",
		Output:              "-",
		SampleRate:          48000,
		Realtime:            &off,
		LenientJSON:         true,
		APIKey:              "sk-secret",
	})
	if err != nil {
		t.Fatalf("AddContext error: %v", err)
	}

	data, err := os.ReadFile(cfg.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "reconnect_interval_ms: 2000") {
		t.Errorf("saved YAML missing reconnect_interval_ms:\n%s", data)
	}

	loaded, err := LoadConfigWithPath("text2dot", cfg.Path())
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	ctx, err := loaded.GetContext("local")
	if err != nil {
		t.Fatalf("GetContext error: %v", err)
	}
	if ctx.URL != "ws://localhost:4000" || ctx.ReconnectInterval() != 2*time.Second {
		t.Errorf("reloaded context = %+v", ctx)
	}
	if ctx.IsRealtime() || !ctx.LenientJSON || ctx.SampleRate != 48000 || ctx.APIKey != "sk-secret" {
		t.Errorf("reloaded context = %+v", ctx)
	}
	if loaded.CurrentContext != "local" {
		t.Errorf("CurrentContext = %q, want local", loaded.CurrentContext)
	}
}
