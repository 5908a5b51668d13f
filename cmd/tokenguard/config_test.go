package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestLoadOptionsDefaults(t *testing.T) {
	opts, err := loadOptions([]string{"--secret", testSecret}, env(nil))
	if err != nil {
		t.Fatalf("loadOptions: %v", err)
	}
	if opts.server.Addr != ":8080" {
		t.Fatalf("addr = %q", opts.server.Addr)
	}
	if opts.server.RedisAddr != "" {
		t.Fatalf("expected embedded redis by default, got %q", opts.server.RedisAddr)
	}
	if opts.auth.Token.TTL != 12*time.Hour {
		t.Fatalf("ttl = %v", opts.auth.Token.TTL)
	}
}

func TestLoadOptionsRequiresSecret(t *testing.T) {
	if _, err := loadOptions(nil, env(nil)); err == nil {
		t.Fatal("expected error without a signing secret")
	}
}

func TestLoadOptionsPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokenguard.yaml")
	yaml := strings.Join([]string{
		"server:",
		"  addr: \":9000\"",
		"  redis_addr: \"file:6379\"",
		"  shutdown_timeout: 3s",
		"  allowed_origins: [\"https://a.example.com\"]",
		"token:",
		"  ttl: 1h",
		"  secret: \"" + testSecret + "\"",
		"signin:",
		"  max_attempts: 9",
	}, "\n")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	opts, err := loadOptions(
		[]string{"--config", path, "--addr", ":7000"},
		env(map[string]string{"REDIS_ADDR": "env:6379"}),
	)
	if err != nil {
		t.Fatalf("loadOptions: %v", err)
	}

	if opts.server.Addr != ":7000" {
		t.Fatalf("flag should win, got %q", opts.server.Addr)
	}
	if opts.server.RedisAddr != "env:6379" {
		t.Fatalf("env should beat file, got %q", opts.server.RedisAddr)
	}
	if opts.server.ShutdownTimeout != 3*time.Second {
		t.Fatalf("shutdown timeout = %v", opts.server.ShutdownTimeout)
	}
	if len(opts.server.AllowedOrigins) != 1 {
		t.Fatalf("origins = %v", opts.server.AllowedOrigins)
	}
	if opts.auth.Token.TTL != time.Hour || opts.auth.Signin.MaxAttempts != 9 {
		t.Fatalf("auth config not loaded: %+v", opts.auth)
	}
	if opts.auth.Signin.Window != 15*time.Minute {
		t.Fatalf("unset keys must keep defaults, window = %v", opts.auth.Signin.Window)
	}
}

func TestLoadOptionsRejectsPositionalArgs(t *testing.T) {
	if _, err := loadOptions([]string{"--secret", testSecret, "extra"}, env(nil)); err == nil {
		t.Fatal("expected error for positional argument")
	}
}
