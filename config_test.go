package tokenguard

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigNeedsSecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected default config without secret to be invalid")
	}
	cfg.Token.Secret = testSecret
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{"short secret", func(c *Config) { c.Token.Secret = "short" }, false},
		{"zero ttl", func(c *Config) { c.Token.TTL = 0 }, false},
		{"empty issuer", func(c *Config) { c.Token.Issuer = "" }, false},
		{"empty audience", func(c *Config) { c.Token.Audience = " " }, false},
		{"leeway too large", func(c *Config) { c.Token.Leeway = 3 * time.Minute }, false},
		{"leeway ok", func(c *Config) { c.Token.Leeway = 30 * time.Second }, true},
		{"unknown signing method", func(c *Config) { c.Token.SigningMethod = "rs256" }, false},
		{"ed25519 without key", func(c *Config) { c.Token.SigningMethod = "ed25519" }, false},
		{"bcrypt cost out of range", func(c *Config) { c.Password.BcryptCost = 40 }, false},
		{"argon2id defaults", func(c *Config) { c.Password.Algorithm = "argon2id" }, true},
		{"argon2id weak memory", func(c *Config) {
			c.Password.Algorithm = "argon2id"
			c.Password.Memory = 1024
		}, false},
		{"unknown password algorithm", func(c *Config) { c.Password.Algorithm = "md5" }, false},
		{"zero cache", func(c *Config) { c.Revocation.CacheSize = 0 }, false},
		{"throttle zero attempts", func(c *Config) { c.Signin.MaxAttempts = 0 }, false},
		{"throttle disabled ignores attempts", func(c *Config) {
			c.Signin.ThrottleEnabled = false
			c.Signin.MaxAttempts = 0
		}, true},
		{"audit zero buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}, false},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected invalid config")
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
token:
  ttl: 30m
  secret: "0123456789abcdef0123456789abcdef"
  audience: web
password:
  algorithm: argon2id
revocation:
  cache_size: 64
log:
  format: json
server:
  addr: ":9000"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Token.TTL != 30*time.Minute || cfg.Token.Audience != "web" {
		t.Fatalf("token section not applied: %+v", cfg.Token)
	}
	if cfg.Token.Issuer != "tokenguard" {
		t.Fatalf("unset keys must keep defaults, issuer=%q", cfg.Token.Issuer)
	}
	if cfg.Password.Algorithm != "argon2id" || cfg.Revocation.CacheSize != 64 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config invalid: %v", err)
	}

	h, err := cfg.PasswordHasher()
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	hash, err := h.Hash("password-1")
	if err != nil || hash[:10] != "$argon2id$" {
		t.Fatalf("expected argon2id hash, got %q %v", hash, err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("token: [unclosed"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}
