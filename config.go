package tokenguard

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/tokenguard/password"
	"github.com/MrEthical07/tokenguard/revocation"
)

// Config is the full Authority configuration. Start from DefaultConfig and
// override fields, or load a YAML file with LoadConfig.
type Config struct {
	Token      TokenConfig      `yaml:"token"`
	Password   PasswordConfig   `yaml:"password"`
	Revocation RevocationConfig `yaml:"revocation"`
	Signin     SigninConfig     `yaml:"signin"`
	Audit      AuditConfig      `yaml:"audit"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls session token signing. Secret is the HS256 key;
// PrivateKey and PublicKey take raw or PEM Ed25519 keys.
type TokenConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SigningMethod string        `yaml:"signing_method"` // "hs256" (default) or "ed25519"
	Secret        string        `yaml:"secret"`
	PrivateKey    string        `yaml:"private_key"`
	PublicKey     string        `yaml:"public_key"`
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	Leeway        time.Duration `yaml:"leeway"`
	KeyID         string        `yaml:"key_id"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the password hasher.
type PasswordConfig struct {
	Algorithm   string `yaml:"algorithm"` // "bcrypt" (default) or "argon2id"
	BcryptCost  int    `yaml:"bcrypt_cost"`
	Memory      uint32 `yaml:"argon2_memory"`
	Time        uint32 `yaml:"argon2_time"`
	Parallelism uint8  `yaml:"argon2_parallelism"`
	SaltLength  uint32 `yaml:"argon2_salt_length"`
	KeyLength   uint32 `yaml:"argon2_key_length"`
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationConfig sizes the in-process revocation cache and namespaces the
// Redis revocation keys.
type RevocationConfig struct {
	CacheSize   int    `yaml:"cache_size"`
	RedisPrefix string `yaml:"redis_prefix"`
}

/*
====================================
SIGNIN THROTTLE CONFIG
====================================
*/

// SigninConfig controls the Redis-backed signin throttle. The IP counter is
// only kept when EnableIPThrottle is set.
type SigninConfig struct {
	ThrottleEnabled  bool          `yaml:"throttle_enabled"`
	MaxAttempts      int           `yaml:"max_attempts"`
	Window           time.Duration `yaml:"window"`
	EnableIPThrottle bool          `yaml:"enable_ip_throttle"`
}

/*
====================================
AUDIT / METRICS / LOG CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig turns the in-process counters and the authenticate latency
// histogram on or off.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// LogConfig is passed to NewLogger.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"` // "text" (default) or "json"
	Component string `yaml:"component"`
}

// Token issuer and audience used when the configuration does not name its own.
const (
	DefaultIssuer   = "tokenguard"
	DefaultAudience = "tokenguard-api"
)

// DefaultConfig returns the production defaults. Token.Secret is left empty
// and must be supplied.
func DefaultConfig() Config {
	argon := password.DefaultArgon2Config()
	return Config{
		Token: TokenConfig{
			TTL:           12 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        DefaultIssuer,
			Audience:      DefaultAudience,
		},
		Password: PasswordConfig{
			Algorithm:   "bcrypt",
			BcryptCost:  password.DefaultBcryptCost,
			Memory:      argon.Memory,
			Time:        argon.Time,
			Parallelism: argon.Parallelism,
			SaltLength:  argon.SaltLength,
			KeyLength:   argon.KeyLength,
		},
		Revocation: RevocationConfig{
			CacheSize:   revocation.DefaultCacheSize,
			RedisPrefix: revocation.DefaultKeyPrefix,
		},
		Signin: SigninConfig{
			ThrottleEnabled:  true,
			MaxAttempts:      5,
			Window:           15 * time.Minute,
			EnableIPThrottle: false,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Log: LogConfig{
			Level:     "info",
			Format:    "text",
			Component: "tokenguard",
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig. Keys absent from the file
// keep their defaults; unknown top-level sections are ignored so the same
// file can carry server settings.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	switch strings.ToLower(c.Token.SigningMethod) {
	case "hs256":
		if len(c.Token.Secret) < 32 {
			return errors.New("hs256 requires a Secret of at least 32 bytes")
		}
	case "ed25519":
		if c.Token.PrivateKey == "" {
			return errors.New("ed25519 requires PrivateKey")
		}
	default:
		return errors.New("unsupported token signing method")
	}
	if strings.TrimSpace(c.Token.Issuer) == "" {
		return errors.New("Token Issuer must not be empty")
	}
	if strings.TrimSpace(c.Token.Audience) == "" {
		return errors.New("Token Audience must not be empty")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be within [0, 2m]")
	}

	// Password
	switch c.Password.Algorithm {
	case "bcrypt":
		if c.Password.BcryptCost != 0 && (c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31) {
			return errors.New("Password BcryptCost must be within [4, 31]")
		}
	case "argon2id":
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return errors.New("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return errors.New("Password Parallelism must be >= 1")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	default:
		return errors.New("Password Algorithm must be 'bcrypt' or 'argon2id'")
	}

	// Revocation
	if c.Revocation.CacheSize <= 0 {
		return errors.New("Revocation CacheSize must be > 0")
	}

	// Signin
	if c.Signin.ThrottleEnabled {
		if c.Signin.MaxAttempts <= 0 {
			return errors.New("Signin MaxAttempts must be > 0")
		}
		if c.Signin.Window <= 0 {
			return errors.New("Signin Window must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	// Log
	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("Log Format must be 'text' or 'json'")
	}

	return nil
}

// PasswordHasher builds the hasher selected by Password.Algorithm. Directories
// and the Authority should share one.
func (c *Config) PasswordHasher() (password.Hasher, error) {
	if c.Password.Algorithm == "argon2id" {
		return password.NewArgon2(password.Argon2Config{
			Memory:      c.Password.Memory,
			Time:        c.Password.Time,
			Parallelism: c.Password.Parallelism,
			SaltLength:  c.Password.SaltLength,
			KeyLength:   c.Password.KeyLength,
		})
	}
	return password.NewBcrypt(c.Password.BcryptCost)
}
