package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/tokenguard"
)

// serverConfig is the "server" section of the config file. The remaining
// sections are tokenguard.Config.
type serverConfig struct {
	Addr            string        `yaml:"addr"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	PostgresDSN     string        `yaml:"postgres_dsn"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	TrustProxy      bool          `yaml:"trust_proxy"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	PurgeInterval   time.Duration `yaml:"purge_interval"`
	OTel            bool          `yaml:"otel"`
}

type fileConfig struct {
	Server serverConfig `yaml:"server"`
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
	}
}

type options struct {
	configPath string
	server     serverConfig
	auth       tokenguard.Config
}

// loadOptions resolves settings in order: defaults, config file, environment,
// then explicitly set flags.
func loadOptions(args []string, getenv func(string) string) (options, error) {
	var (
		opts      options
		flagSrv   = defaultServerConfig()
		secret    string
		logLevel  string
		logFormat string
		metrics   bool
	)

	fs := pflag.NewFlagSet("tokenguard", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	fs.StringVar(&flagSrv.Addr, "addr", flagSrv.Addr, "HTTP listen address")
	fs.StringVar(&flagSrv.RedisAddr, "redis-addr", "", "redis address; empty starts an embedded miniredis (env REDIS_ADDR)")
	fs.StringVar(&flagSrv.PostgresDSN, "postgres-dsn", "", "store users and revocations in Postgres (env TOKENGUARD_POSTGRES_DSN)")
	fs.StringSliceVar(&flagSrv.AllowedOrigins, "cors-origin", nil, "allowed CORS origin, repeatable")
	fs.BoolVar(&flagSrv.TrustProxy, "trust-proxy", false, "take the client IP from X-Forwarded-For")
	fs.BoolVar(&flagSrv.OTel, "otel", false, "also publish metrics to the global OpenTelemetry meter provider")
	fs.StringVar(&secret, "secret", "", "HS256 signing secret, at least 32 bytes (env TOKENGUARD_SECRET)")
	fs.StringVar(&logLevel, "log-level", "", "log level")
	fs.StringVar(&logFormat, "log-format", "", "log format: text or json")
	fs.BoolVar(&metrics, "metrics", true, "serve /metrics")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", rest[0])
	}

	opts.auth = tokenguard.DefaultConfig()
	opts.server = defaultServerConfig()
	if opts.configPath != "" {
		cfg, err := tokenguard.LoadConfig(opts.configPath)
		if err != nil {
			return options{}, err
		}
		opts.auth = cfg

		srv, err := readServerConfig(opts.configPath)
		if err != nil {
			return options{}, err
		}
		opts.server = srv
	}

	if v := getenv("REDIS_ADDR"); v != "" {
		opts.server.RedisAddr = v
	}
	if v := getenv("TOKENGUARD_POSTGRES_DSN"); v != "" {
		opts.server.PostgresDSN = v
	}
	if v := getenv("TOKENGUARD_SECRET"); v != "" {
		opts.auth.Token.Secret = v
	}

	if fs.Changed("addr") {
		opts.server.Addr = flagSrv.Addr
	}
	if fs.Changed("redis-addr") {
		opts.server.RedisAddr = flagSrv.RedisAddr
	}
	if fs.Changed("postgres-dsn") {
		opts.server.PostgresDSN = flagSrv.PostgresDSN
	}
	if fs.Changed("cors-origin") {
		opts.server.AllowedOrigins = flagSrv.AllowedOrigins
	}
	if fs.Changed("trust-proxy") {
		opts.server.TrustProxy = flagSrv.TrustProxy
	}
	if fs.Changed("otel") {
		opts.server.OTel = flagSrv.OTel
	}
	if fs.Changed("secret") {
		opts.auth.Token.Secret = secret
	}
	if fs.Changed("log-level") {
		opts.auth.Log.Level = logLevel
	}
	if fs.Changed("log-format") {
		opts.auth.Log.Format = logFormat
	}
	if fs.Changed("metrics") {
		opts.auth.Metrics.Enabled = metrics
	}

	if err := opts.auth.Validate(); err != nil {
		return options{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return opts, nil
}

func readServerConfig(path string) (serverConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return serverConfig{}, fmt.Errorf("read config: %w", err)
	}
	fc := fileConfig{Server: defaultServerConfig()}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return serverConfig{}, fmt.Errorf("parse server config %s: %w", path, err)
	}
	return fc.Server, nil
}
