package tokenguard

import (
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/tokenguard/internal/audit"
	"github.com/MrEthical07/tokenguard/internal/rate"
	"github.com/MrEthical07/tokenguard/jwt"
	"github.com/MrEthical07/tokenguard/password"
	"github.com/MrEthical07/tokenguard/revocation"
)

// Builder assembles an Authority. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory   UserDirectory
	revocations revocation.Store
	hasher      password.Hasher
	logger      logrus.FieldLogger
	auditSink   AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the client used for the default revocation store and the
// signin throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDirectory sets the user directory. It is required.
func (b *Builder) WithDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithRevocationStore overrides the Redis revocation store, for example with
// the SQL store.
func (b *Builder) WithRevocationStore(store revocation.Store) *Builder {
	b.revocations = store
	return b
}

// WithHasher overrides the hasher selected by Config.Password. It must match
// the hasher the directory writes with.
func (b *Builder) WithHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

// WithLogger sets the logger. Without one, Build uses NewLogger(Config.Log).
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events go when Config.Audit is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the Authority.
func (b *Builder) Build() (*Authority, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}
	if b.revocations == nil && b.redis == nil {
		return nil, errors.New("revocation store or redis client required")
	}
	if cfg.Signin.ThrottleEnabled && b.redis == nil {
		return nil, errors.New("signin throttle requires redis client")
	}

	hasher := b.hasher
	if hasher == nil {
		h, err := cfg.PasswordHasher()
		if err != nil {
			return nil, err
		}
		hasher = h
	}

	jm, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.Token.TTL,
		SigningMethod: jwt.SigningMethod(strings.ToLower(cfg.Token.SigningMethod)),
		Secret:        []byte(cfg.Token.Secret),
		PrivateKey:    []byte(cfg.Token.PrivateKey),
		PublicKey:     []byte(cfg.Token.PublicKey),
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
		Leeway:        cfg.Token.Leeway,
		KeyID:         cfg.Token.KeyID,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = NewLogger(cfg.Log, nil)
	}

	store := b.revocations
	if store == nil {
		store = revocation.NewRedisStore(b.redis, cfg.Revocation.RedisPrefix)
	}

	a := &Authority{
		config:      cfg,
		tokens:      jm,
		directory:   b.directory,
		revocations: store,
		cache:       revocation.NewCache(cfg.Revocation.CacheSize),
		hasher:      hasher,
		log:         logger,
		metrics:     NewMetrics(cfg.Metrics),
		validate:    newValidator(),
	}
	if cfg.Signin.ThrottleEnabled {
		a.limiter = rate.New(b.redis, rate.Config{
			MaxAttempts:      cfg.Signin.MaxAttempts,
			Window:           cfg.Signin.Window,
			EnableIPThrottle: cfg.Signin.EnableIPThrottle,
		})
	}
	a.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return a, nil
}
