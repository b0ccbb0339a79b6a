package authkit

import (
	"errors"

	"github.com/inkwellhq/authkit/internal/rate"
	"github.com/inkwellhq/authkit/jwt"
	"github.com/inkwellhq/authkit/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. Construction is allocation-only: no I/O
// happens until the first Engine method call.
type Builder struct {
	config    Config
	store     UserStore
	redis     redis.UniversalClient
	auditSink AuditSink
	built     bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithUserStore injects the persistence adapter. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.store = store
	return b
}

// WithRedis injects the Redis client used by the login throttle. Required
// only when LoginThrottle.Enabled is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithJWTKeys sets the signing key pair without replacing the rest of the
// configuration. For HS256 pass the shared secret as privateKey and nil
// for publicKey.
func (b *Builder) WithJWTKeys(privateKey, publicKey []byte) *Builder {
	b.config.JWT.PrivateKey = privateKey
	b.config.JWT.PublicKey = publicKey
	return b
}

// WithAuditSink injects the audit event receiver. Defaults to NoOpSink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the crypto components, and
// returns the Engine. A Builder can be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.store == nil {
		return nil, errors.New("user store is required")
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Params{
		MemoryKB:   b.config.Password.MemoryKB,
		Iterations: b.config.Password.Iterations,
		Threads:    b.config.Password.Threads,
		SaltLength: b.config.Password.SaltLength,
		KeyLength:  b.config.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		AccessTTL:     b.config.JWT.AccessTTL,
		RefreshTTL:    b.config.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(b.config.JWT.SigningMethod),
		PrivateKey:    b.config.JWT.PrivateKey,
		PublicKey:     b.config.JWT.PublicKey,
		Issuer:        b.config.JWT.Issuer,
		Leeway:        b.config.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if b.config.LoginThrottle.Enabled {
		if b.redis == nil {
			return nil, errors.New("login throttle requires a redis client")
		}
		limiter = rate.New(b.redis, rate.Config{
			MaxAttempts:  b.config.LoginThrottle.MaxAttempts,
			Cooldown:     b.config.LoginThrottle.Cooldown,
			ThrottleByIP: b.config.LoginThrottle.ThrottleByIP,
		})
	}

	b.built = true

	return &Engine{
		config:       b.config,
		store:        b.store,
		hasher:       hasher,
		jwtManager:   jwtManager,
		loginLimiter: limiter,
		audit:        newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics:      NewMetrics(b.config.Metrics),
	}, nil
}
