package authkit

import (
	"errors"
	"net/http"
	"time"

	"github.com/inkwellhq/authkit/jwt"
)

// Config is the explicit, process-wide configuration for an Engine. It is
// loaded once by the host, passed to the Builder, and treated as immutable
// afterwards; no component reads ambient state.
type Config struct {
	JWT           JWTConfig
	Password      PasswordConfig
	ActionTokens  ActionTokenConfig
	LoginThrottle LoginThrottleConfig
	Cookies       CookieConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

// JWTConfig configures the signed session credentials.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default) or "hs256"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// PasswordConfig configures the Argon2id hasher and the password policy.
type PasswordConfig struct {
	MemoryKB      uint32
	Iterations    uint32
	Threads       uint8
	SaltLength    uint32
	KeyLength     uint32
	MinLength     int
	RehashOnLogin bool
}

// ActionTokenConfig configures the ephemeral action token window shared
// by the verification and password reset flows.
type ActionTokenConfig struct {
	TTL time.Duration
}

// LoginThrottleConfig configures the Redis-backed failed-login throttle.
// Requires a Redis client on the Builder when Enabled.
type LoginThrottleConfig struct {
	Enabled      bool
	MaxAttempts  int
	Cooldown     time.Duration
	ThrottleByIP bool
}

// CookieConfig controls the attributes of the session cookies produced by
// SessionCookies. HttpOnly and Secure are always set and not configurable.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	Path        string
	Domain      string
	SameSite    http.SameSite
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    14 * 24 * time.Hour,
			SigningMethod: string(jwt.MethodEd25519),
		},
		Password: PasswordConfig{
			MemoryKB:   64 * 1024,
			Iterations: 3,
			Threads:    2,
			SaltLength: 16,
			KeyLength:  32,
			MinLength:  8,
		},
		ActionTokens: ActionTokenConfig{
			TTL: 30 * time.Minute,
		},
		LoginThrottle: LoginThrottleConfig{
			Enabled:     false,
			MaxAttempts: 5,
			Cooldown:    time.Minute,
		},
		Cookies: CookieConfig{
			AccessName:  "accessToken",
			RefreshName: "refreshToken",
			Path:        "/",
			SameSite:    http.SameSiteStrictMode,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.ActionTokens.TTL <= 0 {
		return errors.New("action token TTL must be positive")
	}
	if cfg.Password.MinLength < 1 {
		return errors.New("password minimum length must be >= 1")
	}
	if cfg.LoginThrottle.Enabled {
		if cfg.LoginThrottle.MaxAttempts < 1 {
			return errors.New("login throttle max attempts must be >= 1")
		}
		if cfg.LoginThrottle.Cooldown <= 0 {
			return errors.New("login throttle cooldown must be positive")
		}
	}
	if cfg.Cookies.AccessName == "" || cfg.Cookies.RefreshName == "" {
		return errors.New("cookie names must not be empty")
	}
	return nil
}
