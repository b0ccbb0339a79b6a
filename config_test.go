package authkit

import (
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := defaultConfig()

	if cfg.ActionTokens.TTL != 30*time.Minute {
		t.Fatalf("expected 30m action token window, got %v", cfg.ActionTokens.TTL)
	}
	if cfg.JWT.AccessTTL >= cfg.JWT.RefreshTTL {
		t.Fatal("expected refresh TTL to exceed access TTL")
	}
	if cfg.Password.MinLength < 8 {
		t.Fatalf("expected minimum password length >= 8, got %d", cfg.Password.MinLength)
	}
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestValidateConfigRejections(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.ActionTokens.TTL = 0 },
		func(c *Config) { c.Password.MinLength = 0 },
		func(c *Config) { c.LoginThrottle.Enabled = true; c.LoginThrottle.MaxAttempts = 0 },
		func(c *Config) { c.LoginThrottle.Enabled = true; c.LoginThrottle.Cooldown = 0 },
		func(c *Config) { c.Cookies.AccessName = "" },
		func(c *Config) { c.Cookies.RefreshName = "" },
	}
	for i, mutate := range cases {
		cfg := defaultConfig()
		mutate(&cfg)
		if err := validateConfig(cfg); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestBuildRequiresUserStore(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected build to fail without a user store")
	}
}

func TestBuildRequiresRedisForThrottle(t *testing.T) {
	cfg := testConfig()
	cfg.LoginThrottle.Enabled = true

	_, err := New().
		WithConfig(cfg).
		WithUserStore(newMockUserStore()).
		Build()
	if err == nil {
		t.Fatal("expected build to fail without redis when throttle enabled")
	}
}

func TestBuildRequiresSigningKey(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.PrivateKey = nil

	_, err := New().
		WithConfig(cfg).
		WithUserStore(newMockUserStore()).
		Build()
	if err == nil {
		t.Fatal("expected build to fail without signing key")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig()).WithUserStore(newMockUserStore())

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second build to fail")
	}
}

func TestWithJWTKeysOverridesKeysOnly(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	cfg := testConfig()
	cfg.JWT.PrivateKey = nil

	engine, err := New().
		WithConfig(cfg).
		WithJWTKeys(secret, nil).
		WithUserStore(newMockUserStore()).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)
}
