package authkit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/inkwellhq/authkit/password"
)

type mockUserStore struct {
	mu      sync.Mutex
	users   map[string]User
	byEmail map[string]string

	createErr error
	lookupErr error
	updateErr error

	createCalls int
	redeemCalls int
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:   make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (m *mockUserStore) CreateUser(_ context.Context, input CreateUserInput) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++

	if m.createErr != nil {
		return User{}, m.createErr
	}
	if _, taken := m.byEmail[input.Email]; taken {
		return User{}, ErrUserExists
	}

	user := User{
		ID:           input.ID,
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: input.PasswordHash,
		CreatedAt:    input.CreatedAt,
	}
	m.users[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return user, nil
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lookupErr != nil {
		return User{}, m.lookupErr
	}
	id, ok := m.byEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return m.users[id], nil
}

func (m *mockUserStore) GetUserByID(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lookupErr != nil {
		return User{}, m.lookupErr
	}
	user, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserStore) GetUserByTokenDigest(_ context.Context, kind TokenKind, digest [32]byte) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lookupErr != nil {
		return User{}, m.lookupErr
	}
	for _, user := range m.users {
		stored, _ := user.ActionToken(kind)
		if stored != nil && *stored == digest {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *mockUserStore) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}
	user, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = newHash
	m.users[userID] = user
	return nil
}

func (m *mockUserStore) SetRefreshTokenDigest(_ context.Context, userID string, digest [32]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}
	user, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	d := digest
	user.RefreshTokenDigest = &d
	m.users[userID] = user
	return nil
}

func (m *mockUserStore) ClearRefreshTokenDigest(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}
	user, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.RefreshTokenDigest = nil
	m.users[userID] = user
	return nil
}

func (m *mockUserStore) SetActionToken(_ context.Context, userID string, kind TokenKind, digest [32]byte, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}
	user, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	d := digest
	if kind == TokenVerification {
		user.VerificationTokenDigest = &d
		user.VerificationExpiresAt = expiresAt
	} else {
		user.ResetTokenDigest = &d
		user.ResetExpiresAt = expiresAt
	}
	m.users[userID] = user
	return nil
}

// RedeemActionToken is a compare-and-swap under the store mutex, matching
// the atomicity contract real adapters provide with transactions.
func (m *mockUserStore) RedeemActionToken(_ context.Context, userID string, kind TokenKind, expected [32]byte, effect RedeemEffect) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redeemCalls++

	if m.updateErr != nil {
		return false, m.updateErr
	}
	user, ok := m.users[userID]
	if !ok {
		return false, ErrUserNotFound
	}

	stored, _ := user.ActionToken(kind)
	if stored == nil || *stored != expected {
		return false, nil
	}

	if kind == TokenVerification {
		user.VerificationTokenDigest = nil
		user.VerificationExpiresAt = time.Time{}
	} else {
		user.ResetTokenDigest = nil
		user.ResetExpiresAt = time.Time{}
	}
	if effect.MarkVerified {
		user.IsAccountVerified = true
	}
	if effect.NewPasswordHash != "" {
		user.PasswordHash = effect.NewPasswordHash
	}
	m.users[userID] = user
	return true, nil
}

func (m *mockUserStore) get(t *testing.T, userID string) User {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		t.Fatalf("user %q not in store", userID)
	}
	return user
}

func (m *mockUserStore) setBlocked(userID string, blocked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user := m.users[userID]
	user.IsBlocked = blocked
	m.users[userID] = user
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	// Minimum cost parameters keep the suite fast.
	cfg.Password.MemoryKB = 8 * 1024
	cfg.Password.Iterations = 1
	cfg.Password.Threads = 1
	cfg.Password.KeyLength = 16
	return cfg
}

func newTestEngine(t *testing.T, store UserStore, mutate ...func(*Config)) *Engine {
	t.Helper()

	cfg := testConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}

	engine, err := New().
		WithConfig(cfg).
		WithUserStore(store).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newThrottledEngine(t *testing.T, store UserStore, mutate ...func(*Config)) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	cfg := testConfig()
	cfg.LoginThrottle.Enabled = true
	cfg.LoginThrottle.MaxAttempts = 3
	cfg.LoginThrottle.Cooldown = time.Minute
	for _, fn := range mutate {
		fn(&cfg)
	}

	engine, err := New().
		WithConfig(cfg).
		WithUserStore(store).
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newTestHasher(t *testing.T) *password.Hasher {
	t.Helper()

	hasher, err := password.NewHasher(password.Params{
		MemoryKB:   8 * 1024,
		Iterations: 1,
		Threads:    1,
		SaltLength: 16,
		KeyLength:  16,
	})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return hasher
}

func registerTestUser(t *testing.T, engine *Engine, store *mockUserStore, email, pass string) string {
	t.Helper()

	user, err := engine.Register(context.Background(), RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  pass,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	if _, ok := store.users[user.ID]; !ok {
		t.Fatalf("registered user %s missing from store", user.ID)
	}
	return user.ID
}
