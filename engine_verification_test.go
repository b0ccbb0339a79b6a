package authkit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inkwellhq/authkit/internal/token"
)

func TestVerificationFlow(t *testing.T) {
	store := newMockUserStore()
	engine := newTestEngine(t, store)
	id := registerTestUser(t, engine, store, "ada@example.com", "correct-horse")

	plaintext, err := engine.RequestVerification(context.Background(), id)
	if err != nil {
		t.Fatalf("request verification: %v", err)
	}
	if plaintext == "" {
		t.Fatal("expected plaintext token")
	}

	stored := store.get(t, id)
	if stored.VerificationTokenDigest == nil {
		t.Fatal("expected digest persisted")
	}
	if want := token.Compute(plaintext); *stored.VerificationTokenDigest != [32]byte(want) {
		t.Fatal("stored digest does not match issued token")
	}
	if until := time.Until(stored.VerificationExpiresAt); until < 29*time.Minute || until > 31*time.Minute {
		t.Fatalf("expected ~30m expiry window, got %v", until)
	}

	identity, err := engine.ConfirmVerification(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("confirm verification: %v", err)
	}
	if identity.UserID != id || !identity.Verified {
		t.Fatalf("unexpected identity %+v", identity)
	}

	stored = store.get(t, id)
	if !stored.IsAccountVerified {
		t.Fatal("expected account marked verified")
	}
	if stored.VerificationTokenDigest != nil || !stored.VerificationExpiresAt.IsZero() {
		t.Fatal("expected token pair cleared on redemption")
	}
}

func TestVerificationTokenSingleUse(t *testing.T) {
	store := newMockUserStore()
	engine := newTestEngine(t, store)
	id := registerTestUser(t, engine, store, "ada@example.com", "correct-horse")

	plaintext, err := engine.RequestVerification(context.Background(), id)
	if err != nil {
		t.Fatalf("request verification: %v", err)
	}
	if _, err := engine.ConfirmVerification(context.Background(), plaintext); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	if _, err := engine.ConfirmVerification(context.Background(), plaintext); !errors.Is(err, ErrTokenInvalidOrExpired) {
		t.Fatalf("second confirm: expected ErrTokenInvalidOrExpired, got %v", err)
	}
}

func TestVerificationReissueInvalidatesPrior(t *testing.T) {
	store := newMockUserStore()
	engine := newTestEngine(t, store)
	id := registerTestUser(t, engine, store, "ada@example.com", "correct-horse")

	first, err := engine.RequestVerification(context.Background(), id)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	second, err := engine.RequestVerification(context.Background(), id)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct tokens")
	}

	if _, err := engine.ConfirmVerification(context.Background(), first); !errors.Is(err, ErrTokenInvalidOrExpired) {
		t.Fatalf("superseded token: expected ErrTokenInvalidOrExpired, got %v", err)
	}
	if _, err := engine.ConfirmVerification(context.Background(), second); err != nil {
		t.Fatalf("current token: %v", err)
	}
}

func TestVerificationTokenExpires(t *testing.T) {
	store := newMockUserStore()
	engine := newTestEngine(t, store)
	id := registerTestUser(t, engine, store, "ada@example.com", "correct-horse")

	plaintext, err := engine.RequestVerification(context.Background(), id)
	if err != nil {
		t.Fatalf("request verification: %v", err)
	}

	// Push the stored expiry into the past.
	if err := store.SetActionToken(context.Background(), id, TokenVerification,
		[32]byte(token.Compute(plaintext)), time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("backdate expiry: %v", err)
	}

	if _, err := engine.ConfirmVerification(context.Background(), plaintext); !errors.Is(err, ErrTokenInvalidOrExpired) {
		t.Fatalf("expected ErrTokenInvalidOrExpired, got %v", err)
	}

	// The expired match was cleared, not left behind.
	stored := store.get(t, id)
	if stored.VerificationTokenDigest != nil {
		t.Fatal("expected expired token cleared on contact")
	}
	if stored.IsAccountVerified {
		t.Fatal("expired token must not verify the account")
	}
}

func TestVerificationUnknownToken(t *testing.T) {
	store := newMockUserStore()
	engine := newTestEngine(t, store)
	registerTestUser(t, engine, store, "ada@example.com", "correct-horse")

	for _, tok := range []string{"", "bogus", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"} {
		if _, err := engine.ConfirmVerification(context.Background(), tok); !errors.Is(err, ErrTokenInvalidOrExpired) {
			t.Fatalf("token %q: expected ErrTokenInvalidOrExpired, got %v", tok, err)
		}
	}
}

func TestVerificationRequestForVerifiedAccount(t *testing.T) {
	store := newMockUserStore()
	engine := newTestEngine(t, store)
	id := registerTestUser(t, engine, store, "ada@example.com", "correct-horse")

	plaintext, err := engine.RequestVerification(context.Background(), id)
	if err != nil {
		t.Fatalf("request verification: %v", err)
	}
	if _, err := engine.ConfirmVerification(context.Background(), plaintext); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, err := engine.RequestVerification(context.Background(), id); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}
