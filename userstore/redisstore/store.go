package redisstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/inkwellhq/authkit"
)

const defaultKeyPrefix = "ak"

// txRetries bounds the optimistic retry loop on WATCH conflicts.
const txRetries = 4

var errRedisUnavailable = errors.New("redisstore: redis unavailable")

// Store is a Redis-backed authkit.UserStore. Safe for concurrent use.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a Store over client. prefix namespaces every key; pass ""
// for the default.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) userKey(id string) string {
	return s.prefix + ":u:" + id
}

func (s *Store) emailKey(email string) string {
	return s.prefix + ":e:" + email
}

func (s *Store) digestKey(kind authkit.TokenKind, digest [32]byte) string {
	k := "r"
	if kind == authkit.TokenVerification {
		k = "v"
	}
	return s.prefix + ":t:" + k + ":" + hex.EncodeToString(digest[:])
}

// Hash field names of the user record.
const (
	fieldID            = "id"
	fieldEmail         = "email"
	fieldFirstName     = "first_name"
	fieldLastName      = "last_name"
	fieldPasswordHash  = "password_hash"
	fieldBlocked       = "blocked"
	fieldVerified      = "verified"
	fieldRefreshDigest = "refresh_digest"
	fieldVerDigest     = "ver_digest"
	fieldVerExpires    = "ver_expires"
	fieldResetDigest   = "reset_digest"
	fieldResetExpires  = "reset_expires"
	fieldCreatedAt     = "created_at"
)

func (s *Store) CreateUser(ctx context.Context, input authkit.CreateUserInput) (authkit.User, error) {
	// The email index is the uniqueness gate: SETNX either claims the
	// address or reports it taken.
	claimed, err := s.redis.SetNX(ctx, s.emailKey(input.Email), input.ID, 0).Result()
	if err != nil {
		return authkit.User{}, fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	if !claimed {
		return authkit.User{}, authkit.ErrUserExists
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err = s.redis.HSet(ctx, s.userKey(input.ID), map[string]any{
		fieldID:           input.ID,
		fieldEmail:        input.Email,
		fieldFirstName:    input.FirstName,
		fieldLastName:     input.LastName,
		fieldPasswordHash: input.PasswordHash,
		fieldBlocked:      "0",
		fieldVerified:     "0",
		fieldCreatedAt:    strconv.FormatInt(createdAt.Unix(), 10),
	}).Err()
	if err != nil {
		// Roll the index claim back so the address is not stranded.
		_ = s.redis.Del(ctx, s.emailKey(input.Email)).Err()
		return authkit.User{}, fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}

	return s.GetUserByID(ctx, input.ID)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (authkit.User, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return authkit.User{}, authkit.ErrUserNotFound
		}
		return authkit.User{}, fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (authkit.User, error) {
	fields, err := s.redis.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return authkit.User{}, fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return authkit.User{}, authkit.ErrUserNotFound
	}
	return decodeUser(fields)
}

func (s *Store) GetUserByTokenDigest(ctx context.Context, kind authkit.TokenKind, digest [32]byte) (authkit.User, error) {
	id, err := s.redis.Get(ctx, s.digestKey(kind, digest)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return authkit.User{}, authkit.ErrUserNotFound
		}
		return authkit.User{}, fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}

	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return authkit.User{}, err
	}

	// The index can outlive a replaced token; the hash fields are
	// authoritative.
	stored, _ := user.ActionToken(kind)
	if stored == nil || *stored != digest {
		return authkit.User{}, authkit.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	return s.setUserField(ctx, userID, fieldPasswordHash, newHash)
}

func (s *Store) SetRefreshTokenDigest(ctx context.Context, userID string, digest [32]byte) error {
	return s.setUserField(ctx, userID, fieldRefreshDigest, hex.EncodeToString(digest[:]))
}

func (s *Store) ClearRefreshTokenDigest(ctx context.Context, userID string) error {
	return s.setUserField(ctx, userID, fieldRefreshDigest, "")
}

// SetActionToken overwrites the digest/expiry pair for kind, retiring the
// index entry of any previously outstanding token in the same transaction.
func (s *Store) SetActionToken(ctx context.Context, userID string, kind authkit.TokenKind, digest [32]byte, expiresAt time.Time) error {
	key := s.userKey(userID)
	digestField, expiresField := tokenFields(kind)

	for i := 0; i < txRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			exists, err := tx.Exists(ctx, key).Result()
			if err != nil {
				return err
			}
			if exists == 0 {
				return authkit.ErrUserNotFound
			}

			oldHex, err := tx.HGet(ctx, key, digestField).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if old, decodeErr := decodeDigest(oldHex); decodeErr == nil && old != nil {
					pipe.Del(ctx, s.digestKey(kind, *old))
				}
				pipe.HSet(ctx, key,
					digestField, hex.EncodeToString(digest[:]),
					expiresField, strconv.FormatInt(expiresAt.Unix(), 10),
				)
				pipe.Set(ctx, s.digestKey(kind, digest), userID, time.Until(expiresAt)+time.Minute)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, authkit.ErrUserNotFound) {
			return authkit.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: %v", errRedisUnavailable, err)
		}
		return nil
	}
	return fmt.Errorf("%w: transaction retries exhausted", errRedisUnavailable)
}

// RedeemActionToken clears the digest/expiry pair and applies effect only
// if the stored digest still equals expected. Concurrent redeemers race
// on the WATCH; exactly one observes the matching digest and commits.
func (s *Store) RedeemActionToken(ctx context.Context, userID string, kind authkit.TokenKind, expected [32]byte, effect authkit.RedeemEffect) (bool, error) {
	key := s.userKey(userID)
	digestField, expiresField := tokenFields(kind)
	expectedHex := hex.EncodeToString(expected[:])

	errDigestGone := errors.New("digest gone")

	for i := 0; i < txRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			exists, err := tx.Exists(ctx, key).Result()
			if err != nil {
				return err
			}
			if exists == 0 {
				return authkit.ErrUserNotFound
			}

			current, err := tx.HGet(ctx, key, digestField).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if current != expectedHex {
				return errDigestGone
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key, digestField, "", expiresField, "")
				pipe.Del(ctx, s.digestKey(kind, expected))
				if effect.MarkVerified {
					pipe.HSet(ctx, key, fieldVerified, "1")
				}
				if effect.NewPasswordHash != "" {
					pipe.HSet(ctx, key, fieldPasswordHash, effect.NewPasswordHash)
				}
				return nil
			})
			return err
		}, key)

		switch {
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, errDigestGone):
			return false, nil
		case errors.Is(err, authkit.ErrUserNotFound):
			return false, authkit.ErrUserNotFound
		case err != nil:
			return false, fmt.Errorf("%w: %v", errRedisUnavailable, err)
		}
		return true, nil
	}
	return false, fmt.Errorf("%w: transaction retries exhausted", errRedisUnavailable)
}

func (s *Store) setUserField(ctx context.Context, userID, field, value string) error {
	key := s.userKey(userID)
	exists, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	if exists == 0 {
		return authkit.ErrUserNotFound
	}
	if err := s.redis.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	return nil
}

func tokenFields(kind authkit.TokenKind) (digestField, expiresField string) {
	if kind == authkit.TokenVerification {
		return fieldVerDigest, fieldVerExpires
	}
	return fieldResetDigest, fieldResetExpires
}

func decodeUser(fields map[string]string) (authkit.User, error) {
	user := authkit.User{
		ID:                fields[fieldID],
		Email:             fields[fieldEmail],
		FirstName:         fields[fieldFirstName],
		LastName:          fields[fieldLastName],
		PasswordHash:      fields[fieldPasswordHash],
		IsBlocked:         fields[fieldBlocked] == "1",
		IsAccountVerified: fields[fieldVerified] == "1",
	}

	var err error
	if user.RefreshTokenDigest, err = decodeDigest(fields[fieldRefreshDigest]); err != nil {
		return authkit.User{}, err
	}
	if user.VerificationTokenDigest, err = decodeDigest(fields[fieldVerDigest]); err != nil {
		return authkit.User{}, err
	}
	if user.ResetTokenDigest, err = decodeDigest(fields[fieldResetDigest]); err != nil {
		return authkit.User{}, err
	}

	user.VerificationExpiresAt = decodeUnix(fields[fieldVerExpires])
	user.ResetExpiresAt = decodeUnix(fields[fieldResetExpires])
	user.CreatedAt = decodeUnix(fields[fieldCreatedAt])
	return user, nil
}

func decodeDigest(hexDigest string) (*[32]byte, error) {
	if hexDigest == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(hexDigest)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("%w: malformed digest field", errRedisUnavailable)
	}
	var out [32]byte
	copy(out[:], raw)
	return &out, nil
}

func decodeUnix(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(value, 10, 64)
	if err != nil || sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
