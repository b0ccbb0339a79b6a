package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// Opaque tokens carry 32 bytes (256 bits) of entropy. Only the SHA-256
// digest of a token is ever persisted; the plaintext exists transiently in
// memory and in the message delivered to the user.
const plaintextSize = 32

// Digest is the fixed-size one-way transform of a plaintext token, used
// as the storage and lookup key. Tokens are high-entropy, so a fast
// cryptographic hash is sufficient; the slow password hasher is not
// involved.
type Digest [sha256.Size]byte

// New draws a fresh token from crypto/rand and returns the base64url
// plaintext together with its digest.
func New() (string, Digest, error) {
	var raw [plaintextSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", Digest{}, err
	}

	plaintext := base64.RawURLEncoding.EncodeToString(raw[:])
	return plaintext, Compute(plaintext), nil
}

// Compute digests a presented plaintext token. Deterministic: redeeming
// code recomputes the digest and looks the record up by it.
func Compute(plaintext string) Digest {
	return Digest(sha256.Sum256([]byte(plaintext)))
}

// Hex returns the lowercase hex form of the digest, suitable as a store
// index key.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// ParseHex decodes a digest previously rendered with Hex.
func ParseHex(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, err
	}
	if len(raw) != len(d) {
		return d, errors.New("token: invalid digest size")
	}
	copy(d[:], raw)
	return d, nil
}
