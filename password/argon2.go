package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB   uint32 = 8 * 1024
	minIterations uint32 = 1
	minThreads    uint8  = 1
	minSaltLength uint32 = 16
	minKeyLength  uint32 = 16
	algorithmID          = "argon2id"
)

// Params hold the Argon2id cost parameters used for new hashes. Stored
// hashes carry their own parameters, so raising these later is safe:
// existing digests keep verifying and can be re-hashed on next login.
type Params struct {
	MemoryKB   uint32
	Iterations uint32
	Threads    uint8
	SaltLength uint32
	KeyLength  uint32
}

// Hasher produces and verifies PHC-encoded Argon2id digests. A Hasher is
// immutable after construction and safe for concurrent use.
type Hasher struct {
	params Params
}

type decodedHash struct {
	memoryKB   uint32
	iterations uint32
	threads    uint8
	salt       []byte
	key        []byte
}

// NewHasher validates params and returns a Hasher. Parameters below the
// package minimums are rejected rather than silently raised.
func NewHasher(p Params) (*Hasher, error) {
	switch {
	case p.MemoryKB < minMemoryKB:
		return nil, errors.New("password: memory must be >= 8192 KB")
	case p.Iterations < minIterations:
		return nil, errors.New("password: iterations must be >= 1")
	case p.Threads < minThreads:
		return nil, errors.New("password: threads must be >= 1")
	case p.SaltLength < minSaltLength:
		return nil, errors.New("password: salt length must be >= 16")
	case p.KeyLength < minKeyLength:
		return nil, errors.New("password: key length must be >= 16")
	}

	return &Hasher{params: p}, nil
}

// Hash derives an Argon2id digest of plaintext under a fresh random salt
// and returns it in PHC string form. The plaintext is used byte-for-byte
// as provided; no Unicode normalization is applied.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(plaintext),
		salt,
		h.params.Iterations,
		h.params.MemoryKB,
		h.params.Threads,
		h.params.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.params.MemoryKB,
		h.params.Iterations,
		h.params.Threads,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify re-derives the key from plaintext using the parameters embedded
// in encoded and compares in constant time. A well-formed digest that does
// not match yields (false, nil); only a corrupt digest yields an error.
func (h *Hasher) Verify(plaintext, encoded string) (bool, error) {
	parsed, err := decode(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(plaintext),
		parsed.salt,
		parsed.iterations,
		parsed.memoryKB,
		parsed.threads,
		uint32(len(parsed.key)),
	)

	return subtle.ConstantTimeCompare(computed, parsed.key) == 1, nil
}

// NeedsRehash reports whether encoded was produced under weaker parameters
// than the Hasher's current ones.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	parsed, err := decode(encoded)
	if err != nil {
		return false, err
	}

	if h.params.MemoryKB > parsed.memoryKB {
		return true, nil
	}
	if h.params.Iterations > parsed.iterations {
		return true, nil
	}
	if h.params.Threads > parsed.threads {
		return true, nil
	}
	if h.params.KeyLength != uint32(len(parsed.key)) {
		return true, nil
	}

	return false, nil
}

func decode(encoded string) (*decodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("password: invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("password: unsupported algorithm")
	}

	if !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("password: missing argon2 version")
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil {
		return nil, errors.New("password: invalid argon2 version")
	}
	if version != argon2.Version {
		return nil, errors.New("password: unsupported argon2 version")
	}

	out := &decodedHash{}
	pairs := strings.Split(parts[3], ",")
	if len(pairs) != 3 {
		return nil, errors.New("password: invalid parameter format")
	}
	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, errors.New("password: invalid parameter entry")
		}
		switch kv[0] {
		case "m":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil || v < uint64(minMemoryKB) {
				return nil, errors.New("password: invalid memory parameter")
			}
			out.memoryKB = uint32(v)
		case "t":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil || v < uint64(minIterations) {
				return nil, errors.New("password: invalid time parameter")
			}
			out.iterations = uint32(v)
		case "p":
			v, err := strconv.ParseUint(kv[1], 10, 8)
			if err != nil || v < uint64(minThreads) {
				return nil, errors.New("password: invalid parallelism parameter")
			}
			out.threads = uint8(v)
		default:
			return nil, errors.New("password: unsupported parameter")
		}
	}
	if out.memoryKB == 0 || out.iterations == 0 || out.threads == 0 {
		return nil, errors.New("password: missing parameters")
	}

	if out.salt, err = base64.StdEncoding.DecodeString(parts[4]); err != nil {
		return nil, errors.New("password: invalid salt encoding")
	}
	if len(out.salt) < int(minSaltLength) {
		return nil, errors.New("password: invalid salt length")
	}
	if out.key, err = base64.StdEncoding.DecodeString(parts[5]); err != nil {
		return nil, errors.New("password: invalid hash encoding")
	}
	if len(out.key) == 0 {
		return nil, errors.New("password: invalid hash length")
	}

	return out, nil
}
