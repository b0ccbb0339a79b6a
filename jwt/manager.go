package jwt

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the signature algorithm for issued tokens.
type SigningMethod string

const (
	// MethodEd25519 signs with an Ed25519 private key (recommended).
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with a symmetric HMAC key.
	MethodHS256 SigningMethod = "hs256"
)

const (
	useAccess  = "access"
	useRefresh = "refresh"
)

var (
	// ErrTokenInvalid covers any parse, signature, or expiry failure.
	ErrTokenInvalid = errors.New("jwt: invalid token")
	// ErrWrongTokenUse is returned when an access token is presented where
	// a refresh token is expected or vice versa.
	ErrWrongTokenUse = errors.New("jwt: wrong token use")
)

// Config holds the signing key material and lifetimes for both token
// classes. Access tokens are short-lived and verified statelessly; refresh
// tokens are longer-lived and additionally checked against a persisted
// digest by the caller.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// Manager issues and parses the signed session credentials. Immutable
// after construction and safe for concurrent use.
type Manager struct {
	config Config
}

// Claims is the claim set carried by both access and refresh tokens. Use
// distinguishes the two so one can never stand in for the other.
type Claims struct {
	UID string `json:"uid"`
	Use string `json:"use"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("jwt: invalid TTL configuration")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("jwt: refresh TTL must exceed access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt: invalid leeway configuration")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("jwt: hs256 requires private key")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
	default:
		return nil, errors.New("jwt: unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// CreateAccess mints a short-lived access token bound to uid.
func (m *Manager) CreateAccess(uid string) (string, error) {
	return m.create(uid, useAccess, m.config.AccessTTL)
}

// CreateRefresh mints a refresh token bound to uid. The caller is expected
// to persist a digest of the returned string for revocation checks.
func (m *Manager) CreateRefresh(uid string) (string, error) {
	return m.create(uid, useRefresh, m.config.RefreshTTL)
}

func (m *Manager) create(uid, use string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UID: uid,
		Use: use,
		RegisteredClaims: jwt.RegisteredClaims{
			// A unique ID per issuance: two tokens minted for the same
			// user in the same second must still differ, or refresh
			// rotation would re-issue the byte-identical credential.
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(m.method(), claims)
	key, err := m.signKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(key)
}

// ParseAccess verifies an access token and returns its claims.
func (m *Manager) ParseAccess(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, useAccess)
}

// ParseRefresh verifies a refresh token and returns its claims. The caller
// must still compare the token digest with the persisted one; signature
// validity alone does not prove the session is live.
func (m *Manager) ParseRefresh(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, useRefresh)
}

func (m *Manager) parse(tokenStr, use string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.verifyKey()
	})
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UID == "" {
		return nil, ErrTokenInvalid
	}
	if claims.Use != use {
		return nil, ErrWrongTokenUse
	}

	return claims, nil
}

func (m *Manager) method() jwt.SigningMethod {
	if m.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func (m *Manager) signKey() (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.PrivateKey, nil
	}
	return parseEdPrivateKey(m.config.PrivateKey)
}

func (m *Manager) verifyKey() (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.PrivateKey, nil
	}
	if len(m.config.PublicKey) > 0 {
		return parseEdPublicKey(m.config.PublicKey)
	}
	priv, err := parseEdPrivateKey(m.config.PrivateKey)
	if err != nil {
		return nil, err
	}
	return priv.Public(), nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	switch len(key) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(key), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(key), nil
	default:
		return nil, errors.New("jwt: invalid ed25519 private key size")
	}
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) != ed25519.PublicKeySize {
		return nil, errors.New("jwt: invalid ed25519 public key size")
	}
	return ed25519.PublicKey(key), nil
}
