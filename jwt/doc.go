// Package jwt wraps github.com/golang-jwt/jwt/v5 behind a small Manager
// that issues the access/refresh token pair. Access tokens prove identity
// without a store lookup; refresh tokens are also signed but remain
// revocable because the engine persists their digest.
package jwt
