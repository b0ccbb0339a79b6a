package authkit

import (
	"net/http"
	"strings"
	"time"
)

// SessionCookies renders the access/refresh pair as HTTP-only, Secure
// cookies per the configured attributes. Max-Age follows each token's
// TTL so the browser drops the cookie when the token would expire anyway.
func (e *Engine) SessionCookies(tokens SessionTokens) []*http.Cookie {
	cfg := e.config.Cookies
	return []*http.Cookie{
		sessionCookie(cfg, cfg.AccessName, tokens.Access, e.config.JWT.AccessTTL),
		sessionCookie(cfg, cfg.RefreshName, tokens.Refresh, e.config.JWT.RefreshTTL),
	}
}

// ClearSessionCookies renders expired copies of both session cookies,
// instructing the browser to discard them. Used on logout.
func (e *Engine) ClearSessionCookies() []*http.Cookie {
	cfg := e.config.Cookies
	access := sessionCookie(cfg, cfg.AccessName, "", 0)
	refresh := sessionCookie(cfg, cfg.RefreshName, "", 0)
	access.MaxAge = -1
	refresh.MaxAge = -1
	return []*http.Cookie{access, refresh}
}

// TokenFromRequest extracts the bearer access token from a request: the
// Authorization header wins, the access cookie is the fallback. Returns
// the empty string when neither is present.
func (e *Engine) TokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if tok, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	if c, err := r.Cookie(e.config.Cookies.AccessName); err == nil {
		return c.Value
	}
	return ""
}

// RefreshTokenFromRequest extracts the refresh token from the refresh
// cookie, or "" when absent.
func (e *Engine) RefreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(e.config.Cookies.RefreshName); err == nil {
		return c.Value
	}
	return ""
}

func sessionCookie(cfg CookieConfig, name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		HttpOnly: true,
		Secure:   true,
		SameSite: cfg.SameSite,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl / time.Second)
	}
	return c
}
