package security

import (
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// SessionCookieName is the cookie carrying the admin session token.
	SessionCookieName = "admin_session"
	// DefaultSessionTTL is how long an admin session stays valid.
	DefaultSessionTTL = 24 * time.Hour
)

// SessionConfig configures a SessionAuthority.
type SessionConfig struct {
	AdminPassword string        // Plaintext secret or bcrypt hash.
	Secret        string        // HMAC signing secret.
	TTL           time.Duration // Session lifetime, DefaultSessionTTL when zero.
	SecureCookie  bool          // Sets the Secure attribute (production).
}

// SessionAuthority issues and verifies stateless admin sessions.
type SessionAuthority struct {
	password string
	secret   string
	ttl      time.Duration
	secure   bool
	now      func() time.Time
}

// NewSessionAuthority constructs a SessionAuthority.
func NewSessionAuthority(cfg SessionConfig) (*SessionAuthority, error) {
	if cfg.AdminPassword == "" {
		return nil, errors.New("security: admin password is required")
	}
	if cfg.Secret == "" {
		return nil, errors.New("security: session secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionAuthority{
		password: cfg.AdminPassword,
		secret:   cfg.Secret,
		ttl:      ttl,
		secure:   cfg.SecureCookie,
		now:      time.Now,
	}, nil
}

// SetClock overrides the time source.
func (a *SessionAuthority) SetClock(now func() time.Time) {
	if now != nil {
		a.now = now
	}
}

// VerifyAdminPassword reports whether candidate matches the configured admin secret.
func (a *SessionAuthority) VerifyAdminPassword(candidate string) bool {
	if a == nil {
		return false
	}
	return CheckPassword(a.password, candidate)
}

// CreateAdminSession mints a signed session token and writes it as the session cookie.
func (a *SessionAuthority) CreateAdminSession(w http.ResponseWriter) (string, error) {
	now := a.now()
	token, err := GenerateAdminToken(a.secret, now, a.ttl)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(a.ttl).UTC(),
		MaxAge:   int(a.ttl / time.Second),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// VerifyAdminSession reports whether the request carries a valid admin session.
// Every failure degrades to false.
func (a *SessionAuthority) VerifyAdminSession(r *http.Request) bool {
	if a == nil || r == nil {
		return false
	}
	cookie, errCookie := r.Cookie(SessionCookieName)
	if errCookie != nil || cookie.Value == "" {
		return false
	}
	return a.VerifyToken(cookie.Value)
}

// VerifyToken reports whether token is a valid, unexpired admin session token.
func (a *SessionAuthority) VerifyToken(token string) bool {
	if _, errParse := ParseAdminToken(a.secret, token, a.now()); errParse != nil {
		if errors.Is(errParse, ErrExpiredToken) {
			log.Debug("admin session expired")
		}
		return false
	}
	return true
}

// ClearAdminSession expires the session cookie.
func (a *SessionAuthority) ClearAdminSession(w http.ResponseWriter) {
	secure := a != nil && a.secure
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
