package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestAuthority(t *testing.T, now *time.Time) *SessionAuthority {
	t.Helper()
	authority, err := NewSessionAuthority(SessionConfig{
		AdminPassword: "correct horse",
		Secret:        testSecret,
		SecureCookie:  true,
	})
	if err != nil {
		t.Fatalf("new session authority: %v", err)
	}
	authority.SetClock(func() time.Time { return *now })
	return authority
}

func sessionCookie(t *testing.T, recorder *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == SessionCookieName {
			return cookie
		}
	}
	t.Fatalf("session cookie not set")
	return nil
}

func TestNewSessionAuthorityRequiresSecrets(t *testing.T) {
	if _, err := NewSessionAuthority(SessionConfig{Secret: testSecret}); err == nil {
		t.Fatalf("expected error for missing admin password")
	}
	if _, err := NewSessionAuthority(SessionConfig{AdminPassword: "pw"}); err == nil {
		t.Fatalf("expected error for missing secret")
	}
}

func TestVerifyAdminPassword(t *testing.T) {
	now := time.Now()
	authority := newTestAuthority(t, &now)

	if !authority.VerifyAdminPassword("correct horse") {
		t.Fatalf("expected correct password to verify")
	}
	for _, candidate := range []string{"", "correct", "correct horse ", "wrong"} {
		if authority.VerifyAdminPassword(candidate) {
			t.Fatalf("expected %q to be rejected", candidate)
		}
	}
}

func TestVerifyAdminPasswordBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(string(hash), "s3cret") {
		t.Fatalf("expected bcrypt hash to verify")
	}
	if CheckPassword(string(hash), "other") {
		t.Fatalf("expected wrong password to fail against bcrypt hash")
	}
}

func TestCreateAdminSessionSetsCookie(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	authority := newTestAuthority(t, &now)

	recorder := httptest.NewRecorder()
	token, err := authority.CreateAdminSession(recorder)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	cookie := sessionCookie(t, recorder)
	if cookie.Value != token {
		t.Fatalf("cookie value does not match token")
	}
	if !cookie.HttpOnly || !cookie.Secure {
		t.Fatalf("expected HttpOnly and Secure cookie, got %+v", cookie)
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected SameSite=Lax, got %v", cookie.SameSite)
	}
	if cookie.MaxAge != int((24 * time.Hour).Seconds()) {
		t.Fatalf("unexpected max age %d", cookie.MaxAge)
	}

	claims, errParse := ParseAdminToken(testSecret, token, now)
	if errParse != nil {
		t.Fatalf("parse token: %v", errParse)
	}
	if !claims.Admin {
		t.Fatalf("expected admin claim")
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != 24*time.Hour {
		t.Fatalf("expected 24h expiry, got %s", got)
	}
}

func TestVerifyAdminSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	authority := newTestAuthority(t, &now)

	recorder := httptest.NewRecorder()
	if _, err := authority.CreateAdminSession(recorder); err != nil {
		t.Fatalf("create session: %v", err)
	}
	cookie := sessionCookie(t, recorder)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/session", nil)
	req.AddCookie(cookie)
	if !authority.VerifyAdminSession(req) {
		t.Fatalf("expected fresh session to verify")
	}

	now = now.Add(23*time.Hour + 59*time.Minute)
	if !authority.VerifyAdminSession(req) {
		t.Fatalf("expected session to verify just before expiry")
	}

	now = now.Add(2 * time.Minute)
	if authority.VerifyAdminSession(req) {
		t.Fatalf("expected expired session to be rejected")
	}
}

func TestVerifyAdminSessionRejectsBadTokens(t *testing.T) {
	now := time.Now().UTC()
	authority := newTestAuthority(t, &now)

	if authority.VerifyAdminSession(httptest.NewRequest(http.MethodGet, "/", nil)) {
		t.Fatalf("expected missing cookie to be rejected")
	}

	foreign, err := GenerateAdminToken("another-secret-another-secret-xx", now, time.Hour)
	if err != nil {
		t.Fatalf("generate foreign token: %v", err)
	}
	notAdmin, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		Admin: false,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign non-admin token: %v", err)
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, AdminClaims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	for name, value := range map[string]string{
		"garbage":   "not-a-jwt",
		"foreign":   foreign,
		"not admin": notAdmin,
		"alg none":  unsigned,
		"truncated": foreign[:strings.LastIndex(foreign, ".")],
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: value})
		if authority.VerifyAdminSession(req) {
			t.Fatalf("expected %s token to be rejected", name)
		}
	}
}

func TestClearAdminSessionExpiresCookie(t *testing.T) {
	now := time.Now()
	authority := newTestAuthority(t, &now)

	recorder := httptest.NewRecorder()
	authority.ClearAdminSession(recorder)

	cookie := sessionCookie(t, recorder)
	if cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cookie)
	}
}

func TestRequireAdmin(t *testing.T) {
	if err := RequireAdmin(context.Background()); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := RequireAdmin(WithAdmin(context.Background())); err != nil {
		t.Fatalf("expected admin context to pass, got %v", err)
	}
}
