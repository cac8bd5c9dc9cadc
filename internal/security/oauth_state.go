package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OAuthStateCookie is the cookie carrying the signed OAuth state
const OAuthStateCookie = "vocaflow_oauth_state"

// StateSigner issues and verifies OAuth state values. A state is a random
// nonce plus its HMAC-SHA256, so no server-side storage is needed.
type StateSigner struct {
	secret []byte
}

// NewStateSigner creates a signer keyed by secret
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret)}
}

// NewState returns a fresh signed state value
func (s *StateSigner) NewState() string {
	nonce := uuid.New().String()
	return nonce + "." + s.sign(nonce)
}

// Verify reports whether state was produced by this signer
func (s *StateSigner) Verify(state string) bool {
	nonce, sig, ok := strings.Cut(state, ".")
	if !ok || nonce == "" || sig == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(s.sign(nonce)))
}

func (s *StateSigner) sign(nonce string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}

// IsSecureRequest determines if the request is over HTTPS, directly or
// behind a proxy that sets X-Forwarded-Proto
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		return true
	}
	return r.URL.Scheme == "https"
}

// CreateStateCookie creates the short-lived cookie holding the OAuth state.
// Secure is set from the request scheme.
func CreateStateCookie(r *http.Request, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     OAuthStateCookie,
		Value:    value,
		Path:     "/api/auth",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}

// CreateDeleteCookie expires the OAuth state cookie
func CreateDeleteCookie(r *http.Request) *http.Cookie {
	return &http.Cookie{
		Name:     OAuthStateCookie,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
	}
}
