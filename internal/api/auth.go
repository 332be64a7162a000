package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/kickoff-wellness/kickoff/internal/domain"
)

// Authenticator validates HS256 bearer tokens. A token grants access to the
// user named by its "sub" claim only.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

// NewAuthenticator returns nil when secret is empty, which disables auth.
func NewAuthenticator(secret string) *Authenticator {
	if secret == "" {
		return nil
	}
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for subject valid for ttl.
func (a *Authenticator) Issue(subject string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Subject validates tokenString and returns its subject.
func (a *Authenticator) Subject(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	if !token.Valid {
		return "", domain.ErrUnauthorized
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: subject missing", domain.ErrUnauthorized)
	}
	return sub, nil
}

// Middleware rejects requests whose token subject differs from {user}.
// Browsers cannot set headers on websocket upgrades, so the token may also
// come from the "token" query parameter.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized.Error())
			return
		}
		sub, err := a.Subject(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if sub != chi.URLParam(r, "user") {
			writeError(w, http.StatusForbidden, domain.ErrForbidden.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
