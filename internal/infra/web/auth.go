package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pals-portal/internal/domain/model"
	"pals-portal/internal/infra/security"
)

var errNoToken = errors.New("missing token")

// ===== Session/JWT primitives =====

type AuthConfig struct {
	HMACSecret   []byte
	CookieName   string
	CookieDomain string
	SecureCookie bool
	TTL          time.Duration
}

// AuthManager keeps the admin session in an HS256 cookie. The backend's
// bearer token rides inside the claims, sealed with the token cipher.
type AuthManager struct {
	cfg    AuthConfig
	cipher *security.TokenCipher
	now    func() time.Time
}

func NewAuthManager(secret string, cipher *security.TokenCipher, secure bool, domain string, ttl time.Duration) *AuthManager {
	return &AuthManager{
		cfg: AuthConfig{
			HMACSecret:   []byte(secret),
			CookieName:   "pals_admin",
			CookieDomain: domain,
			SecureCookie: secure,
			TTL:          ttl,
		},
		cipher: cipher,
		now:    time.Now,
	}
}

type AdminClaims struct {
	Name        string `json:"name,omitempty"`
	Role        string `json:"role,omitempty"`
	SealedToken string `json:"tok"`
	jwt.RegisteredClaims
}

// Mint issues the session cookie for a backend login.
func (a *AuthManager) Mint(w http.ResponseWriter, sess *model.AdminSession) (string, error) {
	if sess == nil || sess.Token == "" {
		return "", errNoToken
	}
	sealed, err := a.cipher.Seal(sess.Token)
	if err != nil {
		return "", err
	}
	now := a.now()
	claims := AdminClaims{
		Name:        sess.Name,
		Role:        sess.Role,
		SealedToken: sealed,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TTL)),
			Subject:   sess.Email,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.cfg.HMACSecret)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    signed,
		Path:     "/admin",
		Domain:   a.cfg.CookieDomain,
		MaxAge:   int(a.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	return signed, nil
}

func (a *AuthManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    "",
		Path:     "/admin",
		Domain:   a.cfg.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*AdminClaims, error) {
	// Authorization: Bearer <jwt>
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
			return a.parse(strings.TrimSpace(hdr[7:]))
		}
	}
	if c, err := r.Cookie(a.cfg.CookieName); err == nil {
		return a.parse(c.Value)
	}
	return nil, errNoToken
}

func (a *AuthManager) parse(tok string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.cfg.HMACSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// BackendToken recovers the bearer token sealed into the claims.
func (a *AuthManager) BackendToken(c *AdminClaims) (string, error) {
	return a.cipher.Open(c.SealedToken)
}

type adminKey struct{}

// RequireAdmin sends visitors without a valid session to the login page.
func (a *AuthManager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.ParseFromRequest(r)
		if err != nil {
			a.Clear(w)
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminKey{}, claims)))
	})
}

func adminClaims(r *http.Request) *AdminClaims {
	c, _ := r.Context().Value(adminKey{}).(*AdminClaims)
	return c
}
