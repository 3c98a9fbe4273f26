package identity

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinTokenKeySize is the shortest HMAC key accepted for gateway tokens.
const MinTokenKeySize = 32

// ErrInvalidToken is returned for bearer tokens that fail verification.
var ErrInvalidToken = errors.New("invalid bearer token")

// TokenConfig configures a TokenVerifier.
type TokenConfig struct {
	// Key is the HMAC key shared with the gateway
	Key      []byte
	Issuer   string
	Audience string
}

// TokenVerifier checks HS256 tokens minted by the gateway. When one is
// installed the actor and privilege come from the token claims, never from
// the forwarded headers.
type TokenVerifier struct {
	key      []byte
	issuer   string
	audience string
}

type tokenClaims struct {
	Privilege string `json:"privilege,omitempty"`
	jwt.RegisteredClaims
}

func NewTokenVerifier(cfg TokenConfig) (*TokenVerifier, error) {
	if len(cfg.Key) < MinTokenKeySize {
		return nil, fmt.Errorf("token key must be at least %d bytes", MinTokenKeySize)
	}
	return &TokenVerifier{key: cfg.Key, issuer: cfg.Issuer, audience: cfg.Audience}, nil
}

// Verify parses raw and returns the identity it carries. Tokens must be
// signed with the shared key, carry a subject and an expiry, and match the
// configured issuer and audience.
func (v *TokenVerifier) Verify(raw string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return New(claims.Subject).WithPrivilege(ParsePrivilege(claims.Privilege)), nil
}

// Sign mints a token for actor valid for ttl. Gateways in other languages
// produce the same shape; settingsctl uses this for operator calls.
func (v *TokenVerifier) Sign(actor string, privilege Privilege, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if privilege != PrivilegeNone {
		claims.Privilege = privilege.String()
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.key)
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(auth[7:])
	return token, token != ""
}

// Middleware replaces the header-based identity middleware. Requests
// without a bearer token continue as Anonymous with no privilege; requests
// with an invalid one get 401.
func (v *TokenVerifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := New(Anonymous)
		if raw, ok := bearerToken(r); ok {
			verified, err := v.Verify(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			id = verified
		}

		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		id.WithRemoteIP(net.ParseIP(host))
		next.ServeHTTP(w, r.WithContext(Set(r.Context(), id)))
	})
}
