package auth

import (
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrNotJWT       = errors.New("token is not a JWT")
)

// Claims is the subset of an upstream access token the gateway looks at.
type Claims struct {
	Subject   string    `json:"sub,omitempty"`
	Username  string    `json:"username,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
}

// Inspector reads upstream bearer tokens. Tokens are issued and verified by the
// upstream API; the gateway only reads their expiry to ask for a new login early.
type Inspector struct {
	now    func() time.Time
	leeway time.Duration
}

// NewInspector creates an inspector that tolerates 30s of clock skew.
func NewInspector() *Inspector {
	return &Inspector{now: time.Now, leeway: 30 * time.Second}
}

// ExtractTokenFromHeader extracts token from Authorization header
func (i *Inspector) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidToken
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrInvalidToken
	}

	return parts[1], nil
}

// Inspect decodes the token's claims without verifying its signature.
// Opaque tokens return ErrNotJWT.
func (i *Inspector) Inspect(token string) (*Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, ErrNotJWT
	}

	out := &Claims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	for _, key := range []string{"username", "unique_name", "email"} {
		if v, ok := claims[key].(string); ok && v != "" {
			out.Username = v
			break
		}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, ErrInvalidToken
	}
	if exp != nil {
		out.ExpiresAt = exp.Time
		if i.now().After(exp.Time.Add(i.leeway)) {
			return out, ErrExpiredToken
		}
	}

	return out, nil
}

// Fingerprint returns a stable digest of token for use in keys and logs.
func Fingerprint(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
