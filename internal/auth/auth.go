// Package auth verifies the identity tokens that bind a connection to a candidate.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned for missing, malformed, expired or forged tokens.
var ErrUnauthorized = errors.New("unauthorized")

// minSecretLength is the shortest accepted HMAC secret.
const minSecretLength = 16

// Identity is the verified caller.
type Identity struct {
	CandidateID string
	ExpiresAt   time.Time
}

// Verifier turns an opaque token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Claims are the token claims. The subject is the candidate id.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTVerifier issues and verifies HS256 tokens.
type JWTVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTVerifier returns a verifier for tokens signed with secret and issued by issuer.
func NewJWTVerifier(secret, issuer string) (*JWTVerifier, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", minSecretLength)
	}
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Issue signs a token for candidateID valid for ttl.
func (v *JWTVerifier) Issue(candidateID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(candidateID) == "" {
		return "", errors.New("candidate id is required")
	}
	now := v.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   candidateID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, algorithm, issuer and expiry of token.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrUnauthorized)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	id := &Identity{CandidateID: claims.Subject}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// StaticVerifier accepts a fixed token-to-candidate table. It is meant for tests and local runs.
type StaticVerifier map[string]string

// Verify resolves token through the table.
func (s StaticVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if id, ok := s[token]; ok && token != "" {
		return &Identity{CandidateID: id}, nil
	}
	return nil, ErrUnauthorized
}
