package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v, err := NewJWTVerifier(testSecret, "matchfeed")
	if err != nil {
		t.Fatal(err)
	}
	token, err := v.Issue("u1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	id, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.CandidateID != "u1" {
		t.Errorf("candidate = %q, want u1", id.CandidateID)
	}
	if id.ExpiresAt.IsZero() {
		t.Error("expected expiry to be set")
	}
}

func TestJWTVerifier_Rejects(t *testing.T) {
	v, _ := NewJWTVerifier(testSecret, "matchfeed")
	other, _ := NewJWTVerifier("another-secret-that-is-long", "matchfeed")
	foreign, _ := NewJWTVerifier(testSecret, "someone-else")

	expired := &JWTVerifier{secret: v.secret, issuer: v.issuer, now: func() time.Time { return time.Now().Add(-2 * time.Hour) }}
	expiredToken, _ := expired.Issue("u1", time.Hour)
	forged, _ := other.Issue("u1", time.Hour)
	wrongIssuer, _ := foreign.Issue("u1", time.Hour)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    "matchfeed",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	noneToken, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "matchfeed",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	noSubjectToken, _ := noSubject.SignedString([]byte(testSecret))

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not.a.token",
		"expired":      expiredToken,
		"wrong secret": forged,
		"wrong issuer": wrongIssuer,
		"alg none":     noneToken,
		"no subject":   noSubjectToken,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := v.Verify(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
				t.Errorf("err = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestNewJWTVerifier_ShortSecret(t *testing.T) {
	if _, err := NewJWTVerifier("short", "matchfeed"); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestIssue_RequiresCandidate(t *testing.T) {
	v, _ := NewJWTVerifier(testSecret, "")
	if _, err := v.Issue(" ", time.Hour); err == nil {
		t.Error("expected error for blank candidate id")
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer ":      "",
		"":             "",
	}
	for header, want := range tests {
		if got := BearerToken(header); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestStaticVerifier(t *testing.T) {
	s := StaticVerifier{"tok": "u1"}
	id, err := s.Verify(context.Background(), "tok")
	if err != nil || id.CandidateID != "u1" {
		t.Fatalf("got %+v, %v", id, err)
	}
	if _, err := s.Verify(context.Background(), "nope"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}
