package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestIssueAndValidate(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer(testSecret, time.Hour)
	userID := uuid.New()

	tok, err := issuer.Issue(userID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	got, err := issuer.Validate(tok)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got != userID {
		t.Fatalf("subject mismatch: got %s want %s", got, userID)
	}
}

func TestValidateExpired(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer(testSecret, time.Hour)

	tok, err := issuer.IssueWithTTL(uuid.New(), -time.Second)
	if err != nil {
		t.Fatalf("IssueWithTTL: %v", err)
	}

	_, err = issuer.Validate(tok)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateClockAdvance(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer(testSecret, time.Hour)
	base := time.Now()
	issuer.now = func() time.Time { return base }

	tok, err := issuer.IssueWithTTL(uuid.New(), time.Minute)
	if err != nil {
		t.Fatalf("IssueWithTTL: %v", err)
	}

	if _, err := issuer.Validate(tok); err != nil {
		t.Fatalf("token invalid before expiry: %v", err)
	}

	issuer.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := issuer.Validate(tok); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired after waiting past ttl, got %v", err)
	}
}

func TestValidateTampered(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer(testSecret, time.Hour)

	tok, err := issuer.Issue(uuid.New())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Flip one character in each segment of the token.
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", tok)
	}
	for i := range parts {
		mutated := make([]string, 3)
		copy(mutated, parts)
		seg := []byte(mutated[i])
		if seg[0] == 'A' {
			seg[0] = 'B'
		} else {
			seg[0] = 'A'
		}
		mutated[i] = string(seg)

		_, err := issuer.Validate(strings.Join(mutated, "."))
		if err == nil {
			t.Fatalf("tampered segment %d validated", i)
		}
		if errors.Is(err, ErrTokenExpired) {
			t.Fatalf("tampered segment %d reported as expired: %v", i, err)
		}
		if !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("tampered segment %d: expected ErrTokenInvalid, got %v", i, err)
		}
	}
}

func TestValidateWrongSecret(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer(testSecret, time.Hour)
	other := NewTokenIssuer([]byte("ffffffffffffffffffffffffffffffff"), time.Hour)

	tok, err := other.Issue(uuid.New())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := issuer.Validate(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign secret, got %v", err)
	}
}

func TestValidateForeignAlgorithm(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer(testSecret, time.Hour)

	// Same secret, different MAC algorithm: must be rejected.
	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign HS512: %v", err)
	}

	if _, err := issuer.Validate(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for HS512 token, got %v", err)
	}
}

func TestValidateMissingClaims(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer(testSecret, time.Hour)

	tests := []struct {
		name   string
		claims jwt.RegisteredClaims
	}{
		{
			name:   "no subject",
			claims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		},
		{
			name:   "no expiry",
			claims: jwt.RegisteredClaims{Subject: uuid.NewString()},
		},
		{
			name: "subject not a uuid",
			claims: jwt.RegisteredClaims{
				Subject:   "alice",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := jwt.NewWithClaims(signingMethod, tt.claims).SignedString(testSecret)
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			if _, err := issuer.Validate(tok); !errors.Is(err, ErrTokenInvalid) {
				t.Fatalf("expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}

func TestValidateMalformed(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer(testSecret, time.Hour)

	if _, err := issuer.Validate("not.a.jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
