package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// signingMethod is the only accepted token algorithm. Validation pins it
// explicitly so tokens signed with any other method are rejected.
var signingMethod = jwt.SigningMethodHS256

// TokenIssuer creates and verifies signed, time-limited bearer tokens.
// Tokens are self-contained; validity is a pure function of signature,
// expiry, and current time. There is no server-side revocation.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns a TokenIssuer signing with secret and using
// defaultTTL for tokens issued without an explicit lifetime.
func NewTokenIssuer(secret []byte, defaultTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: defaultTTL, now: time.Now}
}

// Issue creates a token for userID with the issuer's default TTL.
func (ti *TokenIssuer) Issue(userID uuid.UUID) (string, error) {
	return ti.IssueWithTTL(userID, ti.ttl)
}

// IssueWithTTL creates a token for userID expiring after ttl.
func (ti *TokenIssuer) IssueWithTTL(userID uuid.UUID, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(ti.now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(ti.now()),
	}

	tok, err := jwt.NewWithClaims(signingMethod, claims).SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tok, nil
}

// Validate verifies signature and expiry and returns the subject user id.
// Expired tokens fail with ErrTokenExpired; everything else that is wrong
// with a token (bad signature, foreign algorithm, malformed encoding,
// missing claims) fails with ErrTokenInvalid.
func (ti *TokenIssuer) Validate(tokenString string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}

	tok, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return ti.secret, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return ti.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrTokenExpired
		}
		return uuid.Nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !tok.Valid || claims.Subject == "" {
		return uuid.Nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed subject", ErrTokenInvalid)
	}
	return userID, nil
}
