package authkit

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are embedded in every session token. Validity is purely
// cryptographic plus the expiry check; tokens are never stored server-side.
type SessionClaims struct {
	UserID    uint   `json:"user_id"`
	UserEmail string `json:"user_email"`
	UserRole  string `json:"user_role"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HS256 session tokens.
type TokenIssuer struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	clock      Clock
}

// DefaultSessionTTL applies when no TTL is configured.
const DefaultSessionTTL = 60 * time.Minute

// NewTokenIssuer constructs an issuer. A zero ttl falls back to
// DefaultSessionTTL; a nil clock falls back to the system clock.
func NewTokenIssuer(signingKey []byte, issuer string, ttl time.Duration, clock Clock) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	return &TokenIssuer{
		signingKey: signingKey,
		issuer:     issuer,
		ttl:        ttl,
		clock:      clock,
	}
}

// Issue signs a session token carrying the user's id, email, and role with
// an absolute expiry at now + ttl.
func (tokenIssuer *TokenIssuer) Issue(user *User) (string, time.Time, error) {
	if user == nil || user.ID == 0 {
		return "", time.Time{}, fmt.Errorf("token.issue: subject must be non-empty")
	}
	issuedAt := tokenIssuer.clock.Now().UTC()
	expiresAt := issuedAt.Add(tokenIssuer.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		UserID:    user.ID,
		UserEmail: user.Email,
		UserRole:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer.issuer,
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, signErr := token.SignedString(tokenIssuer.signingKey)
	if signErr != nil {
		return "", time.Time{}, fmt.Errorf("token.issue: %w", signErr)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a session token. Expired tokens fail with
// ErrExpiredToken; malformed tokens, wrong algorithms, and bad signatures
// fail with ErrInvalidToken. No partial claims are returned on failure.
func (tokenIssuer *TokenIssuer) Verify(tokenText string) (*SessionClaims, error) {
	parsedToken, parseErr := jwt.ParseWithClaims(tokenText, &SessionClaims{}, func(parsed *jwt.Token) (interface{}, error) {
		return tokenIssuer.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return tokenIssuer.clock.Now() }),
	)
	if parseErr != nil {
		if errors.Is(parseErr, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token.verify: %w", ErrExpiredToken)
		}
		return nil, fmt.Errorf("token.verify: %w", ErrInvalidToken)
	}
	claims, ok := parsedToken.Claims.(*SessionClaims)
	if !ok || !parsedToken.Valid {
		return nil, fmt.Errorf("token.verify: %w", ErrInvalidToken)
	}
	if tokenIssuer.issuer != "" && claims.Issuer != tokenIssuer.issuer {
		return nil, fmt.Errorf("token.verify: %w", ErrInvalidToken)
	}
	return claims, nil
}
