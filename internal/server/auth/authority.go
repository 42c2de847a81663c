// Package auth issues and validates the JWT access tokens of the API and
// decides resource ownership.
//
// The Authority performs no I/O: validation depends only on the token, the
// clock and the keyring.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/labandina/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the verified contents of an access token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type Authority struct {
	keys       *Keyring
	issuer     string
	defaultTTL time.Duration
	now        func() time.Time
}

type Option func(*Authority)

// WithClock overrides time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) {
		if now != nil {
			a.now = now
		}
	}
}

func WithIssuer(issuer string) Option {
	return func(a *Authority) { a.issuer = issuer }
}

// NewAuthority returns an Authority signing with the keyring's current key.
// defaultTTL applies when IssueToken gets a non-positive ttl.
func NewAuthority(keys *Keyring, defaultTTL time.Duration, opts ...Option) *Authority {
	a := &Authority{
		keys:       keys,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Keyring exposes the key set for rotation.
func (a *Authority) Keyring() *Keyring {
	return a.keys
}

// IssueToken signs a token for identityID valid for ttl.
func (a *Authority) IssueToken(identityID string, ttl time.Duration) (string, error) {
	if identityID == "" {
		return "", fmt.Errorf("%w: empty identity", common.ErrorValidation)
	}
	if ttl <= 0 {
		ttl = a.defaultTTL
	}

	now := a.now()
	key := a.keys.Current()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: identityID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt(now, ttl)),
		},
	})
	token.Header["kid"] = key.ID

	return token.SignedString(key.Secret)
}

// expiresAt rounds now+ttl up to the whole second NumericDate keeps, so a
// fresh token never encodes an exp at or before its issue time.
func expiresAt(now time.Time, ttl time.Duration) time.Time {
	exp := now.Add(ttl)
	if t := exp.Truncate(time.Second); t.Before(exp) {
		return t.Add(time.Second)
	}
	return exp
}

// ValidateToken returns the identity a token was issued for. Failures match
// common.ErrTokenMalformed, common.ErrTokenInvalidSignature or
// common.ErrTokenExpired under errors.Is.
func (a *Authority) ValidateToken(token string) (string, error) {
	claims, err := a.Claims(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// Claims is ValidateToken returning every verified claim.
func (a *Authority) Claims(token string) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		key, err := a.keys.verificationKey(kid)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrTokenInvalidSignature, err)
		}
		return key, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user_id", common.ErrTokenMalformed)
	}

	return claims, nil
}

// classify maps jwt parser errors onto the auth failure kinds. The parser
// verifies the signature before any claim, so a forged expired token is
// reported as an invalid signature.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
	case errors.Is(err, common.ErrTokenInvalidSignature),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", common.ErrTokenInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", common.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
	}
}

// AuthorizeOwner reports whether identityID owns a resource owned by ownerID.
// Empty ids never match.
func AuthorizeOwner(identityID, ownerID string) bool {
	return identityID != "" && identityID == ownerID
}
