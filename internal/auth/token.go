package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime of tokens issued without an explicit TTL.
const DefaultTokenTTL = 60 * time.Minute

// MinSigningKeyLength is the shortest HS256 key NewCodec accepts.
const MinSigningKeyLength = 32

// Claims is the identity payload carried by a token.
//
// ExpiresAt is filled in by Verify and ignored by Issue.
type Claims struct {
	Subject   string
	Name      string
	Role      Role
	ExpiresAt time.Time
}

// tokenClaims is the JWT wire form of Claims.
type tokenClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Codec signs and verifies HS256 access tokens.
//
// The key is fixed at construction. Codec holds no mutable state and is safe
// for concurrent use. Expiry has one-second precision: a token issued at t
// with TTL d is accepted while now < trunc(t+d, 1s).
type Codec struct {
	key        []byte
	defaultTTL time.Duration
	now        func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// WithDefaultTTL overrides DefaultTokenTTL for Issue.
func WithDefaultTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// NewCodec builds a Codec signing with key.
func NewCodec(key []byte, opts ...CodecOption) (*Codec, error) {
	if len(key) < MinSigningKeyLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes", MinSigningKeyLength)
	}

	c := &Codec{
		key:        append([]byte(nil), key...),
		defaultTTL: DefaultTokenTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DefaultTTL returns the lifetime Issue applies.
func (c *Codec) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Issue signs claims with the default TTL and returns the token and its expiry.
func (c *Codec) Issue(claims Claims) (string, time.Time, error) {
	return c.IssueWithTTL(claims, c.defaultTTL)
}

// IssueWithTTL signs claims expiring ttl from now. A non-positive ttl uses the default.
func (c *Codec) IssueWithTTL(claims Claims, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.now()
	exp := jwt.NewNumericDate(now.Add(ttl))

	wire := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: exp,
			ID:        uuid.NewString(),
		},
		Name: claims.Name,
		Role: claims.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, exp.Time, nil
}

// Verify checks the signature, algorithm and expiry of token and returns its claims.
//
// Errors wrap ErrTokenExpired when the token is past exp and ErrTokenInvalid
// for everything else (bad signature, malformed, wrong algorithm, missing or
// unknown claims).
func (c *Codec) Verify(token string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(_ *jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
		// Reject non-canonical base64 so padding bits cannot be altered.
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return Claims{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	wire, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrTokenInvalid
	}
	if wire.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if !wire.Role.Valid() {
		return Claims{}, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, wire.Role)
	}

	return Claims{
		Subject:   wire.Subject,
		Name:      wire.Name,
		Role:      wire.Role,
		ExpiresAt: wire.ExpiresAt.Time,
	}, nil
}
