package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// bearerScheme is the only accepted Authorization scheme.
const bearerScheme = "bearer"

// Resolver recovers a Principal from a bearer token.
//
// It trusts the token alone and never consults storage, so the role it
// reports is the role at issue time.
type Resolver struct {
	codec *Codec
}

// NewResolver returns a Resolver verifying tokens with codec.
func NewResolver(codec *Codec) *Resolver {
	return &Resolver{codec: codec}
}

// BearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively. A missing header, another scheme,
// or an empty token is ErrUnauthenticated.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", ErrUnauthenticated)
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", fmt.Errorf("%w: authorization scheme must be Bearer", ErrUnauthenticated)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: empty bearer token", ErrUnauthenticated)
	}
	return token, nil
}

// Resolve verifies token and builds the Principal from its subject, name and
// role claims. Any verification failure is ErrUnauthenticated wrapping the cause.
func (r *Resolver) Resolve(token string) (Principal, error) {
	claims, err := r.codec.Verify(token)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	return Principal{
		SubjectID:   claims.Subject,
		DisplayName: claims.Name,
		Role:        claims.Role,
	}, nil
}

// ResolveRequest resolves the bearer token in the request's Authorization header.
func (r *Resolver) ResolveRequest(req *http.Request) (Principal, error) {
	token, err := BearerToken(req.Header.Get("Authorization"))
	if err != nil {
		return Principal{}, err
	}
	return r.Resolve(token)
}
