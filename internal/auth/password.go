package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"runtime"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Secret length bounds, counted in characters.
const (
	MinSecretLength = 6
	MaxSecretLength = 50
)

// Argon2id defaults (OWASP recommendation for interactive logins).
const (
	defaultArgonMemory      = 64 * 1024 // KiB
	defaultArgonIterations  = 3
	defaultArgonParallelism = 2
	argonKeyLen             = 32
	argonSaltLen            = 16
)

// Verification refuses artifacts whose cost parameters exceed these bounds,
// so a planted hash cannot pin a CPU or exhaust memory.
const (
	maxArgonMemory      = 512 * 1024 // KiB
	maxArgonIterations  = 16
	maxArgonParallelism = 16
	minArgonKeyLen      = 16
	maxArgonKeyLen      = 128
)

// HasherConfig tunes the Argon2id cost and the hashing concurrency budget.
// Zero fields fall back to defaults.
type HasherConfig struct {
	Memory        uint32 // KiB
	Iterations    uint32
	Parallelism   uint8
	MaxConcurrent int
}

// Hasher hashes and verifies credentials.
//
// Hashing is deliberately slow. At most MaxConcurrent hash or verify
// operations run at once; further callers wait for a slot or give up when
// their context is cancelled. Safe for concurrent use.
type Hasher struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	slots       *semaphore.Weighted
}

// NewHasher builds a Hasher from cfg.
func NewHasher(cfg HasherConfig) *Hasher {
	if cfg.Memory == 0 {
		cfg.Memory = defaultArgonMemory
	}
	if cfg.Iterations == 0 {
		cfg.Iterations = defaultArgonIterations
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = defaultArgonParallelism
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = runtime.NumCPU()
	}

	return &Hasher{
		memory:      cfg.Memory,
		iterations:  cfg.Iterations,
		parallelism: cfg.Parallelism,
		slots:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// ValidateSecret enforces the accepted credential length.
func ValidateSecret(secret string) error {
	n := utf8.RuneCountInString(secret)
	if n < MinSecretLength || n > MaxSecretLength {
		return ErrInvalidSecret
	}
	return nil
}

// truncateSecret keeps at most MaxSecretLength characters.
// Callers validate length first; this is the last line of defence.
func truncateSecret(secret string) string {
	if utf8.RuneCountInString(secret) <= MaxSecretLength {
		return secret
	}
	runes := []rune(secret)
	return string(runes[:MaxSecretLength])
}

// Hash returns an Argon2id PHC string for secret with a fresh random salt:
// $argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
func (h *Hasher) Hash(ctx context.Context, secret string) (string, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for hash slot: %w", err)
	}
	defer h.slots.Release(1)

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(truncateSecret(secret)), salt, h.iterations, h.memory, h.parallelism, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory, h.iterations, h.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether secret matches artifact.
//
// It never returns an error: malformed or unsupported artifacts, parameters
// out of bounds, and a cancelled wait for a hashing slot all yield false.
func (h *Hasher) Verify(ctx context.Context, secret, artifact string) bool {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.slots.Release(1)

	secret = truncateSecret(secret)

	if isBcrypt(artifact) {
		return bcrypt.CompareHashAndPassword([]byte(artifact), []byte(secret)) == nil
	}

	salt, want, params, err := decodePHC(artifact)
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(secret), salt, params.time, params.memory, params.threads, uint32(len(want))) //nolint:gosec // G115: bounded by maxArgonKeyLen
	return subtle.ConstantTimeCompare(want, got) == 1
}

// NeedsRehash reports whether a stored artifact should be replaced after the
// next successful login: legacy bcrypt, or Argon2id weaker than configured.
func (h *Hasher) NeedsRehash(artifact string) bool {
	if isBcrypt(artifact) {
		return true
	}
	_, _, params, err := decodePHC(artifact)
	if err != nil {
		return false
	}
	return params.memory < h.memory || params.time < h.iterations
}

func isBcrypt(artifact string) bool {
	return strings.HasPrefix(artifact, "$2a$") ||
		strings.HasPrefix(artifact, "$2b$") ||
		strings.HasPrefix(artifact, "$2y$")
}

type argonParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

// decodePHC parses and bounds-checks an Argon2id PHC string.
func decodePHC(encoded string) (salt, hash []byte, params argonParams, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 { //nolint:mnd // PHC format has exactly 6 $-delimited parts
		return nil, nil, params, fmt.Errorf("invalid PHC hash format")
	}

	if parts[1] != "argon2id" {
		return nil, nil, params, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return nil, nil, params, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, params, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return nil, nil, params, fmt.Errorf("parsing parameters: %w", err)
	}
	if params.memory == 0 || params.memory > maxArgonMemory ||
		params.time == 0 || params.time > maxArgonIterations ||
		params.threads == 0 || params.threads > maxArgonParallelism {
		return nil, nil, params, fmt.Errorf("argon2 parameters out of bounds")
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding salt: %w", err)
	}
	if len(salt) == 0 {
		return nil, nil, params, fmt.Errorf("empty salt")
	}

	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding hash: %w", err)
	}
	if len(hash) < minArgonKeyLen || len(hash) > maxArgonKeyLen {
		return nil, nil, params, fmt.Errorf("argon2 key length out of bounds")
	}

	return salt, hash, params, nil
}
