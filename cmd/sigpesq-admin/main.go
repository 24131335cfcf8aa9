// Command sigpesq-admin performs offline account maintenance.
//
// Usage:
//
//	sigpesq-admin hash                  print an argon2id hash for a password read from the terminal
//	sigpesq-admin set-password <email>  replace a participant's password in the configured database
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/nerrad567/sigpesq-core/internal/auth"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/config"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/database"
	"github.com/nerrad567/sigpesq-core/internal/participant"
)

const defaultConfigPath = "configs/config.yaml"

// readPassword is swapped out in tests.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	hasher := newHasher(cfg.Security.Password)

	switch args[0] {
	case "hash":
		return runHash(ctx, hasher, out)
	case "set-password":
		if len(args) != 2 {
			return errUsage
		}
		return runSetPassword(ctx, cfg.Database, hasher, args[1], out)
	default:
		return errUsage
	}
}

var errUsage = errors.New("usage: sigpesq-admin hash | set-password <email>")

func newHasher(cfg config.PasswordConfig) *auth.Hasher {
	return auth.NewHasher(auth.HasherConfig{
		Memory:        cfg.Memory,
		Iterations:    cfg.Iterations,
		Parallelism:   cfg.Parallelism,
		MaxConcurrent: cfg.MaxConcurrent,
	})
}

func runHash(ctx context.Context, hasher *auth.Hasher, out io.Writer) error {
	secret, err := promptSecret(out)
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(ctx, secret)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	fmt.Fprintln(out, hash)
	return nil
}

func runSetPassword(ctx context.Context, dbCfg config.DatabaseConfig, hasher *auth.Hasher, email string, out io.Writer) error {
	db, err := database.Open(database.Config{
		Driver:       dbCfg.Driver,
		Path:         dbCfg.Path,
		DSN:          dbCfg.DSN,
		WALMode:      dbCfg.WALMode,
		BusyTimeout:  dbCfg.BusyTimeout,
		MaxOpenConns: dbCfg.MaxOpenConns,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Read-mostly tool

	return setPassword(ctx, participant.NewSQLRepository(db), hasher, email, out)
}

// setPassword looks the participant up by email and stores a fresh hash.
func setPassword(ctx context.Context, repo participant.Repository, hasher *auth.Hasher, email string, out io.Writer) error {
	p, _, err := repo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", email, err)
	}

	secret, err := promptSecret(out)
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(ctx, secret)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := repo.UpdatePasswordHash(ctx, p.CPF, hash); err != nil {
		return fmt.Errorf("storing password: %w", err)
	}
	fmt.Fprintf(out, "password updated for %s (%s)\n", p.Email, p.CPF)
	return nil
}

// promptSecret reads a password without echo and checks its length.
func promptSecret(out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter password: ")
	raw, err := readPassword()
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	secret := string(raw)
	if err := auth.ValidateSecret(secret); err != nil {
		return "", fmt.Errorf("password must be %d-%d characters: %w", auth.MinSecretLength, auth.MaxSecretLength, err)
	}
	return secret, nil
}

func getConfigPath() string {
	if path := os.Getenv("SIGPESQ_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
