package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"os"
)

const bootstrapAdminEmail = "admin@localhost"

// BootstrapAdmin creates an initial admin user when none exists.
// It is idempotent: if an admin already exists, it does nothing.
func BootstrapAdmin(ctx context.Context, repo UserRepository, cfg Config) error {
	if !cfg.BootstrapAdminEnabled {
		return nil
	}

	has, err := repo.HasAdmin(ctx)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	// The generated password may only leave the process through the secrets
	// file; without a destination we refuse to create the account rather than
	// write a credential into the logs.
	if cfg.InitialAdminPasswordPath == "" {
		return errors.New("initial admin password path is not configured")
	}

	password, err := generatePassword(32)
	if err != nil {
		return err
	}

	hash, err := HashPassword(password, cfg.BcryptCost)
	if err != nil {
		return err
	}

	if _, err := repo.Create(ctx, "admin", bootstrapAdminEmail, hash, string(RoleAdmin)); err != nil {
		return err
	}

	if err := os.WriteFile(cfg.InitialAdminPasswordPath, []byte(password+"\n"), 0o600); err != nil {
		return err
	}
	log.Printf("initial admin created; credentials written to %s", cfg.InitialAdminPasswordPath)

	return nil
}

func generatePassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("password length must be positive")
	}
	// base64 encoding: need 3/4 overhead; ensure enough bytes
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}
