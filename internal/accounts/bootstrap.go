// Package accounts seeds the portal's bootstrap account.
package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/p-n-ai/pai-catalog/internal/catalog"
)

// RoleUser is the default portal role.
const RoleUser = "USER"

// Seed describes the account to create.
type Seed struct {
	Username string
	Email    string
	Password string
	FullName string
	Cost     int // bcrypt cost; 0 uses bcrypt.DefaultCost
}

// Bootstrap creates the seed account unless a user with the same username
// already exists. It reports whether a user was created.
func Bootstrap(ctx context.Context, store catalog.UserStore, seed Seed) (bool, error) {
	if seed.Username == "" || seed.Password == "" {
		return false, fmt.Errorf("seed username and password are required")
	}

	_, found, err := store.FindUserByUsername(ctx, seed.Username)
	if err != nil {
		return false, fmt.Errorf("looking up seed user: %w", err)
	}
	if found {
		slog.Info("seed user already exists", "username", seed.Username)
		return false, nil
	}

	cost := seed.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), cost)
	if err != nil {
		return false, fmt.Errorf("hashing seed password: %w", err)
	}

	now := time.Now().UTC()
	u := &catalog.User{
		Username:     seed.Username,
		Email:        seed.Email,
		PasswordHash: string(hash),
		FullName:     seed.FullName,
		Roles:        []string{RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.SaveUser(ctx, u); err != nil {
		return false, fmt.Errorf("saving seed user: %w", err)
	}

	slog.Info("seed user created", "username", u.Username, "id", u.ID)
	return true, nil
}
