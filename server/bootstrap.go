package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-limiter/internal/errors"
	"github.com/jrsteele09/go-session-limiter/users"
	"github.com/rs/zerolog/log"
)

const (
	DefaultAdminUsername = "admin"
	DemoUsername         = "demo"
)

// seedNamespace scopes the name-based IDs of seed users.
var seedNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("go-session-limiter/seed-users"))

// SeedUserID is the name-based ID given to the seed user with username.
// It is the same in every process.
func SeedUserID(username string) string {
	return uuid.NewSHA1(seedNamespace, []byte(username)).String()
}

// SeedUsers creates the administrator, and in DEV a demo subscriber, when they are missing.
// An empty adminPassword generates one; generated passwords are returned keyed by username
// so the caller can print them once.
func SeedUsers(ctx context.Context, repo users.UserRepo, adminPassword string, withDemo bool) (map[string]string, error) {
	generated := make(map[string]string)

	if adminPassword != "" {
		if err := users.ValidatePasswordStrength(adminPassword); err != nil {
			return nil, fmt.Errorf("[SeedUsers] ADMIN_PASSWORD rejected: %w", err)
		}
	}
	password, err := seedUser(ctx, repo, &users.User{
		ID:          SeedUserID(DefaultAdminUsername),
		Username:    DefaultAdminUsername,
		DisplayName: "Site Administrator",
		Roles:       []string{users.RoleAdministrator},
	}, adminPassword)
	if err != nil {
		return nil, err
	}
	if password != "" && adminPassword == "" {
		generated[DefaultAdminUsername] = password
	}

	if withDemo {
		password, err := seedUser(ctx, repo, &users.User{
			ID:          SeedUserID(DemoUsername),
			Username:    DemoUsername,
			DisplayName: "Demo Subscriber",
			Roles:       []string{users.RoleSubscriber},
		}, "")
		if err != nil {
			return nil, err
		}
		if password != "" {
			generated[DemoUsername] = password
		}
	}
	return generated, nil
}

// seedUser stores user with password unless the username already exists.
// It returns the password used, or "" when the user was already present.
func seedUser(ctx context.Context, repo users.UserRepo, user *users.User, password string) (string, error) {
	_, err := repo.GetByUsername(ctx, user.Username)
	if err == nil {
		log.Debug().Str("username", user.Username).Msg("Seed user already exists")
		return "", nil
	}
	if !errors.Is(err, users.ErrUserNotFound) {
		return "", fmt.Errorf("[seedUser] failed to look up %s: %w", user.Username, err)
	}

	if password == "" {
		passwordBytes := make([]byte, 16)
		if _, err := rand.Read(passwordBytes); err != nil {
			return "", fmt.Errorf("[seedUser] failed to generate password: %w", err)
		}
		password = base64.RawURLEncoding.EncodeToString(passwordBytes)
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("[seedUser] failed to hash password: %w", err)
	}
	user.PasswordHash = hash
	if err := repo.Upsert(ctx, user); err != nil {
		return "", fmt.Errorf("[seedUser] failed to create %s: %w", user.Username, err)
	}

	log.Info().Str("username", user.Username).Str("user_id", user.ID).Msg("Created seed user")
	return password, nil
}
