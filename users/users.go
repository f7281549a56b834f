package users

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Built-in directory roles, most to least privileged.
const (
	RoleAdministrator = "administrator"
	RoleEditor        = "editor"
	RoleAuthor        = "author"
	RoleContributor   = "contributor"
	RoleSubscriber    = "subscriber"
)

// Role is a directory role: a stable key plus a display name.
type Role struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// DefaultRoles is the role catalogue of a fresh directory.
func DefaultRoles() []Role {
	return []Role{
		{Key: RoleAdministrator, Name: "Administrator"},
		{Key: RoleEditor, Name: "Editor"},
		{Key: RoleAuthor, Name: "Author"},
		{Key: RoleContributor, Name: "Contributor"},
		{Key: RoleSubscriber, Name: "Subscriber"},
	}
}

type User struct {
	ID           string   `json:"id,omitempty"`       // Unique identifier for the user
	Username     string   `json:"username,omitempty"` // Unique login name
	DisplayName  string   `json:"display_name,omitempty"`
	PasswordHash string   `json:"-"`               // Hashed version of the user's password - never serialize
	Roles        []string `json:"roles,omitempty"` // Role keys from the directory catalogue
	Blocked      bool     `json:"blocked,omitempty"`
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdministrator() bool {
	return u.HasRole(RoleAdministrator)
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
