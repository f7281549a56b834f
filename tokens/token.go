package tokens

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/jrsteele09/go-session-limiter/internal/errors"
)

// TokenLength is the number of characters in a generated session token.
// 32 characters over a 62 symbol alphabet carry about 190 bits of entropy.
const TokenLength = 32

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ErrTokenNotFound is returned by Repo implementations when a user has no stored token.
var ErrTokenNotFound = errors.ErrTokenNotFound

// Token is an opaque session token. It carries no user identity and no expiry.
type Token string

// Entry is the single stored token for a user.
// IssuedAt is informational only; validity is equality with Token.
type Entry struct {
	UserID   string    `json:"user_id"`
	Token    Token     `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}

// Redacted returns a prefix of the token safe to put in logs.
func (t Token) Redacted() string {
	if len(t) <= 4 {
		return "…"
	}
	return string(t[:4]) + "…"
}

// Generator produces new session tokens.
type Generator func() (Token, error)

// Generate returns a TokenLength character alphanumeric token read from crypto/rand.
func Generate() (Token, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, TokenLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("[tokens Generate] failed to read random source: %w", err)
		}
		b[i] = alphabet[n.Int64()]
	}
	return Token(b), nil
}
