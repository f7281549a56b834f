package admin

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-session-limiter/internal/errors"
)

const (
	nonceIssuer     = "session-limiter"
	defaultNonceTTL = 12 * time.Hour
)

var ErrInvalidNonce = errors.ErrInvalidNonce

type nonceClaims struct {
	Action string `json:"act"`
	Target string `json:"tgt,omitempty"`
	jwt.RegisteredClaims
}

// Nonces issues and verifies anti-forgery tokens bound to an acting administrator,
// an action and optionally the user the action targets.
type Nonces struct {
	secret  []byte
	ttl     time.Duration
	nowTime func() time.Time
}

type NonceOption func(*Nonces)

func WithNonceTTL(ttl time.Duration) NonceOption {
	return func(n *Nonces) {
		n.ttl = ttl
	}
}

// WithNonceClock sets the now time function (primarily for testing)
func WithNonceClock(nowFunc func() time.Time) NonceOption {
	return func(n *Nonces) {
		n.nowTime = nowFunc
	}
}

func NewNonces(secret []byte, options ...NonceOption) (*Nonces, error) {
	if len(secret) < 16 {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[admin NewNonces] secret must be at least 16 bytes")
	}
	n := &Nonces{
		secret:  append([]byte(nil), secret...),
		ttl:     defaultNonceTTL,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(n)
	}
	return n, nil
}

// Issue returns a signed nonce for actorID performing action on target.
// target is empty for actions that are not tied to a single user.
func (n *Nonces) Issue(actorID, action, target string) (string, error) {
	now := n.nowTime()
	claims := nonceClaims{
		Action: action,
		Target: target,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    nonceIssuer,
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(n.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(n.secret)
	if err != nil {
		return "", fmt.Errorf("[Nonces Issue] failed to sign nonce: %w", err)
	}
	return signed, nil
}

// Verify checks that nonce was issued by this process for exactly actorID, action and target.
func (n *Nonces) Verify(nonce, actorID, action, target string) error {
	if nonce == "" {
		return errors.Wrapf(ErrInvalidNonce, "[Nonces Verify] missing nonce")
	}

	var claims nonceClaims
	_, err := jwt.ParseWithClaims(nonce, &claims, func(*jwt.Token) (interface{}, error) {
		return n.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(nonceIssuer),
		jwt.WithSubject(actorID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(n.nowTime),
	)
	if err != nil {
		return errors.Wrapf(ErrInvalidNonce, "[Nonces Verify] %v", err)
	}
	if claims.Action != action || claims.Target != target {
		return errors.Wrapf(ErrInvalidNonce, "[Nonces Verify] nonce was issued for %q on %q", claims.Action, claims.Target)
	}
	return nil
}
