package guard

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/jrsteele09/go-session-limiter/internal/errors"
	"github.com/jrsteele09/go-session-limiter/internal/metrics"
	"github.com/jrsteele09/go-session-limiter/tokens"
	"github.com/rs/zerolog/log"
)

var (
	ErrIssuanceFailed = errors.ErrIssuanceFailed
	ErrLookupFailed   = errors.ErrLookupFailed
)

// Guard issues per-user session tokens and validates presented ones against the store.
type Guard struct {
	repo     tokens.Repo
	generate tokens.Generator
	metrics  *metrics.Recorder
	nowTime  func() time.Time
}

// Option defines a function type to modify the Guard instance.
type Option func(*Guard)

// WithGenerator replaces the token generator (primarily for testing)
func WithGenerator(gen tokens.Generator) Option {
	return func(g *Guard) {
		g.generate = gen
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(g *Guard) {
		g.nowTime = nowFunc
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

func New(repo tokens.Repo, options ...Option) (*Guard, error) {
	if repo == nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[guard New] token repo is required")
	}

	g := &Guard{
		repo:     repo,
		generate: tokens.Generate,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Issue generates a fresh token for userID and overwrites whatever was stored before,
// which invalidates the previous session. The caller must already have authenticated the
// user and confirmed that the enforcement policy applies.
func (g *Guard) Issue(ctx context.Context, userID string) (tokens.Token, error) {
	tok, err := g.generate()
	if err != nil {
		g.metrics.IssueFailed()
		log.Err(err).Str("user_id", userID).Msg("Failed to generate session token")
		return "", fmt.Errorf("[Guard Issue] generate token for %s: %w: %w", userID, ErrIssuanceFailed, err)
	}

	entry := tokens.Entry{UserID: userID, Token: tok, IssuedAt: g.nowTime().UTC()}
	if err := g.repo.Upsert(ctx, entry); err != nil {
		g.metrics.IssueFailed()
		log.Err(err).Str("user_id", userID).Msg("Failed to store session token")
		return "", fmt.Errorf("[Guard Issue] store token for %s: %w: %w", userID, ErrIssuanceFailed, err)
	}

	g.metrics.TokenIssued()
	log.Debug().Str("user_id", userID).Str("token", tok.Redacted()).Msg("Issued session token")
	return tok, nil
}

// Validate compares presented against the token stored for userID. It only reads the store.
// A store failure yields NoStoredToken together with an ErrLookupFailed error so callers
// that ignore the error still fail closed.
func (g *Guard) Validate(ctx context.Context, userID string, presented *string) (Result, error) {
	result, err := g.validate(ctx, userID, presented)
	g.metrics.Validation(result.String())
	return result, err
}

func (g *Guard) validate(ctx context.Context, userID string, presented *string) (Result, error) {
	stored, err := g.repo.Get(ctx, userID)
	if errors.Is(err, tokens.ErrTokenNotFound) {
		return NoStoredToken, nil
	}
	if err != nil {
		log.Err(err).Str("user_id", userID).Msg("Failed to look up session token")
		return NoStoredToken, fmt.Errorf("[Guard Validate] user %s: %w: %w", userID, ErrLookupFailed, err)
	}

	if presented == nil || *presented == "" {
		return NotPresented, nil
	}

	if subtle.ConstantTimeCompare([]byte(*presented), []byte(stored.Token)) != 1 {
		return Mismatch, nil
	}
	return Valid, nil
}
