package admin

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/go-session-limiter/internal/errors"
	"github.com/jrsteele09/go-session-limiter/internal/metrics"
	"github.com/jrsteele09/go-session-limiter/policy"
	"github.com/jrsteele09/go-session-limiter/tokens"
	"github.com/jrsteele09/go-session-limiter/users"
	"github.com/rs/zerolog/log"
)

// Anti-forgery actions. Expire nonces are additionally bound to the target user.
const (
	ActionSaveSettings = "save_settings"
	ActionExpire       = "expire_session"
	ActionClearAll     = "clear_sessions"
	ActionPrune        = "prune_orphans"
)

var (
	ErrUnauthorizedAdminAction = errors.ErrUnauthorizedAdminAction
	ErrUnknownRole             = errors.ErrUnknownRole
)

// Actor is the caller of an administrative operation as resolved by the transport.
type Actor struct {
	UserID string
	Roles  []string
}

func (a Actor) isAdministrator() bool {
	for _, r := range a.Roles {
		if r == users.RoleAdministrator {
			return true
		}
	}
	return false
}

// ActiveToken is one row of the active token table.
// Orphaned marks entries whose user no longer exists in the directory.
type ActiveToken struct {
	UserID   string       `json:"user_id"`
	Username string       `json:"username,omitempty"`
	Roles    []string     `json:"roles,omitempty"`
	Token    tokens.Token `json:"token"`
	IssuedAt time.Time    `json:"issued_at"`
	Orphaned bool         `json:"orphaned,omitempty"`
}

// Controller is the administrative surface over the policy and the token store.
// Queries require an administrator; commands also require a matching nonce.
// Authorization always happens before any store is touched.
type Controller struct {
	tokens    tokens.Repo
	policies  policy.Repo
	directory users.Directory
	nonces    *Nonces
	metrics   *metrics.Recorder
}

type ControllerOption func(*Controller)

func WithMetrics(m *metrics.Recorder) ControllerOption {
	return func(c *Controller) {
		c.metrics = m
	}
}

func NewController(tokenRepo tokens.Repo, policyRepo policy.Repo, directory users.Directory, nonces *Nonces, options ...ControllerOption) (*Controller, error) {
	if tokenRepo == nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[admin NewController] token repo is required")
	}
	if policyRepo == nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[admin NewController] policy repo is required")
	}
	if directory == nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[admin NewController] user directory is required")
	}
	if nonces == nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[admin NewController] nonces are required")
	}

	c := &Controller{
		tokens:    tokenRepo,
		policies:  policyRepo,
		directory: directory,
		nonces:    nonces,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Nonce issues an anti-forgery nonce the UI embeds in a form or link.
func (c *Controller) Nonce(actor Actor, action, target string) (string, error) {
	if !actor.isAdministrator() {
		return "", errors.Wrapf(ErrUnauthorizedAdminAction, "[Controller Nonce] %s is not an administrator", actor.UserID)
	}
	return c.nonces.Issue(actor.UserID, action, target)
}

func (c *Controller) GetPolicy(ctx context.Context, actor Actor) (policy.EnforcementPolicy, error) {
	if err := c.authorizeQuery(actor, "get_policy"); err != nil {
		return policy.EnforcementPolicy{}, err
	}
	return policy.LoadOrDefault(ctx, c.policies)
}

// KnownRoles lists the directory roles an administrator can choose from.
func (c *Controller) KnownRoles(ctx context.Context, actor Actor) ([]users.Role, error) {
	if err := c.authorizeQuery(actor, "known_roles"); err != nil {
		return nil, err
	}
	return c.directory.Roles(ctx)
}

// SetPolicy replaces the enforced role set. Labels are trimmed and empty ones dropped;
// labels unknown to the directory reject the whole change.
func (c *Controller) SetPolicy(ctx context.Context, actor Actor, nonce string, roles []string) (policy.EnforcementPolicy, error) {
	if err := c.authorizeCommand(actor, nonce, ActionSaveSettings, ""); err != nil {
		return policy.EnforcementPolicy{}, err
	}

	known, err := c.directory.Roles(ctx)
	if err != nil {
		c.metrics.AdminAction(ActionSaveSettings, "error")
		return policy.EnforcementPolicy{}, errors.Wrapf(err, "[Controller SetPolicy] failed to list directory roles")
	}
	knownKeys := make(map[string]struct{}, len(known))
	for _, r := range known {
		knownKeys[r.Key] = struct{}{}
	}

	cleaned := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, ok := knownKeys[r]; !ok {
			c.metrics.AdminAction(ActionSaveSettings, "error")
			return policy.EnforcementPolicy{}, errors.Wrapf(ErrUnknownRole, "[Controller SetPolicy] %q", r)
		}
		cleaned = append(cleaned, r)
	}

	p, err := c.policies.Save(ctx, policy.NewRoleSet(cleaned...))
	if err != nil {
		c.metrics.AdminAction(ActionSaveSettings, "error")
		return policy.EnforcementPolicy{}, errors.Wrapf(err, "[Controller SetPolicy] failed to save policy")
	}

	c.metrics.AdminAction(ActionSaveSettings, "ok")
	log.Info().Str("actor", actor.UserID).Str("roles", p.Roles.String()).Uint64("version", p.Version).Msg("Enforcement policy updated")
	return p, nil
}

// ListActiveTokens joins every stored token with its directory user, ordered by user id.
func (c *Controller) ListActiveTokens(ctx context.Context, actor Actor) ([]ActiveToken, error) {
	if err := c.authorizeQuery(actor, "list_tokens"); err != nil {
		return nil, err
	}

	entries, err := c.tokens.List(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "[Controller ListActiveTokens] failed to list tokens")
	}

	rows := make([]ActiveToken, 0, len(entries))
	for _, e := range entries {
		row := ActiveToken{UserID: e.UserID, Token: e.Token, IssuedAt: e.IssuedAt}
		user, err := c.directory.GetByID(ctx, e.UserID)
		switch {
		case errors.Is(err, users.ErrUserNotFound):
			row.Orphaned = true
		case err != nil:
			return nil, errors.Wrapf(err, "[Controller ListActiveTokens] failed to look up user %s", e.UserID)
		default:
			row.Username = user.Username
			row.Roles = append([]string(nil), user.Roles...)
			sort.Strings(row.Roles)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ForceExpire deletes the token of userID and reports whether one existed.
func (c *Controller) ForceExpire(ctx context.Context, actor Actor, nonce, userID string) (bool, error) {
	if err := c.authorizeCommand(actor, nonce, ActionExpire, userID); err != nil {
		return false, err
	}

	removed, err := c.tokens.Delete(ctx, userID)
	if err != nil {
		c.metrics.AdminAction(ActionExpire, "error")
		return false, errors.Wrapf(err, "[Controller ForceExpire] failed to delete token for %s", userID)
	}

	c.metrics.AdminAction(ActionExpire, "ok")
	log.Info().Str("actor", actor.UserID).Str("user_id", userID).Bool("removed", removed).Msg("Session force-expired")
	return removed, nil
}

// ClearAll deletes every stored token.
func (c *Controller) ClearAll(ctx context.Context, actor Actor, nonce string) (int, error) {
	if err := c.authorizeCommand(actor, nonce, ActionClearAll, ""); err != nil {
		return 0, err
	}

	n, err := c.tokens.Clear(ctx)
	if err != nil {
		c.metrics.AdminAction(ActionClearAll, "error")
		return 0, errors.Wrapf(err, "[Controller ClearAll] failed to clear tokens")
	}

	c.metrics.AdminAction(ActionClearAll, "ok")
	log.Info().Str("actor", actor.UserID).Int("removed", n).Msg("All session tokens cleared")
	return n, nil
}

// PruneOrphans deletes tokens whose user no longer exists in the directory.
func (c *Controller) PruneOrphans(ctx context.Context, actor Actor, nonce string) (int, error) {
	if err := c.authorizeCommand(actor, nonce, ActionPrune, ""); err != nil {
		return 0, err
	}

	n, err := pruneOrphans(ctx, c.tokens, c.directory)
	if err != nil {
		c.metrics.AdminAction(ActionPrune, "error")
		return n, err
	}

	c.metrics.AdminAction(ActionPrune, "ok")
	log.Info().Str("actor", actor.UserID).Int("removed", n).Msg("Orphaned session tokens pruned")
	return n, nil
}

func (c *Controller) authorizeQuery(actor Actor, action string) error {
	if !actor.isAdministrator() {
		c.metrics.AdminAction(action, "denied")
		return errors.Wrapf(ErrUnauthorizedAdminAction, "[Controller] %s is not an administrator", actor.UserID)
	}
	return nil
}

func (c *Controller) authorizeCommand(actor Actor, nonce, action, target string) error {
	if err := c.authorizeQuery(actor, action); err != nil {
		return err
	}
	if err := c.nonces.Verify(nonce, actor.UserID, action, target); err != nil {
		c.metrics.AdminAction(action, "denied")
		log.Warn().Str("actor", actor.UserID).Str("action", action).Msg("Rejected admin action with invalid nonce")
		return fmt.Errorf("%w: %w", ErrUnauthorizedAdminAction, err)
	}
	return nil
}

func pruneOrphans(ctx context.Context, tokenRepo tokens.Repo, directory users.Directory) (int, error) {
	entries, err := tokenRepo.List(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "[admin pruneOrphans] failed to list tokens")
	}

	removed := 0
	for _, e := range entries {
		_, err := directory.GetByID(ctx, e.UserID)
		if err == nil {
			continue
		}
		if !errors.Is(err, users.ErrUserNotFound) {
			return removed, errors.Wrapf(err, "[admin pruneOrphans] failed to look up user %s", e.UserID)
		}
		ok, err := tokenRepo.Delete(ctx, e.UserID)
		if err != nil {
			return removed, errors.Wrapf(err, "[admin pruneOrphans] failed to delete token for %s", e.UserID)
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}
