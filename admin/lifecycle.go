package admin

import (
	"context"

	"github.com/jrsteele09/go-session-limiter/internal/errors"
	"github.com/jrsteele09/go-session-limiter/policy"
	"github.com/rs/zerolog/log"
)

// Install stores the default policy unless a policy already exists.
// Running it on every start is safe.
func (c *Controller) Install(ctx context.Context) (installed bool, err error) {
	_, err = c.policies.Load(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, policy.ErrPolicyNotFound) {
		return false, errors.Wrapf(err, "[Controller Install] failed to load policy")
	}

	p, err := c.policies.Save(ctx, policy.DefaultPolicy().Roles)
	if err != nil {
		return false, errors.Wrapf(err, "[Controller Install] failed to save default policy")
	}
	log.Info().Str("roles", p.Roles.String()).Msg("Installed default enforcement policy")
	return true, nil
}

// Uninstall removes every stored token and the stored policy so no enforcement
// state survives removal.
func (c *Controller) Uninstall(ctx context.Context) error {
	n, err := c.tokens.Clear(ctx)
	if err != nil {
		return errors.Wrapf(err, "[Controller Uninstall] failed to clear tokens")
	}
	if err := c.policies.Delete(ctx); err != nil {
		return errors.Wrapf(err, "[Controller Uninstall] failed to delete policy")
	}
	log.Info().Int("tokens_removed", n).Msg("Session limiter state removed")
	return nil
}

// PruneOnStartup removes orphaned tokens without an acting administrator.
// It backs the PRUNE_ON_STARTUP setting.
func (c *Controller) PruneOnStartup(ctx context.Context) (int, error) {
	n, err := pruneOrphans(ctx, c.tokens, c.directory)
	if err != nil {
		return n, err
	}
	if n > 0 {
		log.Info().Int("removed", n).Msg("Pruned orphaned session tokens at startup")
	}
	return n, nil
}
