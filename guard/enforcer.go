package guard

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-session-limiter/internal/errors"
	"github.com/jrsteele09/go-session-limiter/policy"
	"github.com/jrsteele09/go-session-limiter/tokens"
)

// Decision is the per-request verdict. When Enforced is false the user is outside the
// policy and Result is meaningless.
type Decision struct {
	Enforced bool
	Result   Result
}

func (d Decision) Allowed() bool {
	return !d.Enforced || d.Result.Valid()
}

// Enforcer applies the enforcement policy in front of a Guard at the login and
// per-request boundaries. The policy is loaded once per call.
type Enforcer struct {
	guard    *Guard
	policies policy.Repo
}

func NewEnforcer(g *Guard, policies policy.Repo) (*Enforcer, error) {
	if g == nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[guard NewEnforcer] guard is required")
	}
	if policies == nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[guard NewEnforcer] policy repo is required")
	}
	return &Enforcer{guard: g, policies: policies}, nil
}

// OnLogin issues a token when the policy covers roles. issued is false, and the store is
// left untouched, for users outside the policy.
func (e *Enforcer) OnLogin(ctx context.Context, userID string, roles policy.RoleSet) (tok tokens.Token, issued bool, err error) {
	p, err := policy.LoadOrDefault(ctx, e.policies)
	if err != nil {
		return "", false, fmt.Errorf("[Enforcer OnLogin] %w: %w", ErrIssuanceFailed, err)
	}
	if !policy.Applies(roles, p) {
		return "", false, nil
	}

	tok, err = e.guard.Issue(ctx, userID)
	if err != nil {
		return "", false, err
	}
	return tok, true, nil
}

// Check validates presented for users covered by the policy and skips validation otherwise.
func (e *Enforcer) Check(ctx context.Context, userID string, roles policy.RoleSet, presented *string) (Decision, error) {
	p, err := policy.LoadOrDefault(ctx, e.policies)
	if err != nil {
		// Without a policy we cannot tell whether the user is limited; deny.
		return Decision{Enforced: true, Result: NoStoredToken}, fmt.Errorf("[Enforcer Check] %w: %w", ErrLookupFailed, err)
	}
	if !policy.Applies(roles, p) {
		return Decision{}, nil
	}

	result, err := e.guard.Validate(ctx, userID, presented)
	return Decision{Enforced: true, Result: result}, err
}
