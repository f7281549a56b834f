package policy

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/go-session-limiter/internal/errors"
)

// DefaultRole is enforced on first install. It is the least-privileged directory role,
// so the broadest low-trust population is limited without affecting administrators.
const DefaultRole = "subscriber"

// ErrPolicyNotFound is returned by Repo implementations before any policy has been saved.
var ErrPolicyNotFound = errors.ErrPolicyNotFound

// RoleSet is an unordered set of role labels. Labels compare case-sensitively.
type RoleSet map[string]struct{}

// NewRoleSet builds a RoleSet, ignoring empty labels.
func NewRoleSet(roles ...string) RoleSet {
	rs := make(RoleSet, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		rs[r] = struct{}{}
	}
	return rs
}

func (rs RoleSet) Has(role string) bool {
	_, ok := rs[role]
	return ok
}

// Sorted returns the labels in lexical order.
func (rs RoleSet) Sorted() []string {
	out := make([]string, 0, len(rs))
	for r := range rs {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func (rs RoleSet) String() string {
	return strings.Join(rs.Sorted(), ", ")
}

// EnforcementPolicy is the set of roles for which single-session enforcement is active.
// Version increases by one on every save.
type EnforcementPolicy struct {
	Roles     RoleSet
	Version   uint64
	UpdatedAt time.Time
}

// DefaultPolicy is the policy in effect before an administrator changes anything.
func DefaultPolicy() EnforcementPolicy {
	return EnforcementPolicy{Roles: NewRoleSet(DefaultRole)}
}

// Applies reports whether enforcement covers a user holding userRoles.
// Any single matching role is enough.
func Applies(userRoles RoleSet, p EnforcementPolicy) bool {
	small, large := userRoles, p.Roles
	if len(large) < len(small) {
		small, large = large, small
	}
	for r := range small {
		if large.Has(r) {
			return true
		}
	}
	return false
}

// LoadOrDefault loads the stored policy, falling back to DefaultPolicy when none was saved.
func LoadOrDefault(ctx context.Context, repo Repo) (EnforcementPolicy, error) {
	p, err := repo.Load(ctx)
	if errors.Is(err, ErrPolicyNotFound) {
		return DefaultPolicy(), nil
	}
	if err != nil {
		return EnforcementPolicy{}, errors.Wrapf(err, "[policy LoadOrDefault] failed to load policy")
	}
	return p, nil
}
