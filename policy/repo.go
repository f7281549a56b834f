package policy

import "context"

// Repo persists the process-wide enforcement policy.
type Repo interface {
	// Load returns the current policy or ErrPolicyNotFound.
	Load(ctx context.Context) (EnforcementPolicy, error)

	// Save replaces the enforced role set wholesale and returns the stored policy
	// with its new version. Last write wins.
	Save(ctx context.Context, roles RoleSet) (EnforcementPolicy, error)

	// Delete removes the stored policy. Deleting a missing policy is not an error.
	Delete(ctx context.Context) error
}
