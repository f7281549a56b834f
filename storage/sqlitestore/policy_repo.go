package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-session-limiter/policy"
)

var _ policy.Repo = (*PolicyRepo)(nil)

// PolicyRepo stores the policy as a single row; roles are a JSON array.
type PolicyRepo struct {
	db      *sql.DB
	nowTime func() time.Time
}

func NewPolicyRepo(db *sql.DB) *PolicyRepo {
	return &PolicyRepo{db: db, nowTime: time.Now}
}

func (r *PolicyRepo) Load(ctx context.Context) (policy.EnforcementPolicy, error) {
	var (
		rolesJSON string
		version   int64
		updated   int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT roles, version, updated_at FROM enforcement_policy WHERE id = 1`,
	).Scan(&rolesJSON, &version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return policy.EnforcementPolicy{}, policy.ErrPolicyNotFound
	}
	if err != nil {
		return policy.EnforcementPolicy{}, fmt.Errorf("[sqlitestore PolicyRepo Load] %w", err)
	}

	var roles []string
	if err := json.Unmarshal([]byte(rolesJSON), &roles); err != nil {
		return policy.EnforcementPolicy{}, fmt.Errorf("[sqlitestore PolicyRepo Load] corrupt roles column: %w", err)
	}
	return policy.EnforcementPolicy{
		Roles:     policy.NewRoleSet(roles...),
		Version:   uint64(version),
		UpdatedAt: time.Unix(0, updated).UTC(),
	}, nil
}

func (r *PolicyRepo) Save(ctx context.Context, roles policy.RoleSet) (policy.EnforcementPolicy, error) {
	rolesJSON, err := json.Marshal(roles.Sorted())
	if err != nil {
		return policy.EnforcementPolicy{}, fmt.Errorf("[sqlitestore PolicyRepo Save] %w", err)
	}
	now := r.nowTime().UTC()

	var version int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO enforcement_policy (id, roles, version, updated_at) VALUES (1, ?, 1, ?)
		ON CONFLICT (id) DO UPDATE SET
			roles = excluded.roles,
			version = enforcement_policy.version + 1,
			updated_at = excluded.updated_at
		RETURNING version
	`, string(rolesJSON), now.UnixNano()).Scan(&version)
	if err != nil {
		return policy.EnforcementPolicy{}, fmt.Errorf("[sqlitestore PolicyRepo Save] %w", err)
	}

	return policy.EnforcementPolicy{
		Roles:     policy.NewRoleSet(roles.Sorted()...),
		Version:   uint64(version),
		UpdatedAt: now,
	}, nil
}

func (r *PolicyRepo) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM enforcement_policy WHERE id = 1`); err != nil {
		return fmt.Errorf("[sqlitestore PolicyRepo Delete] %w", err)
	}
	return nil
}
