package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-session-limiter/policy"
)

var _ policy.Repo = (*PolicyRepo)(nil)

type PolicyRepo struct {
	pool  *pgxpool.Pool
	table string
}

func NewPolicyRepo(pool *pgxpool.Pool, opts ...Option) *PolicyRepo {
	return &PolicyRepo{pool: pool, table: buildOptions(opts).table("enforcement_policy")}
}

func (r *PolicyRepo) Load(ctx context.Context) (policy.EnforcementPolicy, error) {
	var (
		roles   []string
		version int64
		updated time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT roles, version, updated_at FROM `+r.table+` WHERE id = 1`,
	).Scan(&roles, &version, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return policy.EnforcementPolicy{}, policy.ErrPolicyNotFound
	}
	if err != nil {
		return policy.EnforcementPolicy{}, fmt.Errorf("[pgstore PolicyRepo Load] %w", err)
	}
	return policy.EnforcementPolicy{
		Roles:     policy.NewRoleSet(roles...),
		Version:   uint64(version),
		UpdatedAt: updated.UTC(),
	}, nil
}

func (r *PolicyRepo) Save(ctx context.Context, roles policy.RoleSet) (policy.EnforcementPolicy, error) {
	sorted := roles.Sorted()

	var (
		version int64
		updated time.Time
	)
	err := r.pool.QueryRow(ctx, `
		INSERT INTO `+r.table+` AS p (id, roles, version, updated_at) VALUES (1, $1, 1, now())
		ON CONFLICT (id) DO UPDATE SET
			roles = EXCLUDED.roles,
			version = p.version + 1,
			updated_at = EXCLUDED.updated_at
		RETURNING version, updated_at
	`, sorted).Scan(&version, &updated)
	if err != nil {
		return policy.EnforcementPolicy{}, fmt.Errorf("[pgstore PolicyRepo Save] %w", err)
	}

	return policy.EnforcementPolicy{
		Roles:     policy.NewRoleSet(sorted...),
		Version:   uint64(version),
		UpdatedAt: updated.UTC(),
	}, nil
}

func (r *PolicyRepo) Delete(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM `+r.table+` WHERE id = 1`); err != nil {
		return fmt.Errorf("[pgstore PolicyRepo Delete] %w", err)
	}
	return nil
}
