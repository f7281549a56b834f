package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jrsteele09/go-session-limiter/policy"
	"github.com/redis/go-redis/v9"
)

var _ policy.Repo = (*PolicyRepo)(nil)

const (
	fieldRoles     = "roles"
	fieldVersion   = "version"
	fieldUpdatedAt = "updated_at"
)

type PolicyRepo struct {
	client  redis.UniversalClient
	key     string
	nowTime func() time.Time
}

func NewPolicyRepo(client redis.UniversalClient, prefix string) *PolicyRepo {
	return &PolicyRepo{client: client, key: normalizePrefix(prefix) + ":policy", nowTime: time.Now}
}

func (r *PolicyRepo) Load(ctx context.Context) (policy.EnforcementPolicy, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return policy.EnforcementPolicy{}, fmt.Errorf("[redisstore PolicyRepo Load] %w", err)
	}
	rolesJSON, ok := fields[fieldRoles]
	if !ok {
		return policy.EnforcementPolicy{}, policy.ErrPolicyNotFound
	}

	var roles []string
	if err := json.Unmarshal([]byte(rolesJSON), &roles); err != nil {
		return policy.EnforcementPolicy{}, fmt.Errorf("[redisstore PolicyRepo Load] corrupt roles: %w", err)
	}
	version, err := strconv.ParseUint(fields[fieldVersion], 10, 64)
	if err != nil {
		return policy.EnforcementPolicy{}, fmt.Errorf("[redisstore PolicyRepo Load] corrupt version: %w", err)
	}
	updatedNanos, err := strconv.ParseInt(fields[fieldUpdatedAt], 10, 64)
	if err != nil {
		return policy.EnforcementPolicy{}, fmt.Errorf("[redisstore PolicyRepo Load] corrupt updated_at: %w", err)
	}

	return policy.EnforcementPolicy{
		Roles:     policy.NewRoleSet(roles...),
		Version:   version,
		UpdatedAt: time.Unix(0, updatedNanos).UTC(),
	}, nil
}

func (r *PolicyRepo) Save(ctx context.Context, roles policy.RoleSet) (policy.EnforcementPolicy, error) {
	sorted := roles.Sorted()
	rolesJSON, err := json.Marshal(sorted)
	if err != nil {
		return policy.EnforcementPolicy{}, fmt.Errorf("[redisstore PolicyRepo Save] %w", err)
	}
	now := r.nowTime().UTC()

	var version *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		version = pipe.HIncrBy(ctx, r.key, fieldVersion, 1)
		pipe.HSet(ctx, r.key, fieldRoles, rolesJSON, fieldUpdatedAt, now.UnixNano())
		return nil
	})
	if err != nil {
		return policy.EnforcementPolicy{}, fmt.Errorf("[redisstore PolicyRepo Save] %w", err)
	}

	return policy.EnforcementPolicy{
		Roles:     policy.NewRoleSet(sorted...),
		Version:   uint64(version.Val()),
		UpdatedAt: now,
	}, nil
}

func (r *PolicyRepo) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("[redisstore PolicyRepo Delete] %w", err)
	}
	return nil
}
