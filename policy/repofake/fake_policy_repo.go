package fakepolicyrepo

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-session-limiter/policy"
)

var _ policy.Repo = (*FakePolicyRepo)(nil)

type FakePolicyRepo struct {
	current *policy.EnforcementPolicy
	version uint64
	nowTime func() time.Time
	lock    sync.RWMutex
}

func NewFakePolicyRepo() *FakePolicyRepo {
	return &FakePolicyRepo{nowTime: time.Now}
}

func (pr *FakePolicyRepo) Load(_ context.Context) (policy.EnforcementPolicy, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	if pr.current == nil {
		return policy.EnforcementPolicy{}, policy.ErrPolicyNotFound
	}
	return clonePolicy(*pr.current), nil
}

func (pr *FakePolicyRepo) Save(_ context.Context, roles policy.RoleSet) (policy.EnforcementPolicy, error) {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	pr.version++
	p := policy.EnforcementPolicy{
		Roles:     policy.NewRoleSet(roles.Sorted()...),
		Version:   pr.version,
		UpdatedAt: pr.nowTime().UTC(),
	}
	pr.current = &p
	return clonePolicy(p), nil
}

func (pr *FakePolicyRepo) Delete(_ context.Context) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	pr.current = nil
	pr.version = 0
	return nil
}

func clonePolicy(p policy.EnforcementPolicy) policy.EnforcementPolicy {
	p.Roles = policy.NewRoleSet(p.Roles.Sorted()...)
	return p
}
