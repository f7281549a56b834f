package admin_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-limiter/admin"
	"github.com/jrsteele09/go-session-limiter/guard"
	"github.com/jrsteele09/go-session-limiter/internal/metrics"
	"github.com/jrsteele09/go-session-limiter/policy"
	fakepolicyrepo "github.com/jrsteele09/go-session-limiter/policy/repofake"
	"github.com/jrsteele09/go-session-limiter/tokens"
	faketokenrepo "github.com/jrsteele09/go-session-limiter/tokens/repofake"
	"github.com/jrsteele09/go-session-limiter/users"
	fakeuserrepo "github.com/jrsteele09/go-session-limiter/users/repofake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	tokens     *faketokenrepo.FakeTokenRepo
	policies   *fakepolicyrepo.FakePolicyRepo
	directory  *fakeuserrepo.FakeUserRepo
	guard      *guard.Guard
	controller *admin.Controller
	admin      admin.Actor
	subscriber *users.User
	editor     *users.User
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	ctx := context.Background()

	tr := faketokenrepo.NewFakeTokenRepo()
	pr := fakepolicyrepo.NewFakePolicyRepo()
	ur := fakeuserrepo.NewFakeUserRepo()

	nonces, err := admin.NewNonces(nonceSecret)
	require.NoError(t, err)

	c, err := admin.NewController(tr, pr, ur, nonces, admin.WithMetrics(metrics.New(prometheus.NewRegistry())))
	require.NoError(t, err)

	g, err := guard.New(tr)
	require.NoError(t, err)

	adminUser := &users.User{ID: "admin-1", Username: "admin", Roles: []string{users.RoleAdministrator}}
	subscriber := &users.User{ID: "user-1", Username: "sam", Roles: []string{users.RoleSubscriber}}
	editor := &users.User{ID: "user-2", Username: "eve", Roles: []string{users.RoleSubscriber, users.RoleEditor}}
	for _, u := range []*users.User{adminUser, subscriber, editor} {
		require.NoError(t, ur.Upsert(ctx, u))
	}

	return &testFixture{
		tokens:     tr,
		policies:   pr,
		directory:  ur,
		guard:      g,
		controller: c,
		admin:      admin.Actor{UserID: adminUser.ID, Roles: adminUser.Roles},
		subscriber: subscriber,
		editor:     editor,
	}
}

func (f *testFixture) nonce(t *testing.T, action, target string) string {
	t.Helper()
	n, err := f.controller.Nonce(f.admin, action, target)
	require.NoError(t, err)
	return n
}

func ptr(s string) *string { return &s }

func TestNewController_Validation(t *testing.T) {
	nonces, err := admin.NewNonces(nonceSecret)
	require.NoError(t, err)
	tr := faketokenrepo.NewFakeTokenRepo()
	pr := fakepolicyrepo.NewFakePolicyRepo()
	ur := fakeuserrepo.NewFakeUserRepo()

	_, err = admin.NewController(nil, pr, ur, nonces)
	require.Error(t, err)
	_, err = admin.NewController(tr, nil, ur, nonces)
	require.Error(t, err)
	_, err = admin.NewController(tr, pr, nil, nonces)
	require.Error(t, err)
	_, err = admin.NewController(tr, pr, ur, nil)
	require.Error(t, err)
}

func TestController_Policy(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	t.Run("default before any save", func(t *testing.T) {
		p, err := f.controller.GetPolicy(ctx, f.admin)
		require.NoError(t, err)
		require.Equal(t, []string{policy.DefaultRole}, p.Roles.Sorted())
	})

	t.Run("set replaces wholesale", func(t *testing.T) {
		p, err := f.controller.SetPolicy(ctx, f.admin, f.nonce(t, admin.ActionSaveSettings, ""), []string{" editor ", "", "author"})
		require.NoError(t, err)
		require.Equal(t, []string{"author", "editor"}, p.Roles.Sorted())

		p2, err := f.controller.SetPolicy(ctx, f.admin, f.nonce(t, admin.ActionSaveSettings, ""), []string{"contributor"})
		require.NoError(t, err)
		require.Equal(t, []string{"contributor"}, p2.Roles.Sorted())
		require.Greater(t, p2.Version, p.Version)

		got, err := f.controller.GetPolicy(ctx, f.admin)
		require.NoError(t, err)
		require.Equal(t, []string{"contributor"}, got.Roles.Sorted())
	})

	t.Run("unknown role rejects the whole change", func(t *testing.T) {
		_, err := f.controller.SetPolicy(ctx, f.admin, f.nonce(t, admin.ActionSaveSettings, ""), []string{"subscriber", "wizard"})
		require.ErrorIs(t, err, admin.ErrUnknownRole)

		got, err := f.controller.GetPolicy(ctx, f.admin)
		require.NoError(t, err)
		require.Equal(t, []string{"contributor"}, got.Roles.Sorted())
	})

	t.Run("empty set disables enforcement", func(t *testing.T) {
		p, err := f.controller.SetPolicy(ctx, f.admin, f.nonce(t, admin.ActionSaveSettings, ""), nil)
		require.NoError(t, err)
		require.Empty(t, p.Roles)
	})

	t.Run("known roles", func(t *testing.T) {
		roles, err := f.controller.KnownRoles(ctx, f.admin)
		require.NoError(t, err)
		require.Len(t, roles, 5)
	})
}

func TestController_Unauthorized(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	_, err := f.guard.Issue(ctx, f.subscriber.ID)
	require.NoError(t, err)

	outsider := admin.Actor{UserID: f.editor.ID, Roles: f.editor.Roles}

	t.Run("non-admin is rejected", func(t *testing.T) {
		_, err := f.controller.GetPolicy(ctx, outsider)
		require.ErrorIs(t, err, admin.ErrUnauthorizedAdminAction)

		_, err = f.controller.ListActiveTokens(ctx, outsider)
		require.ErrorIs(t, err, admin.ErrUnauthorizedAdminAction)

		_, err = f.controller.KnownRoles(ctx, outsider)
		require.ErrorIs(t, err, admin.ErrUnauthorizedAdminAction)

		_, err = f.controller.Nonce(outsider, admin.ActionExpire, f.subscriber.ID)
		require.ErrorIs(t, err, admin.ErrUnauthorizedAdminAction)

		// even holding a nonce issued to a real admin
		removed, err := f.controller.ForceExpire(ctx, outsider, f.nonce(t, admin.ActionExpire, f.subscriber.ID), f.subscriber.ID)
		require.ErrorIs(t, err, admin.ErrUnauthorizedAdminAction)
		require.False(t, removed)
	})

	t.Run("admin without valid nonce is rejected before mutation", func(t *testing.T) {
		_, err := f.controller.ForceExpire(ctx, f.admin, "", f.subscriber.ID)
		require.ErrorIs(t, err, admin.ErrUnauthorizedAdminAction)
		require.ErrorIs(t, err, admin.ErrInvalidNonce)

		_, err = f.controller.ForceExpire(ctx, f.admin, f.nonce(t, admin.ActionExpire, f.editor.ID), f.subscriber.ID)
		require.ErrorIs(t, err, admin.ErrUnauthorizedAdminAction)

		_, err = f.controller.ClearAll(ctx, f.admin, f.nonce(t, admin.ActionSaveSettings, ""))
		require.ErrorIs(t, err, admin.ErrUnauthorizedAdminAction)

		_, err = f.controller.SetPolicy(ctx, f.admin, "garbage", []string{"editor"})
		require.ErrorIs(t, err, admin.ErrUnauthorizedAdminAction)

		_, err = f.controller.PruneOrphans(ctx, f.admin, "")
		require.ErrorIs(t, err, admin.ErrUnauthorizedAdminAction)
	})

	list, err := f.tokens.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1, "rejected commands must not change the store")

	p, err := policy.LoadOrDefault(ctx, f.policies)
	require.NoError(t, err)
	require.Equal(t, []string{policy.DefaultRole}, p.Roles.Sorted())
}

func TestController_ListActiveTokens(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	t1, err := f.guard.Issue(ctx, f.subscriber.ID)
	require.NoError(t, err)
	t2, err := f.guard.Issue(ctx, f.editor.ID)
	require.NoError(t, err)
	require.NoError(t, f.tokens.Upsert(ctx, tokens.Entry{UserID: "ghost", Token: "ghost-token", IssuedAt: time.Now()}))

	rows, err := f.controller.ListActiveTokens(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t, "ghost", rows[0].UserID)
	require.True(t, rows[0].Orphaned)

	require.Equal(t, f.subscriber.ID, rows[1].UserID)
	require.Equal(t, "sam", rows[1].Username)
	require.Equal(t, t1, rows[1].Token)
	require.False(t, rows[1].Orphaned)

	require.Equal(t, f.editor.ID, rows[2].UserID)
	require.Equal(t, []string{users.RoleEditor, users.RoleSubscriber}, rows[2].Roles)
	require.Equal(t, t2, rows[2].Token)
}

func TestController_ForceExpire(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	tok, err := f.guard.Issue(ctx, f.subscriber.ID)
	require.NoError(t, err)

	removed, err := f.controller.ForceExpire(ctx, f.admin, f.nonce(t, admin.ActionExpire, f.subscriber.ID), f.subscriber.ID)
	require.NoError(t, err)
	require.True(t, removed)

	for _, presented := range []*string{ptr(string(tok)), ptr("other"), nil} {
		res, err := f.guard.Validate(ctx, f.subscriber.ID, presented)
		require.NoError(t, err)
		require.Equal(t, guard.NoStoredToken, res)
	}

	removed, err = f.controller.ForceExpire(ctx, f.admin, f.nonce(t, admin.ActionExpire, f.subscriber.ID), f.subscriber.ID)
	require.NoError(t, err)
	require.False(t, removed)

	t.Run("next login issues again", func(t *testing.T) {
		tok2, err := f.guard.Issue(ctx, f.subscriber.ID)
		require.NoError(t, err)
		res, err := f.guard.Validate(ctx, f.subscriber.ID, ptr(string(tok2)))
		require.NoError(t, err)
		require.Equal(t, guard.Valid, res)
	})
}

func TestController_ClearAll(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	for _, id := range []string{f.subscriber.ID, f.editor.ID} {
		_, err := f.guard.Issue(ctx, id)
		require.NoError(t, err)
	}

	n, err := f.controller.ClearAll(ctx, f.admin, f.nonce(t, admin.ActionClearAll, ""))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	rows, err := f.controller.ListActiveTokens(ctx, f.admin)
	require.NoError(t, err)
	require.Empty(t, rows)

	for _, id := range []string{f.subscriber.ID, f.editor.ID, "never-logged-in"} {
		res, err := f.guard.Validate(ctx, id, ptr("x"))
		require.NoError(t, err)
		require.Equal(t, guard.NoStoredToken, res)
	}
}

func TestController_PruneOrphans(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	for _, id := range []string{f.subscriber.ID, f.editor.ID} {
		_, err := f.guard.Issue(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, f.directory.Delete(ctx, f.editor.ID))

	n, err := f.controller.PruneOrphans(ctx, f.admin, f.nonce(t, admin.ActionPrune, ""))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	rows, err := f.controller.ListActiveTokens(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, f.subscriber.ID, rows[0].UserID)

	n, err = f.controller.PruneOnStartup(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestController_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	installed, err := f.controller.Install(ctx)
	require.NoError(t, err)
	require.True(t, installed)

	p, err := f.policies.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{policy.DefaultRole}, p.Roles.Sorted())

	t.Run("install does not overwrite", func(t *testing.T) {
		_, err := f.controller.SetPolicy(ctx, f.admin, f.nonce(t, admin.ActionSaveSettings, ""), []string{"editor"})
		require.NoError(t, err)

		installed, err := f.controller.Install(ctx)
		require.NoError(t, err)
		require.False(t, installed)

		p, err := f.policies.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"editor"}, p.Roles.Sorted())
	})

	t.Run("uninstall removes all state", func(t *testing.T) {
		_, err := f.guard.Issue(ctx, f.subscriber.ID)
		require.NoError(t, err)

		require.NoError(t, f.controller.Uninstall(ctx))

		list, err := f.tokens.List(ctx)
		require.NoError(t, err)
		require.Empty(t, list)

		_, err = f.policies.Load(ctx)
		require.ErrorIs(t, err, policy.ErrPolicyNotFound)
	})
}
