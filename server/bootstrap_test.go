package server_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-session-limiter/guard"
	"github.com/jrsteele09/go-session-limiter/policy"
	fakepolicyrepo "github.com/jrsteele09/go-session-limiter/policy/repofake"
	"github.com/jrsteele09/go-session-limiter/server"
	faketokenrepo "github.com/jrsteele09/go-session-limiter/tokens/repofake"
	"github.com/jrsteele09/go-session-limiter/users"
	fakeuserrepo "github.com/jrsteele09/go-session-limiter/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestSeedUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("configured admin password", func(t *testing.T) {
		repo := fakeuserrepo.NewFakeUserRepo()
		generated, err := server.SeedUsers(ctx, repo, "Adm1nPassword", false)
		require.NoError(t, err)
		require.Empty(t, generated)

		u, err := users.Authenticate(ctx, repo, server.DefaultAdminUsername, "Adm1nPassword")
		require.NoError(t, err)
		require.True(t, u.IsAdministrator())
	})

	t.Run("generated passwords and demo user", func(t *testing.T) {
		repo := fakeuserrepo.NewFakeUserRepo()
		generated, err := server.SeedUsers(ctx, repo, "", true)
		require.NoError(t, err)
		require.Len(t, generated, 2)

		demo, err := users.Authenticate(ctx, repo, server.DemoUsername, generated[server.DemoUsername])
		require.NoError(t, err)
		require.Equal(t, []string{users.RoleSubscriber}, demo.Roles)

		// Seeding again leaves existing users alone.
		again, err := server.SeedUsers(ctx, repo, "", true)
		require.NoError(t, err)
		require.Empty(t, again)
		_, err = users.Authenticate(ctx, repo, server.DefaultAdminUsername, generated[server.DefaultAdminUsername])
		require.NoError(t, err)
	})

	t.Run("stable ids across directories", func(t *testing.T) {
		a := fakeuserrepo.NewFakeUserRepo()
		b := fakeuserrepo.NewFakeUserRepo()
		_, err := server.SeedUsers(ctx, a, "Adm1nPassword", true)
		require.NoError(t, err)
		_, err = server.SeedUsers(ctx, b, "Adm1nPassword", true)
		require.NoError(t, err)

		for _, username := range []string{server.DefaultAdminUsername, server.DemoUsername} {
			ua, err := a.GetByUsername(ctx, username)
			require.NoError(t, err)
			ub, err := b.GetByUsername(ctx, username)
			require.NoError(t, err)
			require.Equal(t, ua.ID, ub.ID)
			require.Equal(t, server.SeedUserID(username), ua.ID)
		}
		require.NotEqual(t, server.SeedUserID(server.DefaultAdminUsername), server.SeedUserID(server.DemoUsername))
	})

	t.Run("weak admin password", func(t *testing.T) {
		_, err := server.SeedUsers(ctx, fakeuserrepo.NewFakeUserRepo(), "weak", false)
		require.Error(t, err)
	})
}

// Two processes with their own seeded directories share one token store.
func TestSeedUsers_SharedStoreKeepsOneSession(t *testing.T) {
	ctx := context.Background()
	shared := faketokenrepo.NewFakeTokenRepo()
	policies := fakepolicyrepo.NewFakePolicyRepo()

	newProcess := func() (*fakeuserrepo.FakeUserRepo, *guard.Enforcer) {
		directory := fakeuserrepo.NewFakeUserRepo()
		_, err := server.SeedUsers(ctx, directory, "Adm1nPassword", true)
		require.NoError(t, err)
		g, err := guard.New(shared)
		require.NoError(t, err)
		e, err := guard.NewEnforcer(g, policies)
		require.NoError(t, err)
		return directory, e
	}
	dirA, enforcerA := newProcess()
	dirB, enforcerB := newProcess()

	login := func(directory *fakeuserrepo.FakeUserRepo, e *guard.Enforcer) (*users.User, string) {
		u, err := directory.GetByUsername(ctx, server.DemoUsername)
		require.NoError(t, err)
		tok, issued, err := e.OnLogin(ctx, u.ID, policy.NewRoleSet(u.Roles...))
		require.NoError(t, err)
		require.True(t, issued)
		return u, string(tok)
	}
	userA, tokA := login(dirA, enforcerA)
	userB, tokB := login(dirB, enforcerB)

	first, err := enforcerA.Check(ctx, userA.ID, policy.NewRoleSet(userA.Roles...), &tokA)
	require.NoError(t, err)
	require.False(t, first.Allowed())
	require.Equal(t, guard.Mismatch, first.Result)

	second, err := enforcerB.Check(ctx, userB.ID, policy.NewRoleSet(userB.Roles...), &tokB)
	require.NoError(t, err)
	require.True(t, second.Allowed())

	entries, err := shared.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
