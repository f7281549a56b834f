// Package repotest holds behaviour checks shared by every policy.Repo backend.
package repotest

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-session-limiter/policy"
	"github.com/stretchr/testify/require"
)

// RunContract exercises repo against the wholesale-replace policy semantics.
// newRepo must return a repo with no stored policy for every call.
func RunContract(t *testing.T, newRepo func(t *testing.T) policy.Repo) {
	t.Helper()
	ctx := context.Background()

	t.Run("load before save", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Load(ctx)
		require.ErrorIs(t, err, policy.ErrPolicyNotFound)

		p, err := policy.LoadOrDefault(ctx, repo)
		require.NoError(t, err)
		require.Equal(t, []string{policy.DefaultRole}, p.Roles.Sorted())
	})

	t.Run("save replaces wholesale", func(t *testing.T) {
		repo := newRepo(t)
		first, err := repo.Save(ctx, policy.NewRoleSet("subscriber", "editor"))
		require.NoError(t, err)

		second, err := repo.Save(ctx, policy.NewRoleSet("author"))
		require.NoError(t, err)
		require.Greater(t, second.Version, first.Version)

		loaded, err := repo.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"author"}, loaded.Roles.Sorted())
		require.Equal(t, second.Version, loaded.Version)
		require.False(t, loaded.UpdatedAt.IsZero())
	})

	t.Run("empty role set is a valid policy", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, policy.NewRoleSet())
		require.NoError(t, err)

		loaded, err := repo.Load(ctx)
		require.NoError(t, err)
		require.Empty(t, loaded.Roles)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, policy.NewRoleSet("subscriber"))
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx))
		require.NoError(t, repo.Delete(ctx))

		_, err = repo.Load(ctx)
		require.ErrorIs(t, err, policy.ErrPolicyNotFound)
	})
}
