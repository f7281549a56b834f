// Package repotest holds behaviour checks shared by every tokens.Repo backend.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-limiter/tokens"
	"github.com/stretchr/testify/require"
)

// RunContract exercises repo against the single-slot store semantics.
// newRepo must return an empty repo for every call.
func RunContract(t *testing.T, newRepo func(t *testing.T) tokens.Repo) {
	t.Helper()
	ctx := context.Background()
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("get missing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get(ctx, "nobody")
		require.ErrorIs(t, err, tokens.ErrTokenNotFound)
	})

	t.Run("upsert then get", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Upsert(ctx, tokens.Entry{UserID: "u1", Token: "tok-1", IssuedAt: issued}))

		got, err := repo.Get(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, "u1", got.UserID)
		require.Equal(t, tokens.Token("tok-1"), got.Token)
		require.True(t, issued.Equal(got.IssuedAt))
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Upsert(ctx, tokens.Entry{UserID: "u1", Token: "tok-1", IssuedAt: issued}))
		require.NoError(t, repo.Upsert(ctx, tokens.Entry{UserID: "u1", Token: "tok-2", IssuedAt: issued.Add(time.Minute)}))

		got, err := repo.Get(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, tokens.Token("tok-2"), got.Token)

		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Upsert(ctx, tokens.Entry{UserID: "u1", Token: "tok-1", IssuedAt: issued}))

		removed, err := repo.Delete(ctx, "u1")
		require.NoError(t, err)
		require.True(t, removed)

		removed, err = repo.Delete(ctx, "u1")
		require.NoError(t, err)
		require.False(t, removed)

		_, err = repo.Get(ctx, "u1")
		require.ErrorIs(t, err, tokens.ErrTokenNotFound)
	})

	t.Run("list is ordered by user id", func(t *testing.T) {
		repo := newRepo(t)
		for _, id := range []string{"u3", "u1", "u2"} {
			require.NoError(t, repo.Upsert(ctx, tokens.Entry{UserID: id, Token: tokens.Token("tok-" + id), IssuedAt: issued}))
		}

		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		require.Equal(t, "u1", list[0].UserID)
		require.Equal(t, "u2", list[1].UserID)
		require.Equal(t, "u3", list[2].UserID)
	})

	t.Run("clear", func(t *testing.T) {
		repo := newRepo(t)
		for _, id := range []string{"u1", "u2"} {
			require.NoError(t, repo.Upsert(ctx, tokens.Entry{UserID: id, Token: "tok", IssuedAt: issued}))
		}

		n, err := repo.Clear(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, n)

		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Empty(t, list)

		_, err = repo.Get(ctx, "u1")
		require.ErrorIs(t, err, tokens.ErrTokenNotFound)
	})

	t.Run("concurrent upserts keep one entry", func(t *testing.T) {
		repo := newRepo(t)
		const writers = 16

		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = repo.Upsert(ctx, tokens.Entry{UserID: "racer", Token: tokens.Token(fmt.Sprintf("tok-%d", i)), IssuedAt: issued})
			}(i)
		}
		wg.Wait()

		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "racer", list[0].UserID)
	})
}
