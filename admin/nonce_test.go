package admin_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-session-limiter/admin"
	"github.com/stretchr/testify/require"
)

var nonceSecret = []byte("0123456789abcdef0123456789abcdef")

func TestNewNonces_RequiresSecret(t *testing.T) {
	_, err := admin.NewNonces([]byte("short"))
	require.Error(t, err)
}

func TestNonces(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	n, err := admin.NewNonces(nonceSecret, admin.WithNonceClock(clock), admin.WithNonceTTL(time.Hour))
	require.NoError(t, err)

	nonce, err := n.Issue("admin-1", admin.ActionExpire, "user-7")
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, n.Verify(nonce, "admin-1", admin.ActionExpire, "user-7"))
	})

	t.Run("bound to target user", func(t *testing.T) {
		require.ErrorIs(t, n.Verify(nonce, "admin-1", admin.ActionExpire, "user-8"), admin.ErrInvalidNonce)
	})

	t.Run("bound to action", func(t *testing.T) {
		require.ErrorIs(t, n.Verify(nonce, "admin-1", admin.ActionClearAll, "user-7"), admin.ErrInvalidNonce)
	})

	t.Run("bound to actor", func(t *testing.T) {
		require.ErrorIs(t, n.Verify(nonce, "admin-2", admin.ActionExpire, "user-7"), admin.ErrInvalidNonce)
	})

	t.Run("missing", func(t *testing.T) {
		require.ErrorIs(t, n.Verify("", "admin-1", admin.ActionExpire, "user-7"), admin.ErrInvalidNonce)
	})

	t.Run("tampered", func(t *testing.T) {
		require.ErrorIs(t, n.Verify(nonce+"x", "admin-1", admin.ActionExpire, "user-7"), admin.ErrInvalidNonce)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := admin.NewNonces([]byte("ffffffffffffffffffffffffffffffff"), admin.WithNonceClock(clock))
		require.NoError(t, err)
		require.ErrorIs(t, other.Verify(nonce, "admin-1", admin.ActionExpire, "user-7"), admin.ErrInvalidNonce)
	})

	t.Run("expired", func(t *testing.T) {
		later, err := admin.NewNonces(nonceSecret, admin.WithNonceClock(func() time.Time { return now.Add(2 * time.Hour) }))
		require.NoError(t, err)
		require.ErrorIs(t, later.Verify(nonce, "admin-1", admin.ActionExpire, "user-7"), admin.ErrInvalidNonce)
	})
}
