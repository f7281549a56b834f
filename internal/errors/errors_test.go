package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/jrsteele09/go-session-limiter/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapf(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		require.NoError(t, errors.Wrapf(nil, "[Test] %s", "context"))
	})

	t.Run("wrapped error keeps the chain", func(t *testing.T) {
		err := errors.Wrapf(errors.ErrTokenNotFound, "[Test] user %s", "u-1")
		require.EqualError(t, err, "[Test] user u-1: session token not found")
		require.True(t, errors.Is(err, errors.ErrTokenNotFound))
		require.True(t, stderrors.Is(err, errors.ErrTokenNotFound))
	})
}
