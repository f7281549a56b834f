package guard_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-limiter/guard"
	"github.com/jrsteele09/go-session-limiter/internal/metrics"
	fakepolicyrepo "github.com/jrsteele09/go-session-limiter/policy/repofake"
	"github.com/jrsteele09/go-session-limiter/tokens"
	faketokenrepo "github.com/jrsteele09/go-session-limiter/tokens/repofake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const testUserID = "user-1"

// countingRepo records how often the store is touched.
type countingRepo struct {
	tokens.Repo
	mu      sync.Mutex
	gets    int
	upserts int
}

func (c *countingRepo) Get(ctx context.Context, userID string) (tokens.Entry, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.Repo.Get(ctx, userID)
}

func (c *countingRepo) Upsert(ctx context.Context, e tokens.Entry) error {
	c.mu.Lock()
	c.upserts++
	c.mu.Unlock()
	return c.Repo.Upsert(ctx, e)
}

type brokenRepo struct {
	tokens.Repo
	err error
}

func (b brokenRepo) Get(context.Context, string) (tokens.Entry, error) { return tokens.Entry{}, b.err }
func (b brokenRepo) Upsert(context.Context, tokens.Entry) error      { return b.err }

type testFixture struct {
	repo     *countingRepo
	policies *fakepolicyrepo.FakePolicyRepo
	guard    *guard.Guard
	enforcer *guard.Enforcer
	registry *prometheus.Registry
}

func setupTestFixture(t *testing.T, options ...guard.Option) *testFixture {
	t.Helper()

	repo := &countingRepo{Repo: faketokenrepo.NewFakeTokenRepo()}
	policies := fakepolicyrepo.NewFakePolicyRepo()
	reg := prometheus.NewRegistry()

	options = append([]guard.Option{guard.WithMetrics(metrics.New(reg))}, options...)
	g, err := guard.New(repo, options...)
	require.NoError(t, err)

	e, err := guard.NewEnforcer(g, policies)
	require.NoError(t, err)

	return &testFixture{repo: repo, policies: policies, guard: g, enforcer: e, registry: reg}
}

func ptr(s string) *string { return &s }

func TestNew_RequiresRepo(t *testing.T) {
	_, err := guard.New(nil)
	require.Error(t, err)
}

func TestGuard_IssueAndValidate(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	t1, err := f.guard.Issue(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, string(t1), tokens.TokenLength)
	require.Equal(t, 1, f.repo.upserts)

	t.Run("valid and idempotent", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			res, err := f.guard.Validate(ctx, testUserID, ptr(string(t1)))
			require.NoError(t, err)
			require.Equal(t, guard.Valid, res)
		}
		require.Equal(t, 1, f.repo.upserts, "validation must not write")
	})

	t.Run("not presented", func(t *testing.T) {
		res, err := f.guard.Validate(ctx, testUserID, nil)
		require.NoError(t, err)
		require.Equal(t, guard.NotPresented, res)

		res, err = f.guard.Validate(ctx, testUserID, ptr(""))
		require.NoError(t, err)
		require.Equal(t, guard.NotPresented, res)
	})

	t.Run("second issue supersedes the first", func(t *testing.T) {
		t2, err := f.guard.Issue(ctx, testUserID)
		require.NoError(t, err)
		require.NotEqual(t, t1, t2)

		res, err := f.guard.Validate(ctx, testUserID, ptr(string(t1)))
		require.NoError(t, err)
		require.Equal(t, guard.Mismatch, res)

		res, err = f.guard.Validate(ctx, testUserID, ptr(string(t2)))
		require.NoError(t, err)
		require.Equal(t, guard.Valid, res)
	})

	t.Run("no stored token", func(t *testing.T) {
		res, err := f.guard.Validate(ctx, "someone-else", ptr(string(t1)))
		require.NoError(t, err)
		require.Equal(t, guard.NoStoredToken, res)

		res, err = f.guard.Validate(ctx, "someone-else", nil)
		require.NoError(t, err)
		require.Equal(t, guard.NoStoredToken, res)
	})
}

func TestGuard_IssueUsesInjectedClockAndGenerator(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	f := setupTestFixture(t,
		guard.WithNowTime(func() time.Time { return now }),
		guard.WithGenerator(func() (tokens.Token, error) { return "fixed-token", nil }),
	)

	tok, err := f.guard.Issue(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, tokens.Token("fixed-token"), tok)

	entry, err := f.repo.Repo.Get(ctx, testUserID)
	require.NoError(t, err)
	require.True(t, now.Equal(entry.IssuedAt))
}

func TestGuard_IssuanceFailed(t *testing.T) {
	ctx := context.Background()

	t.Run("store write fails", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		diskFull := errors.New("disk full")
		g, err := guard.New(brokenRepo{err: diskFull}, guard.WithMetrics(metrics.New(reg)))
		require.NoError(t, err)

		_, err = g.Issue(ctx, testUserID)
		require.ErrorIs(t, err, guard.ErrIssuanceFailed)
		require.ErrorIs(t, err, diskFull)

		count, err := testutil.GatherAndCount(reg, "limiter_issuance_failures_total")
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	t.Run("generator fails", func(t *testing.T) {
		noEntropy := errors.New("no entropy")
		g, err := guard.New(faketokenrepo.NewFakeTokenRepo(),
			guard.WithGenerator(func() (tokens.Token, error) { return "", noEntropy }))
		require.NoError(t, err)

		_, err = g.Issue(ctx, testUserID)
		require.ErrorIs(t, err, guard.ErrIssuanceFailed)
		require.ErrorIs(t, err, noEntropy)
	})
}

func TestGuard_ValidateLookupFailedFailsClosed(t *testing.T) {
	connReset := errors.New("connection reset")
	g, err := guard.New(brokenRepo{err: connReset})
	require.NoError(t, err)

	res, err := g.Validate(context.Background(), testUserID, ptr("anything"))
	require.ErrorIs(t, err, guard.ErrLookupFailed)
	require.ErrorIs(t, err, connReset)
	require.Equal(t, guard.NoStoredToken, res)
	require.False(t, res.Valid())
}

func TestGuard_ForceExpiredUserHasNoStoredToken(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	tok, err := f.guard.Issue(ctx, testUserID)
	require.NoError(t, err)

	removed, err := f.repo.Delete(ctx, testUserID)
	require.NoError(t, err)
	require.True(t, removed)

	res, err := f.guard.Validate(ctx, testUserID, ptr(string(tok)))
	require.NoError(t, err)
	require.Equal(t, guard.NoStoredToken, res)
}

func TestResult_String(t *testing.T) {
	require.Equal(t, "valid", guard.Valid.String())
	require.Equal(t, "no_stored_token", guard.NoStoredToken.String())
	require.Equal(t, "mismatch", guard.Mismatch.String())
	require.Equal(t, "not_presented", guard.NotPresented.String())
	require.Equal(t, "unknown", guard.Result(42).String())

	var zero guard.Result
	require.False(t, zero.Valid())
}
