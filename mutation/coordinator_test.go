package mutation_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/bizadmin/internal/errors"
	"github.com/jrsteele09/bizadmin/internal/metrics"
	"github.com/jrsteele09/bizadmin/mutation"
	"github.com/jrsteele09/bizadmin/querycache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type recordingInvalidator struct {
	calls int
}

func (r *recordingInvalidator) Invalidate(querycache.Predicate) int {
	r.calls++
	return 1
}

func TestInvalidatesOnlyAfterSuccess(t *testing.T) {
	inv := &recordingInvalidator{}
	c := mutation.NewCoordinator(inv)

	got, err := mutation.Run(context.Background(), c, func(context.Context) (string, error) {
		require.Zero(t, inv.calls, "invalidation must wait for the acknowledgement")
		return "created", nil
	}, mutation.Resource("businesses"))
	require.NoError(t, err)
	require.Equal(t, "created", got)
	require.Equal(t, 1, inv.calls)
}

func TestFailureLeavesCacheUntouched(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	cache := querycache.New(querycache.WithStaleTime(time.Hour))
	key := querycache.NewKey("businesses", map[string]string{"page": "1"})
	cache.Read(context.Background(), key, func(context.Context) (any, error) { return "rows", nil })

	c := mutation.NewCoordinator(cache, mutation.WithMetrics(m))
	boom := errors.New("validation rejected")
	err := mutation.Exec(context.Background(), c, func(context.Context) error { return boom }, mutation.Resource("businesses"))
	require.ErrorIs(t, err, boom)

	r, _ := cache.Peek(key)
	require.False(t, r.Stale)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("error")))
}

func TestSuccessMarksResourceStale(t *testing.T) {
	cache := querycache.New(querycache.WithStaleTime(time.Hour))
	fetch := func(context.Context) (any, error) { return "rows", nil }
	businesses := querycache.NewKey("businesses", map[string]string{"page": "1"})
	all := querycache.NewKey("businesses", map[string]string{"page": "1", "limit": "999"})
	events := querycache.NewKey("events", nil)
	for _, k := range []querycache.Key{businesses, all, events} {
		cache.Read(context.Background(), k, fetch)
	}

	c := mutation.NewCoordinator(cache)
	require.NoError(t, mutation.Exec(context.Background(), c, func(context.Context) error { return nil },
		mutation.Resource("businesses")))

	for _, k := range []querycache.Key{businesses, all} {
		r, _ := cache.Peek(k)
		require.True(t, r.Stale, k.String())
	}
	r, _ := cache.Peek(events)
	require.False(t, r.Stale)
}
