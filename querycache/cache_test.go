package querycache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/budget-tracker-client/internal/testclock"
	"github.com/jrsteele09/budget-tracker-client/querycache"
	"github.com/stretchr/testify/require"
)

func counter(calls *atomic.Int32, value string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestKey_HasPrefix(t *testing.T) {
	k := querycache.Key{"dashboard", "time-series", "6"}
	require.True(t, k.HasPrefix(querycache.Key{"dashboard"}))
	require.True(t, k.HasPrefix(querycache.Key{"dashboard", "time-series"}))
	require.True(t, k.HasPrefix(nil))
	require.False(t, k.HasPrefix(querycache.Key{"auth-status"}))
	require.False(t, querycache.Key{"dashboard"}.HasPrefix(k))
	require.Equal(t, "dashboard/time-series/6", k.String())
}

func TestFetch_StaleTime(t *testing.T) {
	clock := testclock.New(time.Unix(0, 0))
	c := querycache.New(querycache.WithNowFunc(clock.Now))
	key := querycache.Key{"auth-status"}
	var calls atomic.Int32

	v, err := querycache.Fetch(context.Background(), c, key, 30*time.Second, counter(&calls, "a"))
	require.NoError(t, err)
	require.Equal(t, "a", v)

	clock.Advance(29 * time.Second)
	v, err = querycache.Fetch(context.Background(), c, key, 30*time.Second, counter(&calls, "b"))
	require.NoError(t, err)
	require.Equal(t, "a", v)
	require.Equal(t, int32(1), calls.Load())

	clock.Advance(time.Second)
	v, err = querycache.Fetch(context.Background(), c, key, 30*time.Second, counter(&calls, "b"))
	require.NoError(t, err)
	require.Equal(t, "b", v)
	require.Equal(t, int32(2), calls.Load())
}

func TestInvalidate(t *testing.T) {
	c := querycache.New()
	var calls atomic.Int32
	ctx := context.Background()

	_, _ = querycache.Fetch(ctx, c, querycache.Key{"dashboard", "overview"}, time.Hour, counter(&calls, "o"))
	_, _ = querycache.Fetch(ctx, c, querycache.Key{"dashboard", "category-breakdown"}, time.Hour, counter(&calls, "c"))
	_, _ = querycache.Fetch(ctx, c, querycache.Key{"user-currency"}, time.Hour, counter(&calls, "u"))
	require.Equal(t, int32(3), calls.Load())

	require.Equal(t, 2, c.Invalidate(querycache.Key{"dashboard"}))
	require.True(t, c.Status(querycache.Key{"dashboard", "overview"}).Stale)
	require.False(t, c.Status(querycache.Key{"user-currency"}).Stale)

	v, ok := querycache.Peek[string](c, querycache.Key{"dashboard", "overview"})
	require.True(t, ok)
	require.Equal(t, "o", v)

	_, _ = querycache.Fetch(ctx, c, querycache.Key{"dashboard", "overview"}, time.Hour, counter(&calls, "o2"))
	_, _ = querycache.Fetch(ctx, c, querycache.Key{"user-currency"}, time.Hour, counter(&calls, "u2"))
	require.Equal(t, int32(4), calls.Load())
}

func TestFetch_ErrorKeepsValue(t *testing.T) {
	c := querycache.New()
	key := querycache.Key{"auth-status"}
	boom := errors.New("boom")

	_, _ = querycache.Fetch(context.Background(), c, key, 0, func(context.Context) (string, error) { return "a", nil })
	_, err := querycache.Fetch(context.Background(), c, key, 0, func(context.Context) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)

	v, ok := querycache.Peek[string](c, key)
	require.True(t, ok)
	require.Equal(t, "a", v)
	require.ErrorIs(t, c.Status(key).Err, boom)
}

func TestFetch_ConcurrentCollapse(t *testing.T) {
	c := querycache.New()
	key := querycache.Key{"dashboard", "overview"}
	var calls atomic.Int32
	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once

	fn := func(context.Context) (string, error) {
		calls.Add(1)
		once.Do(func() { close(entered) })
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = querycache.Fetch(context.Background(), c, key, time.Minute, fn)
	}()
	<-entered
	require.True(t, c.Status(key).Fetching)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = querycache.Fetch(context.Background(), c, key, time.Minute, fn)
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	require.False(t, c.Status(key).Fetching)
}

func TestClear(t *testing.T) {
	c := querycache.New()
	key := querycache.Key{"auth-status"}
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = querycache.Fetch(context.Background(), c, key, time.Minute, func(context.Context) (string, error) {
			<-release
			return "late", nil
		})
	}()
	require.Eventually(t, func() bool { return c.Status(key).Fetching }, time.Second, time.Millisecond)

	c.Clear()
	close(release)
	<-done

	_, ok := querycache.Peek[string](c, key)
	require.False(t, ok)
	require.Equal(t, querycache.EntryStatus{}, c.Status(key))
}
