package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *Redis {
	mr := miniredis.RunT(t)
	client := goredislib.NewClient(&goredislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, RedisOptions{Expiry: 5 * time.Second, Tries: 200, RetryDelay: 5 * time.Millisecond})
}

// assertSerialized runs many goroutines under the same key and checks that
// no two of them were inside fn at once.
func assertSerialized(t *testing.T, l Locker, workers int) {
	t.Helper()

	var inside, maxInside, runs int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock(context.Background(), "test:alloc", func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					old := atomic.LoadInt32(&maxInside)
					if n <= old || atomic.CompareAndSwapInt32(&maxInside, old, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				atomic.AddInt32(&runs, 1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(workers), runs)
	assert.Equal(t, int32(1), maxInside)
}

func TestLocal_Serializes(t *testing.T) {
	assertSerialized(t, NewLocal(), 20)
}

func TestLocal_PropagatesError(t *testing.T) {
	want := errors.New("boom")
	err := NewLocal().WithLock(context.Background(), "k", func(context.Context) error { return want })
	assert.ErrorIs(t, err, want)
}

func TestLocal_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewLocal().WithLock(ctx, "k", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestLocal_KeysAreIndependent(t *testing.T) {
	l := NewLocal()
	done := make(chan struct{})

	err := l.WithLock(context.Background(), "a", func(context.Context) error {
		go func() {
			defer close(done)
			_ = l.WithLock(context.Background(), "b", func(context.Context) error { return nil })
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("lock b blocked behind lock a")
		}
		return nil
	})
	require.NoError(t, err)
}

func TestRedis_Serializes(t *testing.T) {
	assertSerialized(t, newTestRedis(t), 8)
}

func TestRedis_PropagatesError(t *testing.T) {
	r := newTestRedis(t)
	want := errors.New("boom")

	err := r.WithLock(context.Background(), "k", func(context.Context) error { return want })
	assert.ErrorIs(t, err, want)

	// The lock must have been released despite the error.
	err = r.WithLock(context.Background(), "k", func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestRedis_EmptyKey(t *testing.T) {
	err := newTestRedis(t).WithLock(context.Background(), "  ", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrEmptyKey)
}
