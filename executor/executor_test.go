package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRunsJobAndReturnsResult(t *testing.T) {
	e := New(DefaultConfig())
	defer e.Shutdown()

	future, err := e.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)

	result, err := future.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestSubmitPropagatesJobError(t *testing.T) {
	e := New(DefaultConfig())
	defer e.Shutdown()

	wantErr := errors.New("boom")
	future, err := e.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, wantErr
	})
	require.NoError(t, err)

	_, err = future.Await(context.Background())
	assert.Equal(t, wantErr, err)
}

func TestManySubmissionsAllCompleteInAnyOrder(t *testing.T) {
	e := New(Config{Workers: 4, QueueCapacity: 16})
	defer e.Shutdown()

	const n = 200
	var completed int64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			future, err := e.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
				return i, nil
			})
			require.NoError(t, err)
			_, err = future.Await(context.Background())
			require.NoError(t, err)
			atomic.AddInt64(&completed, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(n), completed)
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	e := New(DefaultConfig())
	e.Shutdown()

	_, err := e.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShutDown)
}

func TestShutdownIsIdempotent(t *testing.T) {
	e := New(DefaultConfig())
	e.Shutdown()
	e.Shutdown()
}

func TestShutdownDrainsInFlightJobs(t *testing.T) {
	e := New(Config{Workers: 1, QueueCapacity: 8})

	var ran int32
	for i := 0; i < 5; i++ {
		_, err := e.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
			atomic.AddInt32(&ran, 1)
			return nil, nil
		})
		require.NoError(t, err)
	}
	e.Shutdown()
	assert.Equal(t, int32(5), atomic.LoadInt32(&ran))
}

func TestAwaitCancellationDoesNotAbortJob(t *testing.T) {
	e := New(DefaultConfig())
	defer e.Shutdown()

	started := make(chan struct{})
	finished := make(chan struct{})
	future, err := e.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		close(finished)
		return "done", nil
	})
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err = future.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	<-finished
	result, err := future.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", result)
}

func TestMetricsAreRegisteredWhenConfigured(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := New(Config{Workers: 1, QueueCapacity: 4, Metrics: reg})
	defer e.Shutdown()

	future, err := e.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, err)
	_, err = future.Await(context.Background())
	require.NoError(t, err)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}
