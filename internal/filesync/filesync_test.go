package filesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge-ai/pageforge/pkg/types"
)

// scriptedStore fails a fixed number of times before succeeding.
type scriptedStore struct {
	mu       sync.Mutex
	calls    int
	failures int
	failWith error
	files    *types.ProjectFiles
}

func (s *scriptedStore) GetFiles(ctx context.Context, projectID string) (*types.ProjectFiles, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return nil, s.failWith
	}
	if s.files != nil {
		return s.files, nil
	}
	return &types.ProjectFiles{ProjectID: projectID}, nil
}

func (s *scriptedStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}
}

func TestLoader_SucceedsOnThirdAttempt(t *testing.T) {
	store := &scriptedStore{failures: 2, failWith: ErrNotFound}
	loader := NewLoader(store, fastPolicy())

	files, err := loader.Load(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", files.ProjectID)
	assert.Equal(t, 3, store.callCount())
}

func TestLoader_ExhaustsRetryBudget(t *testing.T) {
	store := &scriptedStore{failures: 100, failWith: ErrNotFound}
	loader := NewLoader(store, fastPolicy())

	_, err := loader.Load(context.Background(), "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFilesUnavailable)
	assert.Equal(t, 3, store.callCount())
}

func TestLoader_PermanentErrorAbortsImmediately(t *testing.T) {
	permanent := errors.New("permission denied")
	store := &scriptedStore{failures: 100, failWith: permanent}
	loader := NewLoader(store, fastPolicy())

	_, err := loader.Load(context.Background(), "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, permanent)
	assert.NotErrorIs(t, err, ErrFilesUnavailable)
	assert.Equal(t, 1, store.callCount())
}

func TestLoader_WrappedTransientErrorRetries(t *testing.T) {
	store := &scriptedStore{
		failures: 1,
		failWith: fmt.Errorf("fetch p1: %w", ErrTransient),
	}
	loader := NewLoader(store, fastPolicy())

	_, err := loader.Load(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.callCount())
}

// blockingStore holds every call until released, counting entries.
type blockingStore struct {
	entered atomic.Int32
	release chan struct{}
}

func (s *blockingStore) GetFiles(ctx context.Context, projectID string) (*types.ProjectFiles, error) {
	s.entered.Add(1)
	<-s.release
	return &types.ProjectFiles{ProjectID: projectID}, nil
}

func TestLoader_CoalescesConcurrentLoads(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	loader := NewLoader(store, fastPolicy())

	var wg sync.WaitGroup
	results := make([]*types.ProjectFiles, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			files, err := loader.Load(context.Background(), "p1")
			require.NoError(t, err)
			results[i] = files
		}(i)
	}

	// Let the goroutines attach to the in-flight fetch, then release it.
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	assert.Equal(t, int32(1), store.entered.Load())
	for _, files := range results {
		assert.Equal(t, "p1", files.ProjectID)
	}
}

func TestLoader_ContextCancellationStopsRetries(t *testing.T) {
	store := &scriptedStore{failures: 100, failWith: ErrNotFound}
	loader := NewLoader(store, Policy{MaxAttempts: 3, BaseDelay: time.Hour, Multiplier: 2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := loader.Load(ctx, "p1")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("load did not stop after cancellation")
	}
	assert.Equal(t, 1, store.callCount())
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.Equal(t, 2.0, p.Multiplier)
}
