// Package filesync reconciles a completed build with the eventually
// consistent project file store. The backend persists files asynchronously
// relative to the stream's completion signal, so a fetch immediately after
// complete may legitimately miss; the loader retries with exponential
// backoff before declaring the files unavailable.
package filesync

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/pageforge-ai/pageforge/internal/logging"
	"github.com/pageforge-ai/pageforge/pkg/types"
)

var (
	// ErrNotFound is returned by stores while persistence is catching up.
	// It is an expected transient condition, not a hard failure.
	ErrNotFound = errors.New("files not found")

	// ErrTransient marks a retryable store failure, e.g. a dropped
	// connection. Stores wrap errors with it to request a retry.
	ErrTransient = errors.New("transient store failure")

	// ErrFilesUnavailable is surfaced after the retry budget is exhausted.
	// The files may still appear later; a manual refresh is required.
	ErrFilesUnavailable = errors.New("files unavailable")
)

// FileStore fetches the authoritative file set for a project.
type FileStore interface {
	GetFiles(ctx context.Context, projectID string) (*types.ProjectFiles, error)
}

// Policy parameterizes the retry behavior so tests can run with
// millisecond delays.
type Policy struct {
	// MaxAttempts is the total number of fetches, including the first.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration
	// Multiplier scales the delay after each attempt.
	Multiplier float64
}

// DefaultPolicy matches the backend's observed persistence lag: three
// attempts, one second base delay, doubling.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2}
}

// backOff builds the cenkalti/backoff chain for one load. No jitter: the
// loader serves a single client, and deterministic waits keep tests exact.
func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = p.BaseDelay * time.Duration(1<<uint(p.MaxAttempts))
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
}

// Loader is the file-sync retry controller. Concurrent loads for the same
// project id are coalesced into one in-flight fetch.
type Loader struct {
	store  FileStore
	policy Policy
	group  singleflight.Group
	log    zerolog.Logger
}

// NewLoader creates a loader with the given store and policy.
func NewLoader(store FileStore, policy Policy) *Loader {
	if policy.MaxAttempts <= 0 {
		policy = DefaultPolicy()
	}
	return &Loader{
		store:  store,
		policy: policy,
		log:    logging.Component("filesync"),
	}
}

// Load fetches the project's files, retrying transient failures per the
// policy. A call arriving while a load for the same project id is in flight
// attaches to that attempt instead of starting a duplicate.
func (l *Loader) Load(ctx context.Context, projectID string) (*types.ProjectFiles, error) {
	v, err, _ := l.group.Do(projectID, func() (any, error) {
		return l.load(ctx, projectID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.ProjectFiles), nil
}

func (l *Loader) load(ctx context.Context, projectID string) (*types.ProjectFiles, error) {
	var files *types.ProjectFiles
	attempt := 0

	op := func() error {
		attempt++
		var err error
		files, err = l.store.GetFiles(ctx, projectID)
		if err == nil {
			return nil
		}
		if transient(err) {
			l.log.Debug().
				Str("projectID", projectID).
				Int("attempt", attempt).
				Err(err).
				Msg("file fetch not ready, will retry")
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, l.policy.backOff(ctx)); err != nil {
		if transient(err) {
			l.log.Warn().
				Str("projectID", projectID).
				Int("attempts", attempt).
				Msg("retry budget exhausted")
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrFilesUnavailable, attempt, err)
		}
		return nil, err
	}
	return files, nil
}

// transient reports whether an error is worth retrying: persistence lag,
// an explicitly transient store failure, or a network timeout.
func transient(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTransient) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
