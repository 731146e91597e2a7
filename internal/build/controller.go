package build

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pageforge-ai/pageforge/internal/event"
	"github.com/pageforge-ai/pageforge/internal/filesync"
	"github.com/pageforge-ai/pageforge/internal/logging"
	"github.com/pageforge-ai/pageforge/internal/stream"
	"github.com/pageforge-ai/pageforge/pkg/types"
)

// Backend is the generation service the controller consumes. It is the only
// interface the orchestrator needs from the outside world.
type Backend interface {
	// StartGenerationStream begins a generation and returns the raw event
	// stream. The returned reader is owned by the caller.
	StartGenerationStream(ctx context.Context, prompt string) (io.ReadCloser, error)

	// GetFiles fetches the authoritative file set for a project. May return
	// filesync.ErrNotFound while persistence is catching up.
	GetFiles(ctx context.Context, projectID string) (*types.ProjectFiles, error)

	// GetTokenInfo returns the current token budget.
	GetTokenInfo(ctx context.Context) (*types.TokenInfo, error)
}

// Controller owns one logical in-flight build session at a time. A new
/// Start preempts the previous session: its stream is closed, its remaining
// events are fenced off by a generation counter, and its state is discarded.
//
// Snapshots are published synchronously after every applied event, so
// observers see states in exact event-arrival order. Snapshot callbacks run
// while the controller is locked and must not call back into it.
type Controller struct {
	backend Backend
	loader  *filesync.Loader
	tokens  *TokenTracker
	bus     *event.Bus
	log     zerolog.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	closer     io.Closer
	state      types.SessionState
}

// NewController creates a controller over the given backend. The loader's
// policy governs post-completion file syncing; bus may be nil, in which case
// a private bus is created.
func NewController(backend Backend, policy filesync.Policy, bus *event.Bus) *Controller {
	if bus == nil {
		bus = event.NewBus()
	}
	return &Controller{
		backend: backend,
		loader:  filesync.NewLoader(backend, policy),
		tokens:  NewTokenTracker(),
		bus:     bus,
		log:     logging.Component("build"),
		state:   types.NewSessionState(),
	}
}

// Subscribe registers an observer for session state snapshots. Returns an
// unsubscribe function.
func (c *Controller) Subscribe(fn func(types.SessionState)) func() {
	return c.bus.Subscribe(event.BuildSnapshot, func(e event.Event) {
		if data, ok := e.Data.(event.BuildSnapshotData); ok {
			fn(data.State)
		}
	})
}

// State returns a snapshot of the current session state.
func (c *Controller) State() types.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Tokens exposes the token budget tracker.
func (c *Controller) Tokens() *TokenTracker {
	return c.tokens
}

// Start begins a new build session for the prompt. Any active session is
/// preempted first: single-flight with preemption, not queuing. The stream is
// consumed on a background goroutine; observers follow along via Subscribe.
func (c *Controller) Start(ctx context.Context, prompt string) error {
	c.mu.Lock()
	c.preemptLocked()
	c.generation++
	gen := c.generation
	sessCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = types.NewSessionState()
	c.mu.Unlock()

	body, err := c.backend.StartGenerationStream(sessCtx, prompt)
	if err != nil {
		// Network-level failures funnel into the same Failed phase as
		// stream error events.
		c.applyEvent(gen, &types.ErrorEvent{Type: "error", Message: err.Error()})
		cancel()
		return err
	}

	c.mu.Lock()
	if gen != c.generation {
		// Preempted while dialing.
		c.mu.Unlock()
		body.Close()
		return context.Canceled
	}
	c.closer = body
	c.mu.Unlock()

	go c.consume(sessCtx, gen, body)
	return nil
}

// Cancel stops the active session, if any, and retires its state.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preemptLocked()
	c.state = types.NewSessionState()
	c.publishLocked()
}

// preemptLocked fences the active session. Bumping the generation makes any
// late-arriving events from the old stream provably inert; closing the
// stream releases the network resource. Server-side generation is not
// cancelled, matching the backend's contract.
func (c *Controller) preemptLocked() {
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.closer != nil {
		c.closer.Close()
		c.closer = nil
	}
}

// consume reads the session's stream to its end, applying each decoded
// event in arrival order. This goroutine is the session's only writer.
func (c *Controller) consume(ctx context.Context, gen uint64, body io.ReadCloser) {
	defer body.Close()

	// Request-time token info; stream events supersede it in applied order.
	if info, err := c.backend.GetTokenInfo(ctx); err == nil && info != nil {
		if c.isCurrent(gen) {
			c.tokens.Set(*info)
		}
	}

	dec := stream.NewDecoder(body)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev, err := dec.Next()
		if err == io.EOF {
			return
		}
		if !c.applyEvent(gen, ev) {
			return
		}

		switch e := ev.(type) {
		case *types.CompleteEvent:
			c.syncFiles(ctx, gen)
			return
		case *types.ConversationEvent, *types.ErrorEvent:
			// Terminal without files to fetch.
			return
		case *types.CodeGeneratedEvent:
			// Advisory: files may not be persisted yet, so no fetch here.
			c.log.Debug().Str("projectID", e.ProjectID).Msg("code_generated hint received")
		}
	}
}

// applyEvent folds an event into the session state if the generation still
// matches, and publishes the resulting snapshot. Returns false when the
// event belongs to a preempted session.
func (c *Controller) applyEvent(gen uint64, ev types.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.state = Apply(c.state, ev)
	c.tokens.Observe(ev)
	c.publishLocked()
	return true
}

// syncFiles reconciles the completed session with the file store. The
// persisted files may lag the stream's completion signal, so this goes
// through the retrying loader.
func (c *Controller) syncFiles(ctx context.Context, gen uint64) {
	c.mu.Lock()
	projectID := c.state.ProjectID
	if gen != c.generation || projectID == "" {
		c.mu.Unlock()
		return
	}
	c.state.Phase = types.PhaseAwaitingFiles
	c.publishLocked()
	c.mu.Unlock()

	files, err := c.loader.Load(ctx, projectID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.state.Phase = types.PhaseReady
	if err != nil {
		c.state.FilesUnavailable = true
		c.log.Warn().Str("projectID", projectID).Err(err).Msg("file sync failed")
		c.publishLocked()
		c.bus.PublishSync(event.Event{
			Type: event.FilesUnavailable,
			Data: event.FilesUnavailableData{ProjectID: projectID, Reason: err.Error()},
		})
		return
	}
	c.state.Files = files.Map()
	c.state.FilesUnavailable = false
	c.publishLocked()
	c.bus.PublishSync(event.Event{
		Type: event.FilesSynced,
		Data: event.FilesSyncedData{ProjectID: projectID, Files: files.Map()},
	})
}

// publishLocked publishes a snapshot of the current state. Callers hold mu,
// which keeps snapshots in apply order across preemptions.
func (c *Controller) publishLocked() {
	c.bus.PublishSync(event.Event{
		Type: event.BuildSnapshot,
		Data: event.BuildSnapshotData{State: c.state.Clone()},
	})
}

func (c *Controller) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.generation
}
