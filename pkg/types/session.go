// Package types provides the core data types for the PageForge client and server.
package types

// Phase is the lifecycle state of a build session.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseThinking       Phase = "thinking"
	PhaseGenerating     Phase = "generating"
	PhaseAwaitingFiles  Phase = "awaiting_files"
	PhaseReady          Phase = "ready"
	PhaseConversational Phase = "conversational"
	PhaseFailed         Phase = "failed"
)

// Terminal reports whether no further stream events may change the phase.
func (p Phase) Terminal() bool {
	return p == PhaseReady || p == PhaseConversational || p == PhaseFailed
}

// TokenInfo is the token budget surfaced by the backend.
type TokenInfo struct {
	Remaining int `json:"remaining"`
	Limit     int `json:"limit"`
	Used      int `json:"used,omitempty"`
}

// SessionState is the authoritative state of one build session, folded from
// the stream's event sequence. It is published to observers as snapshots and
// never mutated after publication.
type SessionState struct {
	Phase       Phase             `json:"phase"`
	Status      string            `json:"status,omitempty"` // latest thinking narration
	Todos       []Todo            `json:"todos,omitempty"`
	Description string            `json:"description,omitempty"`
	Files       map[string]string `json:"files,omitempty"` // filename -> content
	ProjectID   string            `json:"projectID,omitempty"`
	Tokens      TokenInfo         `json:"tokens"`

	// Error holds the generation failure message when Phase is failed.
	Error string `json:"error,omitempty"`

	// FilesUnavailable is set when generation succeeded but the persisted
	// files could not be read within the retry budget. Distinct from Error
	// so callers can tell "the AI failed" from "files aren't readable yet".
	FilesUnavailable bool `json:"filesUnavailable,omitempty"`
}

// NewSessionState returns the initial state for a fresh session.
func NewSessionState() SessionState {
	return SessionState{Phase: PhaseIdle}
}

// Clone returns a deep copy, safe to hand to observers.
func (s SessionState) Clone() SessionState {
	out := s
	if s.Todos != nil {
		out.Todos = make([]Todo, len(s.Todos))
		copy(out.Todos, s.Todos)
	}
	if s.Files != nil {
		out.Files = make(map[string]string, len(s.Files))
		for k, v := range s.Files {
			out.Files[k] = v
		}
	}
	return out
}

// Todo returns the todo with the given id, if present.
func (s SessionState) Todo(id TodoID) (Todo, bool) {
	for _, t := range s.Todos {
		if t.ID == id {
			return t, true
		}
	}
	return Todo{}, false
}
