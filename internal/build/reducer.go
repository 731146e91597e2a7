// Package build contains the client-side build orchestrator: the session
// state reducer, the generation session controller, and the token budget
// tracker. It consumes the decoded event stream and folds it into an
// authoritative, replayable session state.
package build

import (
	"github.com/pageforge-ai/pageforge/internal/logging"
	"github.com/pageforge-ai/pageforge/pkg/types"
)

// Apply folds one stream event into the session state and returns the next
// state. The input state is never mutated, so snapshots handed to observers
// stay immutable. Once the state is terminal every further event is a no-op.
func Apply(state types.SessionState, ev types.Event) types.SessionState {
	if state.Phase.Terminal() {
		return state
	}

	next := state.Clone()

	switch e := ev.(type) {
	case *types.ThinkingEvent:
		next.Phase = types.PhaseThinking
		next.Status = e.Message

	case *types.ConversationEvent:
		next.Phase = types.PhaseConversational
		next.Description = e.Message

	case *types.TodoTypingEvent:
		next.Phase = types.PhaseGenerating
		upsertTodo(&next, e.TodoID, func(t *types.Todo) {
			t.Task = e.PartialTask
			t.Completed = false
		})

	case *types.TodoItemEvent:
		upsertTodo(&next, e.Todo.ID, func(t *types.Todo) {
			*t = e.Todo
		})

	case *types.TodoCompleteEvent:
		next.Phase = types.PhaseGenerating

	case *types.DescriptionEvent:
		// Last writer wins, even if shorter.
		next.Description = e.Description

	case *types.ProjectCreatedEvent:
		if next.ProjectID == "" {
			next.ProjectID = e.ProjectID
		} else if next.ProjectID != e.ProjectID {
			// First id wins; a second differing id is a backend bug.
			log := logging.Component("reducer")
			log.Error().
				Str("projectID", next.ProjectID).
				Str("conflictingID", e.ProjectID).
				Msg("ignoring conflicting project_created")
		}

	case *types.TaskStartEvent:
		next.Phase = types.PhaseGenerating
		// Only one task may be in progress: the backend is a single-writer,
		// so a new task_start implicitly ends whatever was generating.
		for i := range next.Todos {
			next.Todos[i].Generating = false
		}
		upsertTodo(&next, e.TaskID, func(t *types.Todo) {
			t.Generating = true
			t.Completed = false
			if t.Task == "" {
				t.Task = e.Task
			}
		})

	case *types.TaskCompleteEvent:
		upsertTodo(&next, e.TaskID, func(t *types.Todo) {
			t.Completed = true
			t.Generating = false
		})

	case *types.CodeStartEvent:
		next.Phase = types.PhaseGenerating
		ensureFile(&next, e.File)

	case *types.CodeLineEvent:
		ensureFile(&next, e.File)
		next.Files[e.File] += e.Line

	case *types.CodeCompleteEvent:
		// Authoritative full content supersedes accumulated code_line chunks.
		ensureFile(&next, e.File)
		next.Files[e.File] = e.Content

	case *types.CodeGeneratedEvent:
		// Advisory only; the controller may use it as a sync hint.

	case *types.TokensUpdateEvent:
		next.Tokens = types.TokenInfo{
			Remaining: e.RemainingTokens,
			Limit:     e.TokenLimit,
		}

	case *types.CompleteEvent:
		next.Phase = types.PhaseReady
		next.Status = ""
		next.Description = e.Description
		next.Tokens = types.TokenInfo{
			Remaining: e.RemainingTokens,
			Limit:     e.TokenLimit,
			Used:      e.TokensUsed,
		}
		next.Todos = make([]types.Todo, len(e.TodoList))
		copy(next.Todos, e.TodoList)
		if next.ProjectID == "" {
			next.ProjectID = e.ProjectID
		}

	case *types.ErrorEvent:
		next.Phase = types.PhaseFailed
		next.Error = e.Message
	}

	return next
}

// upsertTodo mutates the todo with the given id, creating it at the end of
// the list when absent. Events may address ids the state has not seen yet.
func upsertTodo(state *types.SessionState, id types.TodoID, fn func(*types.Todo)) {
	for i := range state.Todos {
		if state.Todos[i].ID == id {
			fn(&state.Todos[i])
			return
		}
	}
	todo := types.Todo{ID: id}
	fn(&todo)
	state.Todos = append(state.Todos, todo)
}

// ensureFile guarantees a file entry exists with at least empty content.
func ensureFile(state *types.SessionState, file string) {
	if state.Files == nil {
		state.Files = make(map[string]string)
	}
	if _, ok := state.Files[file]; !ok {
		state.Files[file] = ""
	}
}
