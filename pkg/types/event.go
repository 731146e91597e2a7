package types

import (
	"encoding/json"
	"strconv"
)

// Event is a single record on the generation stream.
type Event interface {
	EventType() string
}

// TodoID is an opaque identity key for todo entries. The backend emits it
// as either a JSON string or a JSON number; both decode to the same key and
// are compared by equality only.
type TodoID string

// UnmarshalJSON accepts string and number forms.
func (id *TodoID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TodoID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = TodoID(n.String())
	return nil
}

// TodoIDFromInt builds a TodoID from a numeric id.
func TodoIDFromInt(n int) TodoID {
	return TodoID(strconv.Itoa(n))
}

// Todo is one entry in the generation plan.
type Todo struct {
	ID         TodoID `json:"id"`
	Task       string `json:"task"`
	Completed  bool   `json:"completed"`
	Generating bool   `json:"generating,omitempty"`
}

// ThinkingEvent carries a progress narration message.
type ThinkingEvent struct {
	Type    string `json:"type"` // always "thinking"
	Message string `json:"message"`
}

func (e *ThinkingEvent) EventType() string { return "thinking" }

// ConversationEvent is a terminal conversational reply for prompts that do
// not ask for a web page. No project is created.
type ConversationEvent struct {
	Type    string `json:"type"` // always "conversation"
	Message string `json:"message"`
	Intent  string `json:"intent,omitempty"`
}

func (e *ConversationEvent) EventType() string { return "conversation" }

// TodoTypingEvent streams a partial task text while a todo is being typed out.
type TodoTypingEvent struct {
	Type        string `json:"type"` // always "todo_typing"
	TodoID      TodoID `json:"todo_id"`
	PartialTask string `json:"partial_task"`
}

func (e *TodoTypingEvent) EventType() string { return "todo_typing" }

// TodoItemEvent carries a complete todo entry.
type TodoItemEvent struct {
	Type string `json:"type"` // always "todo_item"
	Todo Todo   `json:"todo"`
}

func (e *TodoItemEvent) EventType() string { return "todo_item" }

// TodoCompleteEvent marks the end of plan generation.
type TodoCompleteEvent struct {
	Type string `json:"type"` // always "todo_complete"
}

func (e *TodoCompleteEvent) EventType() string { return "todo_complete" }

// DescriptionEvent replaces the project description.
type DescriptionEvent struct {
	Type        string `json:"type"` // always "description"
	Description string `json:"description"`
}

func (e *DescriptionEvent) EventType() string { return "description" }

// ProjectCreatedEvent announces the persisted project id.
type ProjectCreatedEvent struct {
	Type      string `json:"type"` // always "project_created"
	ProjectID string `json:"project_id"`
}

func (e *ProjectCreatedEvent) EventType() string { return "project_created" }

// TaskStartEvent marks a todo as the one currently being worked on.
type TaskStartEvent struct {
	Type   string `json:"type"` // always "task_start"
	TaskID TodoID `json:"task_id"`
	Task   string `json:"task,omitempty"`
}

func (e *TaskStartEvent) EventType() string { return "task_start" }

// TaskCompleteEvent marks a todo as done.
type TaskCompleteEvent struct {
	Type           string `json:"type"` // always "task_complete"
	TaskID         TodoID `json:"task_id"`
	CompletedCount int    `json:"completed_count,omitempty"`
	TotalTasks     int    `json:"total_tasks,omitempty"`
}

func (e *TaskCompleteEvent) EventType() string { return "task_complete" }

// CodeStartEvent announces a file under construction.
type CodeStartEvent struct {
	Type string `json:"type"` // always "code_start"
	File string `json:"file"`
}

func (e *CodeStartEvent) EventType() string { return "code_start" }

// CodeLineEvent appends a chunk to a file's content.
type CodeLineEvent struct {
	Type string `json:"type"` // always "code_line"
	File string `json:"file"`
	Line string `json:"line"`
}

func (e *CodeLineEvent) EventType() string { return "code_line" }

// CodeCompleteEvent carries the authoritative full content of a file,
// superseding any accumulated code_line chunks.
type CodeCompleteEvent struct {
	Type     string `json:"type"` // always "code_complete"
	File     string `json:"file"`
	Content  string `json:"content"`
	FileSize int    `json:"file_size,omitempty"`
}

func (e *CodeCompleteEvent) EventType() string { return "code_complete" }

// CodeGeneratedEvent is advisory: all files have been handed to persistence.
// It carries no authority over file content and may or may not name the
// project, so consumers must not rely on its timing.
type CodeGeneratedEvent struct {
	Type      string `json:"type"` // always "code_generated"
	ProjectID string `json:"project_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

func (e *CodeGeneratedEvent) EventType() string { return "code_generated" }

// TokensUpdateEvent refreshes the token budget mid-stream.
type TokensUpdateEvent struct {
	Type            string `json:"type"` // always "tokens_update"
	RemainingTokens int    `json:"remaining_tokens"`
	TokenLimit      int    `json:"token_limit"`
}

func (e *TokensUpdateEvent) EventType() string { return "tokens_update" }

// CompleteEvent is the successful terminal record. Its payload is
// authoritative over everything accumulated from earlier partial events.
type CompleteEvent struct {
	Type            string `json:"type"` // always "complete"
	ProjectID       string `json:"project_id"`
	TodoList        []Todo `json:"todo_list"`
	Description     string `json:"description"`
	RemainingTokens int    `json:"remaining_tokens"`
	TokenLimit      int    `json:"token_limit"`
	TokensUsed      int    `json:"tokens_used,omitempty"`
}

func (e *CompleteEvent) EventType() string { return "complete" }

// ErrorEvent is the failed terminal record.
type ErrorEvent struct {
	Type    string `json:"type"` // always "error"
	Message string `json:"message"`
}

func (e *ErrorEvent) EventType() string { return "error" }

// rawEvent is used to probe the type discriminator.
type rawEvent struct {
	Type string `json:"type"`
}

// ErrUnknownEventType is returned by UnmarshalEvent for discriminators this
// version does not know. Callers should skip such records.
type ErrUnknownEventType struct {
	Type string
}

func (e *ErrUnknownEventType) Error() string {
	return "unknown event type: " + e.Type
}

// UnmarshalEvent unmarshals a JSON stream record into the appropriate type.
func UnmarshalEvent(data []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	var ev Event
	switch raw.Type {
	case "thinking":
		ev = &ThinkingEvent{}
	case "conversation":
		ev = &ConversationEvent{}
	case "todo_typing":
		ev = &TodoTypingEvent{}
	case "todo_item":
		ev = &TodoItemEvent{}
	case "todo_complete":
		ev = &TodoCompleteEvent{}
	case "description":
		ev = &DescriptionEvent{}
	case "project_created":
		ev = &ProjectCreatedEvent{}
	case "task_start":
		ev = &TaskStartEvent{}
	case "task_complete":
		ev = &TaskCompleteEvent{}
	case "code_start":
		ev = &CodeStartEvent{}
	case "code_line":
		ev = &CodeLineEvent{}
	case "code_complete":
		ev = &CodeCompleteEvent{}
	case "code_generated":
		ev = &CodeGeneratedEvent{}
	case "tokens_update":
		ev = &TokensUpdateEvent{}
	case "complete":
		ev = &CompleteEvent{}
	case "error":
		ev = &ErrorEvent{}
	default:
		return nil, &ErrUnknownEventType{Type: raw.Type}
	}

	if err := json.Unmarshal(data, ev); err != nil {
		return nil, err
	}
	return ev, nil
}
