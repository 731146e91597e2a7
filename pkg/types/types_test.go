package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalEvent_Thinking(t *testing.T) {
	ev, err := UnmarshalEvent([]byte(`{"type":"thinking","message":"Analyzing requirements..."}`))
	require.NoError(t, err)

	thinking, ok := ev.(*ThinkingEvent)
	require.True(t, ok)
	assert.Equal(t, "Analyzing requirements...", thinking.Message)
	assert.Equal(t, "thinking", ev.EventType())
}

func TestUnmarshalEvent_TodoItem(t *testing.T) {
	ev, err := UnmarshalEvent([]byte(`{"type":"todo_item","todo":{"id":2,"task":"Create HTML structure","completed":false}}`))
	require.NoError(t, err)

	item, ok := ev.(*TodoItemEvent)
	require.True(t, ok)
	assert.Equal(t, TodoID("2"), item.Todo.ID)
	assert.Equal(t, "Create HTML structure", item.Todo.Task)
	assert.False(t, item.Todo.Completed)
}

func TestUnmarshalEvent_Complete(t *testing.T) {
	data := `{"type":"complete","project_id":"p1","todo_list":[{"id":"t1","task":"x","completed":true}],"description":"A page","remaining_tokens":950,"token_limit":1000}`
	ev, err := UnmarshalEvent([]byte(data))
	require.NoError(t, err)

	complete, ok := ev.(*CompleteEvent)
	require.True(t, ok)
	assert.Equal(t, "p1", complete.ProjectID)
	assert.Len(t, complete.TodoList, 1)
	assert.Equal(t, 950, complete.RemainingTokens)
	assert.Equal(t, 1000, complete.TokenLimit)
}

func TestUnmarshalEvent_UnknownType(t *testing.T) {
	_, err := UnmarshalEvent([]byte(`{"type":"telemetry","payload":123}`))
	require.Error(t, err)

	var unknown *ErrUnknownEventType
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "telemetry", unknown.Type)
}

func TestUnmarshalEvent_Malformed(t *testing.T) {
	_, err := UnmarshalEvent([]byte(`{"type":"thinking",`))
	assert.Error(t, err)
}

func TestTodoID_StringAndNumberForms(t *testing.T) {
	var a, b TodoID
	require.NoError(t, json.Unmarshal([]byte(`"7"`), &a))
	require.NoError(t, json.Unmarshal([]byte(`7`), &b))
	assert.Equal(t, a, b)
	assert.Equal(t, TodoIDFromInt(7), a)
}

func TestPhase_Terminal(t *testing.T) {
	assert.True(t, PhaseReady.Terminal())
	assert.True(t, PhaseConversational.Terminal())
	assert.True(t, PhaseFailed.Terminal())
	assert.False(t, PhaseIdle.Terminal())
	assert.False(t, PhaseThinking.Terminal())
	assert.False(t, PhaseGenerating.Terminal())
	assert.False(t, PhaseAwaitingFiles.Terminal())
}

func TestSessionState_Clone(t *testing.T) {
	state := SessionState{
		Phase:       PhaseGenerating,
		Todos:       []Todo{{ID: "1", Task: "a"}},
		Files:       map[string]string{"index.html": "<html>"},
		Description: "desc",
	}

	clone := state.Clone()
	clone.Todos[0].Task = "changed"
	clone.Files["index.html"] = "changed"

	assert.Equal(t, "a", state.Todos[0].Task)
	assert.Equal(t, "<html>", state.Files["index.html"])
}

func TestProjectFiles_Map(t *testing.T) {
	files := ProjectFiles{
		ProjectID: "p1",
		Files: []ProjectFile{
			{Filename: "index.html", Content: "<html></html>"},
			{Filename: "style.css", Content: "body {}"},
		},
	}

	m := files.Map()
	assert.Len(t, m, 2)
	assert.Equal(t, "<html></html>", m["index.html"])
	assert.Equal(t, "body {}", m["style.css"])
}
