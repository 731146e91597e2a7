package stream

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge-ai/pageforge/pkg/types"
)

func decodeAll(t *testing.T, input string) []types.Event {
	t.Helper()
	d := NewDecoder(strings.NewReader(input))
	var events []types.Event
	for {
		ev, err := d.Next()
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestDecoder_OrderedEvents(t *testing.T) {
	input := "data: {\"type\":\"thinking\",\"message\":\"one\"}\n" +
		"\n" +
		"data: {\"type\":\"description\",\"description\":\"two\"}\n" +
		"data: {\"type\":\"complete\",\"project_id\":\"p1\"}\n"

	events := decodeAll(t, input)
	require.Len(t, events, 3)
	assert.Equal(t, "thinking", events[0].EventType())
	assert.Equal(t, "description", events[1].EventType())
	assert.Equal(t, "complete", events[2].EventType())
}

func TestDecoder_SkipsHeartbeatsAndBlankLines(t *testing.T) {
	input := ": heartbeat\n" +
		"\n" +
		"data: {\"type\":\"thinking\",\"message\":\"hi\"}\n" +
		": heartbeat\n" +
		"data: {\"type\":\"error\",\"message\":\"boom\"}\n"

	events := decodeAll(t, input)
	require.Len(t, events, 2)
}

func TestDecoder_DropsMalformedLinesWithoutAborting(t *testing.T) {
	input := "data: {not json at all\n" +
		"garbage without marker\n" +
		"data: {\"type\":\"thinking\",\"message\":\"survived\"}\n" +
		"data: {\"type\":\"complete\",\"project_id\":\"p1\"}\n"

	d := NewDecoder(strings.NewReader(input))

	ev, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "thinking", ev.EventType())

	ev, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, "complete", ev.EventType())

	_, err = d.Next()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, d.Dropped())
}

func TestDecoder_SkipsUnknownEventTypes(t *testing.T) {
	input := "data: {\"type\":\"telemetry\",\"x\":1}\n" +
		"data: {\"type\":\"complete\",\"project_id\":\"p1\"}\n"

	events := decodeAll(t, input)
	require.Len(t, events, 1)
	assert.Equal(t, "complete", events[0].EventType())
}

func TestDecoder_SynthesizesErrorOnAbruptEnd(t *testing.T) {
	input := "data: {\"type\":\"thinking\",\"message\":\"working\"}\n" +
		"data: {\"type\":\"code_start\",\"file\":\"index.html\"}\n"

	d := NewDecoder(strings.NewReader(input))

	_, err := d.Next()
	require.NoError(t, err)
	_, err = d.Next()
	require.NoError(t, err)

	ev, err := d.Next()
	require.NoError(t, err)
	errEv, ok := ev.(*types.ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, "stream ended unexpectedly", errEv.Message)

	_, err = d.Next()
	assert.Equal(t, io.EOF, err)

	// Non-restartable: stays at EOF
	_, err = d.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDecoder_NoSyntheticErrorAfterTerminal(t *testing.T) {
	input := "data: {\"type\":\"conversation\",\"message\":\"hello\"}\n"

	d := NewDecoder(strings.NewReader(input))

	ev, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "conversation", ev.EventType())

	_, err = d.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDecoder_EmptyStream(t *testing.T) {
	d := NewDecoder(strings.NewReader(""))

	ev, err := d.Next()
	require.NoError(t, err)
	_, ok := ev.(*types.ErrorEvent)
	assert.True(t, ok)

	_, err = d.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDecoder_CRLFLines(t *testing.T) {
	input := "data: {\"type\":\"thinking\",\"message\":\"win\"}\r\n" +
		"data: {\"type\":\"complete\",\"project_id\":\"p1\"}\r\n"

	events := decodeAll(t, input)
	require.Len(t, events, 2)
	assert.Equal(t, "win", events[0].(*types.ThinkingEvent).Message)
}
