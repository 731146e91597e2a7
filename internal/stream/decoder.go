// Package stream decodes the line-oriented generation event stream.
//
// The backend emits one record per line in the SSE data framing used by the
// hosted generation service: a "data: " marker followed by a JSON object with
// a "type" discriminator. The decoder is lazy, non-restartable, and preserves
// arrival order; it never reorders or buffers ahead.
package stream

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pageforge-ai/pageforge/internal/logging"
	"github.com/pageforge-ai/pageforge/pkg/types"
)

// dataPrefix is the marker token that starts every event record.
const dataPrefix = "data: "

// maxRecordSize bounds a single record. code_complete events carry whole
// source files, so the default scanner buffer is far too small.
const maxRecordSize = 4 << 20

// Decoder turns a raw byte stream into a sequence of typed events.
type Decoder struct {
	scanner  *bufio.Scanner
	log      zerolog.Logger
	terminal bool // a terminal event has been decoded
	closing  bool // underlying stream is exhausted
	done     bool // io.EOF has been returned
	dropped  int
}

// NewDecoder creates a decoder over r. The decoder does not close r.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	return &Decoder{scanner: sc, log: logging.Component("decoder")}
}

// Next returns the next decoded event in arrival order. Malformed lines are
// dropped with a diagnostic and never abort the stream. If the stream ends
// without a terminal event, Next synthesizes error{"stream ended
// unexpectedly"} before reporting io.EOF, so a consumer cannot hang in a
// non-terminal phase.
func (d *Decoder) Next() (types.Event, error) {
	if d.done {
		return nil, io.EOF
	}
	if d.closing {
		return d.finish()
	}

	for d.scanner.Scan() {
		line := strings.TrimRight(d.scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			// SSE record separators and heartbeat comments
			continue
		}

		payload, ok := strings.CutPrefix(line, dataPrefix)
		if !ok {
			d.dropped++
			d.log.Warn().Str("line", truncate(line, 120)).Msg("dropping line without event marker")
			continue
		}

		ev, err := types.UnmarshalEvent([]byte(payload))
		if err != nil {
			d.dropped++
			var unknown *types.ErrUnknownEventType
			if errors.As(err, &unknown) {
				d.log.Debug().Str("eventType", unknown.Type).Msg("skipping unknown event type")
			} else {
				d.log.Warn().Err(err).Str("line", truncate(payload, 120)).Msg("dropping malformed event line")
			}
			continue
		}

		if isTerminal(ev) {
			d.terminal = true
		}
		return ev, nil
	}

	if err := d.scanner.Err(); err != nil {
		d.log.Warn().Err(err).Msg("stream read failed")
	}
	d.closing = true
	return d.finish()
}

// finish handles end-of-stream: one synthesized error event if the backend
// never sent a terminal record, then io.EOF forever.
func (d *Decoder) finish() (types.Event, error) {
	d.done = true
	if !d.terminal {
		d.terminal = true
		return &types.ErrorEvent{Type: "error", Message: "stream ended unexpectedly"}, nil
	}
	return nil, io.EOF
}

// Dropped returns the number of lines discarded so far.
func (d *Decoder) Dropped() int {
	return d.dropped
}

// isTerminal reports whether ev ends the session.
func isTerminal(ev types.Event) bool {
	switch ev.(type) {
	case *types.CompleteEvent, *types.ConversationEvent, *types.ErrorEvent:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
