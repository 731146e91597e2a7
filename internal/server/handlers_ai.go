package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pageforge-ai/pageforge/internal/logging"
	"github.com/pageforge-ai/pageforge/pkg/types"
)

// generateRequest is the body for POST /ai/create-project-stream.
type generateRequest struct {
	Prompt string `json:"prompt"`
	Name   string `json:"name,omitempty"`
}

// createProjectStream handles POST /ai/create-project-stream: the
// generation pipeline streamed as SSE data records, one JSON event per
// record.
func (s *Server) createProjectStream(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required and cannot be empty")
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sse.prepare()

	log := logging.Component("server")
	err = s.generator.Run(r.Context(), req.Prompt, req.Name, func(ev types.Event) error {
		return sse.writeData(ev)
	})
	if err != nil {
		// The client is gone or the request was cancelled; the stream
		// cannot carry an error record anymore.
		log.Debug().Err(err).Msg("Generation stream ended early")
	}
}

// getTokenInfo handles GET /ai/tokens.
func (s *Server) getTokenInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.budget.Info())
}
