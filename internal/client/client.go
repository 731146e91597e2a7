// Package client is the HTTP backend client. It implements build.Backend
// against a running pageforge server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pageforge-ai/pageforge/internal/filesync"
	"github.com/pageforge-ai/pageforge/internal/logging"
	"github.com/pageforge-ai/pageforge/pkg/types"
)

// Client talks to a pageforge server over HTTP.
type Client struct {
	baseURL string
	// rest has a timeout; stream must not, generation runs for minutes.
	rest   *http.Client
	stream *http.Client
	log    zerolog.Logger
}

// New creates a client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		rest:    &http.Client{Timeout: 30 * time.Second},
		stream:  &http.Client{},
		log:     logging.Component("client"),
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Name   string `json:"name,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// StartGenerationStream opens the generation event stream for prompt.
// The caller owns the returned body and must close it.
func (c *Client) StartGenerationStream(ctx context.Context, prompt string) (io.ReadCloser, error) {
	body, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ai/create-project-stream", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open generation stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("generation request failed: %s", readError(resp))
	}

	c.log.Debug().Str("url", req.URL.String()).Msg("Generation stream opened")
	return resp.Body, nil
}

// GetFiles fetches the persisted file set for a project. A 404 maps to
// filesync.ErrNotFound so the retry loop treats it as transient; server
// errors map to filesync.ErrTransient.
func (c *Client) GetFiles(ctx context.Context, projectID string) (*types.ProjectFiles, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/projects/"+projectID+"/files", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.rest.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", filesync.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, filesync.ErrNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: server returned %d", filesync.ErrTransient, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("files request failed: %s", readError(resp))
	}

	var files types.ProjectFiles
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return nil, fmt.Errorf("failed to decode files response: %w", err)
	}
	return &files, nil
}

// GetTokenInfo fetches the current token budget.
func (c *Client) GetTokenInfo(ctx context.Context) (*types.TokenInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ai/tokens", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.rest.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tokens request failed: %s", readError(resp))
	}

	var info types.TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode token info: %w", err)
	}
	return &info, nil
}

// ListProjects fetches all projects.
func (c *Client) ListProjects(ctx context.Context) ([]*types.Project, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/projects", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.rest.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("projects request failed: %s", readError(resp))
	}

	var projects []*types.Project
	if err := json.NewDecoder(resp.Body).Decode(&projects); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}
	return projects, nil
}

// readError extracts the error detail from a non-2xx response body.
func readError(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(data) == 0 {
		return resp.Status
	}
	var e errorResponse
	if json.Unmarshal(data, &e) == nil && e.Detail != "" {
		return e.Detail
	}
	return string(data)
}
