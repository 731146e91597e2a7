package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pageforge-ai/pageforge/internal/event"
	"github.com/pageforge-ai/pageforge/internal/generator"
	"github.com/pageforge-ai/pageforge/internal/project"
	"github.com/pageforge-ai/pageforge/internal/storage"
	"github.com/pageforge-ai/pageforge/internal/stream"
	"github.com/pageforge-ai/pageforge/pkg/types"
)

func setupTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	bus := event.NewBus()
	projects := project.NewService(storage.New(t.TempDir()), bus)

	cfg := DefaultConfig()
	cfg.EnableCORS = false
	cfg.StreamDelay = 0

	srv := New(cfg, projects, generator.NewTemplatePlanner(), generator.NewBudget(30000), bus)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		projects.Close()
		bus.Close()
	})
	return srv, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	_, ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %q", body["status"])
	}
}

func TestProjectCRUD(t *testing.T) {
	_, ts := setupTestServer(t)

	// Create
	resp := postJSON(t, ts.URL+"/projects", map[string]string{"name": "Coffee Shop", "description": "landing page"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var created types.Project
	decodeBody(t, resp, &created)
	if created.ID == "" {
		t.Fatal("Project ID should not be empty")
	}

	// Get
	resp, err := http.Get(ts.URL + "/projects/" + created.ID)
	if err != nil {
		t.Fatal(err)
	}
	var fetched types.Project
	decodeBody(t, resp, &fetched)
	if fetched.Name != "Coffee Shop" {
		t.Errorf("Name mismatch: got %q", fetched.Name)
	}

	// Patch
	patch, _ := json.Marshal(map[string]string{"name": "Renamed"})
	req, _ := http.NewRequest(http.MethodPatch, ts.URL+"/projects/"+created.ID, bytes.NewReader(patch))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var updated types.Project
	decodeBody(t, resp, &updated)
	if updated.Name != "Renamed" {
		t.Errorf("Expected renamed project, got %q", updated.Name)
	}

	// List
	resp, err = http.Get(ts.URL + "/projects")
	if err != nil {
		t.Fatal(err)
	}
	var list []types.Project
	decodeBody(t, resp, &list)
	if len(list) != 1 {
		t.Errorf("Expected 1 project, got %d", len(list))
	}

	// Delete
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/projects/"+created.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/projects/" + created.ID)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestCreateProject_Validation(t *testing.T) {
	_, ts := setupTestServer(t)

	resp := postJSON(t, ts.URL+"/projects", map[string]string{"description": "no name"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 without name, got %d", resp.StatusCode)
	}

	resp, err := http.Post(ts.URL+"/projects", "application/json", strings.NewReader("not json"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid JSON, got %d", resp.StatusCode)
	}
}

func TestGetProjectFiles_NotFound(t *testing.T) {
	_, ts := setupTestServer(t)

	// Unknown project
	resp, err := http.Get(ts.URL + "/projects/missing/files")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}

	// Known project, nothing persisted yet
	resp = postJSON(t, ts.URL+"/projects", map[string]string{"name": "empty"})
	var created types.Project
	decodeBody(t, resp, &created)

	resp, err = http.Get(ts.URL + "/projects/" + created.ID + "/files")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for project without files, got %d", resp.StatusCode)
	}
}

func TestUpdateAndGetFile(t *testing.T) {
	_, ts := setupTestServer(t)

	resp := postJSON(t, ts.URL+"/projects", map[string]string{"name": "page"})
	var created types.Project
	decodeBody(t, resp, &created)

	body, _ := json.Marshal(map[string]string{"content": "body { color: red; }"})
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/projects/"+created.ID+"/files/style.css", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/projects/" + created.ID + "/files/style.css")
	if err != nil {
		t.Fatal(err)
	}
	var file fileResponse
	decodeBody(t, resp, &file)
	if file.Content != "body { color: red; }" {
		t.Errorf("Content mismatch: got %q", file.Content)
	}

	// Disallowed filename
	req, _ = http.NewRequest(http.MethodPut, ts.URL+"/projects/"+created.ID+"/files/app.py", bytes.NewReader(body))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for disallowed filename, got %d", resp.StatusCode)
	}
}

func TestCreateProjectStream(t *testing.T) {
	_, ts := setupTestServer(t)

	resp := postJSON(t, ts.URL+"/ai/create-project-stream", map[string]string{"prompt": "create a coffee shop page"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected event-stream content type, got %q", ct)
	}

	dec := stream.NewDecoder(resp.Body)
	var events []types.Event
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		events = append(events, ev)
	}
	if len(events) == 0 {
		t.Fatal("Expected events on the stream")
	}

	final, ok := events[len(events)-1].(*types.CompleteEvent)
	if !ok {
		t.Fatalf("Expected complete terminal event, got %T", events[len(events)-1])
	}
	if final.ProjectID == "" {
		t.Fatal("Complete event should carry a project id")
	}

	// The file writer catches up shortly after the stream ends.
	deadline := time.Now().Add(2 * time.Second)
	for {
		filesResp, err := http.Get(ts.URL + "/projects/" + final.ProjectID + "/files")
		if err != nil {
			t.Fatal(err)
		}
		if filesResp.StatusCode == http.StatusOK {
			var files types.ProjectFiles
			decodeBody(t, filesResp, &files)
			if len(files.Files) == 3 {
				return
			}
		} else {
			filesResp.Body.Close()
		}
		if time.Now().After(deadline) {
			t.Fatal("Files never became available")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCreateProjectStream_EmptyPrompt(t *testing.T) {
	_, ts := setupTestServer(t)

	resp := postJSON(t, ts.URL+"/ai/create-project-stream", map[string]string{"prompt": "   "})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty prompt, got %d", resp.StatusCode)
	}
}

func TestGetTokenInfo(t *testing.T) {
	_, ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/ai/tokens")
	if err != nil {
		t.Fatal(err)
	}
	var info types.TokenInfo
	decodeBody(t, resp, &info)
	if info.Limit != 30000 {
		t.Errorf("Expected limit 30000, got %d", info.Limit)
	}
	if info.Remaining != 30000 {
		t.Errorf("Expected full budget, got %d", info.Remaining)
	}
}

func TestPreviewProject(t *testing.T) {
	_, ts := setupTestServer(t)

	resp := postJSON(t, ts.URL+"/projects", map[string]string{"name": "page"})
	var created types.Project
	decodeBody(t, resp, &created)

	put := func(filename, content string) {
		body, _ := json.Marshal(map[string]string{"content": content})
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/projects/"+created.ID+"/files/"+filename, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		r.Body.Close()
	}
	put("index.html", "<h1>Hello</h1>")
	put("style.css", "h1 { color: blue; }")
	put("script.js", "console.log('hi');")

	resp, err := http.Get(ts.URL + "/projects/" + created.ID + "/preview")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	preview := string(data)

	for _, want := range []string{"<h1>Hello</h1>", "h1 { color: blue; }", "console.log('hi');", "<!DOCTYPE html>"} {
		if !strings.Contains(preview, want) {
			t.Errorf("Preview missing %q", want)
		}
	}
}
