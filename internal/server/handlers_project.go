package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pageforge-ai/pageforge/internal/project"
	"github.com/pageforge-ai/pageforge/internal/storage"
	"github.com/pageforge-ai/pageforge/pkg/types"
)

// createProjectRequest is the body for POST /projects.
type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// fileUpdateRequest is the body for PUT /projects/{projectID}/files/{filename}.
type fileUpdateRequest struct {
	Content string `json:"content"`
}

// fileResponse is the body for single-file reads and writes.
type fileResponse struct {
	Filename  string `json:"filename"`
	Content   string `json:"content"`
	ProjectID string `json:"project_id"`
}

// listProjects handles GET /projects.
func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.projects.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if projects == nil {
		projects = []*types.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// createProject handles POST /projects.
func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	proj, err := s.projects.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, proj)
}

// getProject handles GET /projects/{projectID}.
func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	proj, err := s.projects.Get(r.Context(), projectID)
	if err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

// updateProject handles PATCH /projects/{projectID}.
func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	proj, err := s.projects.Update(r.Context(), projectID, updates)
	if err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

// deleteProject handles DELETE /projects/{projectID}.
func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if err := s.projects.Delete(r.Context(), projectID); err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getProjectFiles handles GET /projects/{projectID}/files. Responds 404
// while the background writer has not persisted any files yet; clients
// retry on that.
func (s *Server) getProjectFiles(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	files, err := s.projects.GetFiles(r.Context(), projectID)
	if err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// getFileContent handles GET /projects/{projectID}/files/{filename}.
func (s *Server) getFileContent(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	filename := chi.URLParam(r, "filename")

	if !project.FileAllowed(filename) {
		writeError(w, http.StatusBadRequest, "Invalid filename")
		return
	}

	files, err := s.projects.GetFiles(r.Context(), projectID)
	if err != nil && err != storage.ErrNotFound {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	content := ""
	if files != nil {
		content = files.Map()[filename]
	}
	writeJSON(w, http.StatusOK, fileResponse{Filename: filename, Content: content, ProjectID: projectID})
}

// updateFile handles PUT /projects/{projectID}/files/{filename}.
func (s *Server) updateFile(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	filename := chi.URLParam(r, "filename")

	if !project.FileAllowed(filename) {
		writeError(w, http.StatusBadRequest, "Invalid filename")
		return
	}

	var req fileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.projects.UpdateFile(r.Context(), projectID, filename, req.Content); err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, fileResponse{Filename: filename, Content: req.Content, ProjectID: projectID})
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
