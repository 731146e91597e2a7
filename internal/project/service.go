// Package project manages generated page projects: their metadata documents
// and the source files produced for them.
package project

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/pageforge-ai/pageforge/internal/event"
	"github.com/pageforge-ai/pageforge/internal/logging"
	"github.com/pageforge-ai/pageforge/internal/storage"
	"github.com/pageforge-ai/pageforge/pkg/types"
)

// AllowedFiles is the fixed set of source files a project may contain.
// Generated content outside this set is discarded.
var AllowedFiles = []string{"index.html", "style.css", "script.js"}

// FileAllowed reports whether filename is a valid project source file.
func FileAllowed(filename string) bool {
	for _, name := range AllowedFiles {
		if name == filename {
			return true
		}
	}
	return false
}

// writeJob is one queued file write. A job with a non-nil done channel is
// a flush barrier instead of a write.
type writeJob struct {
	projectID string
	filename  string
	content   string
	done      chan struct{}
}

// Service manages project metadata and source files. Metadata operations
// are synchronous; generated file sets are persisted through a background
// writer queue, so GetFiles may briefly trail a completed generation.
type Service struct {
	store *storage.Store
	bus   *event.Bus
	log   zerolog.Logger

	writes chan writeJob
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewService creates a project service backed by store. Events are
// published to bus; pass nil to use the global bus.
func NewService(store *storage.Store, bus *event.Bus) *Service {
	if bus == nil {
		bus = event.Default()
	}
	s := &Service{
		store:  store,
		bus:    bus,
		log:    logging.Component("project"),
		writes: make(chan writeJob, 256),
	}
	s.wg.Add(1)
	go s.writer()
	return s
}

// Close drains the writer queue and stops the background writer. Pending
// file writes complete before Close returns.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.writes)
	})
	s.wg.Wait()
}

// Create creates a new project.
func (s *Service) Create(ctx context.Context, name, description string) (*types.Project, error) {
	now := time.Now().UnixMilli()
	if name == "" {
		name = "Untitled Project"
	}

	proj := &types.Project{
		ID:          ulid.Make().String(),
		Name:        name,
		Description: description,
		Time: types.ProjectTime{
			Created: now,
			Updated: now,
		},
	}

	if err := s.store.Put(ctx, []string{"projects", proj.ID}, proj); err != nil {
		return nil, fmt.Errorf("failed to save project: %w", err)
	}

	s.bus.Publish(event.Event{Type: event.ProjectCreated, Data: event.ProjectData{Info: proj}})
	return proj, nil
}

// Get retrieves a project by ID.
func (s *Service) Get(ctx context.Context, projectID string) (*types.Project, error) {
	var proj types.Project
	if err := s.store.Get(ctx, []string{"projects", projectID}, &proj); err != nil {
		return nil, err
	}
	return &proj, nil
}

// List returns all projects, newest first.
func (s *Service) List(ctx context.Context) ([]*types.Project, error) {
	var projects []*types.Project
	err := s.store.Scan(ctx, []string{"projects"}, func(key string, data json.RawMessage) error {
		var proj types.Project
		if err := json.Unmarshal(data, &proj); err != nil {
			return err
		}
		projects = append(projects, &proj)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Time.Created != projects[j].Time.Created {
			return projects[i].Time.Created > projects[j].Time.Created
		}
		// ULIDs are lexically ordered, which breaks same-millisecond ties.
		return projects[i].ID > projects[j].ID
	})
	return projects, nil
}

// Update applies the given field updates to a project.
func (s *Service) Update(ctx context.Context, projectID string, updates map[string]any) (*types.Project, error) {
	proj, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if name, ok := updates["name"].(string); ok {
		proj.Name = name
	}
	if description, ok := updates["description"].(string); ok {
		proj.Description = description
	}
	proj.Time.Updated = time.Now().UnixMilli()

	if err := s.store.Put(ctx, []string{"projects", projectID}, proj); err != nil {
		return nil, err
	}

	s.bus.Publish(event.Event{Type: event.ProjectUpdated, Data: event.ProjectData{Info: proj}})
	return proj, nil
}

// Delete removes a project and its source files.
func (s *Service) Delete(ctx context.Context, projectID string) error {
	proj, err := s.Get(ctx, projectID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, []string{"projects", projectID}); err != nil {
		return err
	}
	if err := s.store.DeleteDir(ctx, []string{"files", projectID}); err != nil {
		s.log.Warn().Err(err).Str("projectID", projectID).Msg("Failed to delete project files")
	}

	s.bus.Publish(event.Event{Type: event.ProjectDeleted, Data: event.ProjectData{Info: proj}})
	return nil
}

// SaveFiles queues the generated file set for persistence. Files outside
// the allowlist are dropped. Writes happen on the background writer, so a
// GetFiles immediately after SaveFiles may still report not found.
func (s *Service) SaveFiles(ctx context.Context, projectID string, files map[string]string) error {
	if _, err := s.Get(ctx, projectID); err != nil {
		return err
	}

	for filename, content := range files {
		if !FileAllowed(filename) {
			s.log.Warn().Str("projectID", projectID).Str("file", filename).Msg("Dropping disallowed file")
			continue
		}
		s.writes <- writeJob{projectID: projectID, filename: filename, content: content}
	}
	return nil
}

// UpdateFile writes one source file synchronously. Used for manual edits,
// which must be visible immediately.
func (s *Service) UpdateFile(ctx context.Context, projectID, filename, content string) error {
	if !FileAllowed(filename) {
		return fmt.Errorf("file %q is not an allowed project file", filename)
	}
	if _, err := s.Get(ctx, projectID); err != nil {
		return err
	}

	if err := s.store.WriteRaw(ctx, []string{"files", projectID}, filename, []byte(content)); err != nil {
		return err
	}

	s.touch(ctx, projectID)
	s.bus.Publish(event.Event{Type: event.FileEdited, Data: event.FileEditedData{ProjectID: projectID, File: filename}})
	return nil
}

// GetFiles returns the persisted source files for a project. Returns
// storage.ErrNotFound when the project does not exist or no files have
// been written yet, which callers treat as "persistence catching up".
func (s *Service) GetFiles(ctx context.Context, projectID string) (*types.ProjectFiles, error) {
	if _, err := s.Get(ctx, projectID); err != nil {
		return nil, err
	}

	files := &types.ProjectFiles{ProjectID: projectID}
	for _, name := range AllowedFiles {
		content, err := s.store.ReadRaw(ctx, []string{"files", projectID}, name)
		if err != nil {
			if err == storage.ErrNotFound {
				continue
			}
			return nil, err
		}
		files.Files = append(files.Files, types.ProjectFile{Filename: name, Content: string(content)})
	}

	if len(files.Files) == 0 {
		return nil, storage.ErrNotFound
	}
	return files, nil
}

// Flush blocks until all writes queued so far are persisted.
func (s *Service) Flush() {
	done := make(chan struct{})
	s.writes <- writeJob{done: done}
	<-done
}

// writer drains the write queue. One goroutine keeps file writes for one
// project ordered without holding callers.
func (s *Service) writer() {
	defer s.wg.Done()
	for job := range s.writes {
		if job.done != nil {
			close(job.done)
			continue
		}
		err := s.store.WriteRaw(context.Background(), []string{"files", job.projectID}, job.filename, []byte(job.content))
		if err != nil {
			s.log.Error().Err(err).Str("projectID", job.projectID).Str("file", job.filename).Msg("Failed to persist project file")
			continue
		}
		s.log.Debug().Str("projectID", job.projectID).Str("file", job.filename).Msg("Persisted project file")
	}
}

func (s *Service) touch(ctx context.Context, projectID string) {
	proj, err := s.Get(ctx, projectID)
	if err != nil {
		return
	}
	proj.Time.Updated = time.Now().UnixMilli()
	if err := s.store.Put(ctx, []string{"projects", projectID}, proj); err != nil {
		s.log.Warn().Err(err).Str("projectID", projectID).Msg("Failed to update project timestamp")
	}
}
