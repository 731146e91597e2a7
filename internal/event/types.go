package event

import "github.com/pageforge-ai/pageforge/pkg/types"

// BuildSnapshotData is the data for build.snapshot events: an immutable
// session state snapshot taken after one stream event was applied.
type BuildSnapshotData struct {
	State types.SessionState `json:"state"`
}

// ProjectData is the data for project.created/updated/deleted events.
type ProjectData struct {
	Info *types.Project `json:"info"`
}

// FileEditedData is the data for file.edited events.
type FileEditedData struct {
	ProjectID string `json:"projectID"`
	File      string `json:"file"`
}

// FilesSyncedData is the data for files.synced events.
type FilesSyncedData struct {
	ProjectID string            `json:"projectID"`
	Files     map[string]string `json:"files"`
}

// FilesUnavailableData is the data for files.unavailable events.
type FilesUnavailableData struct {
	ProjectID string `json:"projectID"`
	Reason    string `json:"reason"`
}
