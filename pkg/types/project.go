package types

// Project is the persisted metadata for one generated web page.
type Project struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Time        ProjectTime `json:"time"`
}

// ProjectTime contains project timestamps in Unix milliseconds.
type ProjectTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
}

// ProjectFile is one source file of a project.
type ProjectFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// ProjectFiles is the authoritative file set returned by the store.
type ProjectFiles struct {
	ProjectID string        `json:"project_id"`
	Files     []ProjectFile `json:"files"`
}

// Map returns the files as a filename -> content mapping.
func (f ProjectFiles) Map() map[string]string {
	out := make(map[string]string, len(f.Files))
	for _, file := range f.Files {
		out[file.Filename] = file.Content
	}
	return out
}
