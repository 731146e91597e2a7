package types

// Config represents the PageForge configuration.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty" yaml:"schema,omitempty"`

	// Server settings
	Server ServerSettings `json:"server,omitempty" yaml:"server,omitempty"`

	// Client settings
	Client ClientSettings `json:"client,omitempty" yaml:"client,omitempty"`

	// Token budget enforced by the backend
	TokenLimit int `json:"tokenLimit,omitempty" yaml:"tokenLimit,omitempty"`

	// Log level: DEBUG, INFO, WARN, ERROR
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
}

// ServerSettings configures the generation backend server.
type ServerSettings struct {
	Port        int    `json:"port,omitempty" yaml:"port,omitempty"`
	ProjectsDir string `json:"projectsDir,omitempty" yaml:"projectsDir,omitempty"`
	DataDir     string `json:"dataDir,omitempty" yaml:"dataDir,omitempty"`
	EnableCORS  *bool  `json:"enableCORS,omitempty" yaml:"enableCORS,omitempty"`

	// PersistDelayMs artificially delays file persistence after generation,
	// matching the eventual consistency of the hosted backend. Mainly for
	// exercising client retry behavior.
	PersistDelayMs int `json:"persistDelayMs,omitempty" yaml:"persistDelayMs,omitempty"`
}

// ClientSettings configures the build client.
type ClientSettings struct {
	ServerURL string `json:"serverURL,omitempty" yaml:"serverURL,omitempty"`

	// File-sync retry policy
	SyncMaxAttempts int     `json:"syncMaxAttempts,omitempty" yaml:"syncMaxAttempts,omitempty"`
	SyncBaseDelayMs int     `json:"syncBaseDelayMs,omitempty" yaml:"syncBaseDelayMs,omitempty"`
	SyncMultiplier  float64 `json:"syncMultiplier,omitempty" yaml:"syncMultiplier,omitempty"`
}
