package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/pageforge-ai/pageforge/pkg/types"
)

// Config file names searched in each config directory. JSON variants are
// parsed with comment support, yaml is parsed with yaml.v3.
var configFileNames = []string{"pageforge.json", "pageforge.jsonc", "pageforge.yaml", "pageforge.yml"}

// Load loads configuration with the following precedence (later wins):
// 1. Built-in defaults
// 2. Global config (~/.config/pageforge/pageforge.{json,jsonc,yaml})
// 3. Project config (<directory>/pageforge.{json,jsonc,yaml})
// 4. PAGEFORGE_CONFIG environment variable (path to a config file)
// 5. PAGEFORGE_CONFIG_CONTENT environment variable (inline JSON)
// 6. Individual PAGEFORGE_* environment overrides
func Load(directory string) (*types.Config, error) {
	cfg := defaults()

	for _, dir := range []string{GetPaths().Config, directory} {
		if dir == "" {
			continue
		}
		for _, name := range configFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			layer, err := loadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load config %s: %w", path, err)
			}
			mergeConfig(cfg, layer)
		}
	}

	if path := os.Getenv("PAGEFORGE_CONFIG"); path != "" {
		layer, err := loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load PAGEFORGE_CONFIG %s: %w", path, err)
		}
		mergeConfig(cfg, layer)
	}

	if content := os.Getenv("PAGEFORGE_CONFIG_CONTENT"); content != "" {
		layer, err := parseJSON([]byte(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse PAGEFORGE_CONFIG_CONTENT: %w", err)
		}
		mergeConfig(cfg, layer)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// defaults returns the built-in configuration.
func defaults() *types.Config {
	paths := GetPaths()
	enableCORS := true
	return &types.Config{
		Server: types.ServerSettings{
			Port:           8080,
			ProjectsDir:    filepath.Join(paths.StoragePath(), "projects"),
			DataDir:        paths.StoragePath(),
			EnableCORS:     &enableCORS,
			PersistDelayMs: 0,
		},
		Client: types.ClientSettings{
			ServerURL:       "http://localhost:8080",
			SyncMaxAttempts: 3,
			SyncBaseDelayMs: 1000,
			SyncMultiplier:  2,
		},
		TokenLimit: 30000,
		LogLevel:   "info",
	}
}

// loadFile reads and parses a single config file. The format is chosen by
// extension, everything that is not yaml goes through the jsonc parser so
// comments and trailing commas are accepted.
func loadFile(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = []byte(interpolate(string(data)))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var cfg types.Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	default:
		return parseJSON(data)
	}
}

func parseJSON(data []byte) (*types.Config, error) {
	var cfg types.Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var interpolatePattern = regexp.MustCompile(`\{(env|file):([^}]+)\}`)

// interpolate replaces {env:VAR} and {file:path} placeholders.
func interpolate(content string) string {
	return interpolatePattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := interpolatePattern.FindStringSubmatch(match)
		switch parts[1] {
		case "env":
			return os.Getenv(parts[2])
		case "file":
			data, err := os.ReadFile(parts[2])
			if err != nil {
				return ""
			}
			return strings.TrimSpace(string(data))
		}
		return match
	})
}

// mergeConfig overlays src onto dst. Zero values in src leave dst untouched.
func mergeConfig(dst, src *types.Config) {
	if src.Schema != "" {
		dst.Schema = src.Schema
	}
	if src.TokenLimit != 0 {
		dst.TokenLimit = src.TokenLimit
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	if src.Server.ProjectsDir != "" {
		dst.Server.ProjectsDir = src.Server.ProjectsDir
	}
	if src.Server.DataDir != "" {
		dst.Server.DataDir = src.Server.DataDir
	}
	if src.Server.EnableCORS != nil {
		dst.Server.EnableCORS = src.Server.EnableCORS
	}
	if src.Server.PersistDelayMs != 0 {
		dst.Server.PersistDelayMs = src.Server.PersistDelayMs
	}
	if src.Client.ServerURL != "" {
		dst.Client.ServerURL = src.Client.ServerURL
	}
	if src.Client.SyncMaxAttempts != 0 {
		dst.Client.SyncMaxAttempts = src.Client.SyncMaxAttempts
	}
	if src.Client.SyncBaseDelayMs != 0 {
		dst.Client.SyncBaseDelayMs = src.Client.SyncBaseDelayMs
	}
	if src.Client.SyncMultiplier != 0 {
		dst.Client.SyncMultiplier = src.Client.SyncMultiplier
	}
}

// applyEnvOverrides applies individual PAGEFORGE_* environment variables.
func applyEnvOverrides(cfg *types.Config) {
	if v := os.Getenv("PAGEFORGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PAGEFORGE_DATA_DIR"); v != "" {
		cfg.Server.DataDir = v
	}
	if v := os.Getenv("PAGEFORGE_PROJECTS_DIR"); v != "" {
		cfg.Server.ProjectsDir = v
	}
	if v := os.Getenv("PAGEFORGE_SERVER_URL"); v != "" {
		cfg.Client.ServerURL = v
	}
	if v := os.Getenv("PAGEFORGE_TOKEN_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			cfg.TokenLimit = limit
		}
	}
	if v := os.Getenv("PAGEFORGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Save writes the configuration to the global config file.
func Save(cfg *types.Config) error {
	paths := GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(GlobalConfigPath(), data, 0644)
}
