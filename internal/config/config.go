// Package config loads and validates the pipeline configuration.
//
// Configuration lives in a single TOML file. Defaults are applied in one
// place (applyDefaults) and the result is validated once at startup;
// nothing merges partial maps at runtime.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultInterval     = 60 * time.Second
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 0
	DefaultStatusPort   = 8003
	DefaultMaxFileSize  = 5 * 1024 * 1024
)

// DefaultSupportedMIMETypes is the MIME allowlist applied when the config
// file does not declare one.
var DefaultSupportedMIMETypes = []string{
	"application/pdf",
	"text/plain",
	"text/html",
	"text/csv",
	"text/markdown",
	"application/json",
	"text/xml",
	"application/xml",
	"application/vnd.google-apps.document",
	"application/vnd.google-apps.spreadsheet",
	"application/vnd.google-apps.presentation",
}

// DefaultExportMIMETypes maps Google Workspace types to export formats.
var DefaultExportMIMETypes = map[string]string{
	"application/vnd.google-apps.document":     "text/plain",
	"application/vnd.google-apps.spreadsheet":  "text/csv",
	"application/vnd.google-apps.presentation": "text/plain",
}

// Config is the validated pipeline configuration.
type Config struct {
	// PipelineID uniquely identifies this pipeline instance in the state
	// store. Defaults to "<type>_<root>" when empty.
	PipelineID string `toml:"pipeline_id"`

	// Interval between check cycles.
	Interval time.Duration `toml:"interval"`

	// SupportedMIMETypes is the allowlist of ingestable MIME types.
	SupportedMIMETypes []string `toml:"supported_mime_types"`

	// ExportMIMETypes maps Google Workspace MIME types to export formats.
	ExportMIMETypes map[string]string `toml:"export_mime_types"`

	// MaxFileSize caps downloaded/extracted content in bytes.
	MaxFileSize int64 `toml:"max_file_size"`

	// LastCheckTime is the fallback watermark used only when the state
	// store has no record for this pipeline.
	LastCheckTime time.Time `toml:"last_check_time"`

	Text      TextConfig      `toml:"text_processing"`
	Local     LocalConfig     `toml:"local"`
	Drive     DriveConfig     `toml:"drive"`
	Status    StatusConfig    `toml:"status"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Storage   StorageConfig   `toml:"storage"`
}

// TextConfig controls chunking.
type TextConfig struct {
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
}

// LocalConfig configures the local filesystem scanner.
type LocalConfig struct {
	// WatchDirectory is the root of the watched tree. The environment
	// variable RAG_WATCH_DIRECTORY takes priority over this value.
	WatchDirectory string `toml:"watch_directory"`
}

// DriveConfig configures the Google Drive scanner.
type DriveConfig struct {
	// FolderID scopes the watch to one folder tree. The environment
	// variable RAG_WATCH_FOLDER_ID takes priority over this value.
	FolderID string `toml:"folder_id"`

	// CredentialsPath is the OAuth client secrets file for interactive auth.
	CredentialsPath string `toml:"credentials_path"`

	// TokenPath is where the refreshable OAuth token is cached.
	TokenPath string `toml:"token_path"`

	// PageSize is the listing page size.
	PageSize int64 `toml:"page_size"`
}

// StatusConfig configures the read-only status HTTP endpoint.
type StatusConfig struct {
	// Port for the status server. Zero disables the endpoint.
	Port int `toml:"port"`
}

// EmbeddingConfig configures the embedding service.
type EmbeddingConfig struct {
	// Provider is "openai", "ollama" or "" (embeddings disabled).
	Provider string `toml:"provider"`
	BaseURL  string `toml:"base_url"`
	Model    string `toml:"model"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env"`
}

// StorageConfig configures the SQLite-backed stores.
type StorageConfig struct {
	// DataDir holds the database file. Empty means ~/.ragpipe/data.
	DataDir string `toml:"data_dir"`
}

// Load reads a TOML config file, applies defaults and environment
// overrides, and validates the result. An empty path yields the default
// configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if len(c.SupportedMIMETypes) == 0 {
		c.SupportedMIMETypes = append([]string(nil), DefaultSupportedMIMETypes...)
	}
	if c.ExportMIMETypes == nil {
		c.ExportMIMETypes = make(map[string]string, len(DefaultExportMIMETypes))
		for k, v := range DefaultExportMIMETypes {
			c.ExportMIMETypes[k] = v
		}
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.Text.ChunkSize <= 0 {
		c.Text.ChunkSize = DefaultChunkSize
	}
	if c.Text.ChunkOverlap < 0 {
		c.Text.ChunkOverlap = DefaultChunkOverlap
	}
	if c.Status.Port == 0 {
		c.Status.Port = DefaultStatusPort
	}
	if c.Drive.PageSize <= 0 {
		c.Drive.PageSize = 100
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("RAG_WATCH_DIRECTORY"); v != "" {
		c.Local.WatchDirectory = v
	}
	if v := os.Getenv("RAG_WATCH_FOLDER_ID"); v != "" {
		c.Drive.FolderID = v
	}
	if v := os.Getenv("RAG_PIPELINE_ID"); v != "" {
		c.PipelineID = v
	}
}

// Validate checks invariants that would otherwise surface mid-cycle.
func (c *Config) Validate() error {
	var errs []error
	if c.Interval < time.Second {
		errs = append(errs, fmt.Errorf("interval %s is below 1s", c.Interval))
	}
	if c.Text.ChunkOverlap >= c.Text.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk_overlap %d must be smaller than chunk_size %d",
			c.Text.ChunkOverlap, c.Text.ChunkSize))
	}
	if c.Status.Port < 0 || c.Status.Port > 65535 {
		errs = append(errs, fmt.Errorf("status port %d out of range", c.Status.Port))
	}
	switch c.Embedding.Provider {
	case "", "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}
	return errors.Join(errs...)
}

// MIMESupported reports whether a MIME type is on the allowlist.
// Matching is prefix-based so "text/plain; charset=utf-8" passes.
func (c *Config) MIMESupported(mimeType string) bool {
	for _, t := range c.SupportedMIMETypes {
		if mimeType == t || (len(mimeType) > len(t) && mimeType[:len(t)] == t && mimeType[len(t)] == ';') {
			return true
		}
	}
	return false
}
