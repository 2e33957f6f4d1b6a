// Package config provides configuration management for VoxCraft.
// It loads settings from environment variables with the VOXCRAFT_ prefix,
// provides sensible defaults for all options, and supports an optional YAML
// overlay file whose set values take precedence over the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the VoxCraft application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Session  SessionConfig  `yaml:"session"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"` // Server port (default: 7070)
	Host string `yaml:"host"` // Server host (default: 127.0.0.1)
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	// Engine selects the long-term backend: sqlite or postgres (default: sqlite).
	Engine string `yaml:"engine"`

	// DataPath is the directory for the SQLite database and artifacts
	// (default: ./data).
	DataPath string `yaml:"data_path"`

	// PostgresDSN is the connection string for the postgres engine.
	PostgresDSN string `yaml:"postgres_dsn"`

	// OutputPath is the directory for generated artifacts (default: ./output_3d_model).
	OutputPath string `yaml:"output_path"`
}

// LLMConfig contains LLM and embedding provider configuration.
type LLMConfig struct {
	OllamaURL      string        `yaml:"ollama_url"`      // Ollama API URL (default: http://localhost:11434)
	Model          string        `yaml:"model"`           // Completion model for prompt enhancement (default: llama3.2)
	EmbeddingModel string        `yaml:"embedding_model"` // Embedding model (default: nomic-embed-text)
	Timeout        time.Duration `yaml:"timeout"`         // Per-request timeout (default: 30s)

	// PromptTemplatePath optionally points at a file holding the enhancer
	// system instruction; when set, the file is watched and hot-reloaded.
	PromptTemplatePath string `yaml:"prompt_template_path"`
}

// PipelineConfig contains the external generation endpoints.
type PipelineConfig struct {
	TextToImageURL string        `yaml:"text_to_image_url"` // Text-to-image execution endpoint
	ImageTo3DURL   string        `yaml:"image_to_3d_url"`   // Image-to-3D execution endpoint
	ImageTimeout   time.Duration `yaml:"image_timeout"`     // default: 120s
	ModelTimeout   time.Duration `yaml:"model_timeout"`     // default: 300s
}

// SessionConfig contains session lifecycle and memory tuning.
type SessionConfig struct {
	TimeoutMinutes int `yaml:"timeout_minutes"` // Idle timeout (default: 30)
	ShortTermTTL   int `yaml:"short_term_ttl"`  // Short-term log TTL in seconds (default: 1800)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	Mode     string `yaml:"mode"`      // development or production (default: development)
	APIToken string `yaml:"api_token"` // Bearer token required in production mode
}

// Load builds the configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("VOXCRAFT_PORT", 7070),
			Host: getEnv("VOXCRAFT_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			Engine:      getEnv("VOXCRAFT_STORAGE_ENGINE", "sqlite"),
			DataPath:    getEnv("VOXCRAFT_DATA_PATH", "./data"),
			PostgresDSN: getEnv("VOXCRAFT_POSTGRES_DSN", ""),
			OutputPath:  getEnv("VOXCRAFT_OUTPUT_PATH", "./output_3d_model"),
		},
		LLM: LLMConfig{
			OllamaURL:          getEnv("VOXCRAFT_OLLAMA_URL", "http://localhost:11434"),
			Model:              getEnv("VOXCRAFT_MODEL", "llama3.2"),
			EmbeddingModel:     getEnv("VOXCRAFT_EMBEDDING_MODEL", "nomic-embed-text"),
			Timeout:            getEnvDuration("VOXCRAFT_LLM_TIMEOUT", 30*time.Second),
			PromptTemplatePath: getEnv("VOXCRAFT_PROMPT_TEMPLATE", ""),
		},
		Pipeline: PipelineConfig{
			TextToImageURL: getEnv("VOXCRAFT_TEXT_TO_IMAGE_URL", ""),
			ImageTo3DURL:   getEnv("VOXCRAFT_IMAGE_TO_3D_URL", ""),
			ImageTimeout:   getEnvDuration("VOXCRAFT_IMAGE_TIMEOUT", 120*time.Second),
			ModelTimeout:   getEnvDuration("VOXCRAFT_MODEL_TIMEOUT", 300*time.Second),
		},
		Session: SessionConfig{
			TimeoutMinutes: getEnvInt("VOXCRAFT_SESSION_TIMEOUT_MINUTES", 30),
			ShortTermTTL:   getEnvInt("VOXCRAFT_SHORT_TERM_TTL", 1800),
		},
		Security: SecurityConfig{
			Mode:     getEnv("VOXCRAFT_SECURITY_MODE", "development"),
			APIToken: getEnv("VOXCRAFT_API_TOKEN", ""),
		},
	}
}

// LoadFile loads the environment-based config and overlays the YAML file at
// path on top of it. Values present in the file win over the environment.
func LoadFile(path string) (*Config, error) {
	cfg := Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// SessionTimeout returns the idle timeout as a duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Session.TimeoutMinutes) * time.Minute
}

// ShortTermTTL returns the short-term log TTL as a duration.
func (c *Config) ShortTermTTL() time.Duration {
	return time.Duration(c.Session.ShortTermTTL) * time.Second
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. An unparseable value falls back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (Go duration
// syntax, e.g. "45s") or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
