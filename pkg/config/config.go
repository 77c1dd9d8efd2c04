// Package config loads the server configuration from YAML with environment
// variable expansion, so API keys stay out of config files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	Gemini    Gemini    `yaml:"gemini"`
	Tavily    Tavily    `yaml:"tavily"`
	Storage   Storage   `yaml:"storage"`
	Workflow  Workflow  `yaml:"workflow"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr string `yaml:"addr"`
}

// Gemini configures the model backend. Each agent keeps its own model and
// temperature; the defaults mirror what each role needs (routing and solving
// run cold, generation runs warmer).
type Gemini struct {
	APIKey string `yaml:"api_key"`

	RouterModel     string `yaml:"router_model"`
	TheoryModel     string `yaml:"theory_model"`
	SearchModel     string `yaml:"search_model"`
	GenerationModel string `yaml:"generation_model"`
	SolvingModel    string `yaml:"solving_model"`
	ResponseModel   string `yaml:"response_model"`
	EmbeddingModel  string `yaml:"embedding_model"`
}

// Tavily configures the web-search tool.
type Tavily struct {
	APIKey     string `yaml:"api_key"`
	MaxResults int    `yaml:"max_results"`
}

// Storage locates the on-disk stores.
type Storage struct {
	VectorPath     string `yaml:"vector_path"`
	SessionPath    string `yaml:"session_path"`
	CheckpointPath string `yaml:"checkpoint_path"`
}

// Workflow bounds a single run.
type Workflow struct {
	MaxSteps int `yaml:"max_steps"`
}

// Telemetry toggles metrics and tracing.
type Telemetry struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8000"},
		Gemini: Gemini{
			APIKey:          os.Getenv("GOOGLE_API_KEY"),
			RouterModel:     "gemini-2.5-flash-preview-05-20",
			TheoryModel:     "gemini-2.5-pro-preview-06-05",
			SearchModel:     "gemini-2.0-flash",
			GenerationModel: "gemini-2.0-flash",
			SolvingModel:    "gemini-2.0-flash",
			ResponseModel:   "gemini-2.0-flash",
			EmbeddingModel:  "text-embedding-004",
		},
		Tavily: Tavily{
			APIKey:     os.Getenv("TAVILY_API_KEY"),
			MaxResults: 3,
		},
		Storage: Storage{
			VectorPath:     "data/vectorstore",
			SessionPath:    "data/sessions.db",
			CheckpointPath: "data/checkpoints.db",
		},
		Workflow: Workflow{MaxSteps: 10},
	}
}

// Load reads a YAML config file, expanding ${VAR} references from the
// environment before parsing. Missing fields keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.Expand(string(data), os.Getenv)
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Workflow.MaxSteps <= 0 {
		cfg.Workflow.MaxSteps = 10
	}
	if cfg.Tavily.MaxResults <= 0 {
		cfg.Tavily.MaxResults = 3
	}
	return cfg, nil
}
