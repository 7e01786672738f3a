// Package config loads service configuration from a YAML file, with working
// defaults for every field so the service starts with no file at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"pdf-rag-chat/internal/chunker"
	"pdf-rag-chat/internal/rag"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Embedder EmbedderConfig `yaml:"embedder"`
	LLM      LLMConfig      `yaml:"llm"`
	Index    IndexConfig    `yaml:"index"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Mongo    MongoConfig    `yaml:"mongo"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`
	DataDir string `yaml:"data_dir"`
}

// EmbedderConfig selects and configures the embedding backend. Type is
// "openai" (any OpenAI-compatible /v1/embeddings endpoint) or "ollama".
type EmbedderConfig struct {
	Type      string        `yaml:"type"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
}

type LLMConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKeyEnv    string        `yaml:"api_key_env"`
	Model        string        `yaml:"model"`
	Timeout      time.Duration `yaml:"timeout"`
	TitleTimeout time.Duration `yaml:"title_timeout"`
}

// IndexConfig selects the vector index backend: "memory", "qdrant" or
// "postgres".
type IndexConfig struct {
	Type     string         `yaml:"type"`
	Qdrant   QdrantConfig   `yaml:"qdrant"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type QdrantConfig struct {
	BaseURL    string `yaml:"base_url"`
	Collection string `yaml:"collection"`
	APIKeyEnv  string `yaml:"api_key_env"`
}

type PostgresConfig struct {
	URLEnv string `yaml:"url_env"`
}

type PipelineConfig struct {
	ChunkSize   int `yaml:"chunk_size"`
	Overlap     int `yaml:"overlap"`
	TopK        int `yaml:"top_k"`
	Concurrency int `yaml:"concurrency"`
}

type MongoConfig struct {
	URIEnv     string `yaml:"uri_env"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:    ":8000",
			DataDir: "data",
		},
		Embedder: EmbedderConfig{
			Type:      "openai",
			BaseURL:   "http://localhost:11434/v1",
			APIKeyEnv: "EMBEDDER_API_KEY",
			Model:     "nomic-embed-text",
			Timeout:   30 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:      "http://localhost:11434/v1",
			APIKeyEnv:    "LLM_API_KEY",
			Model:        "qwen2:7b",
			Timeout:      120 * time.Second,
			TitleTimeout: 30 * time.Second,
		},
		Index: IndexConfig{
			Type: "memory",
			Qdrant: QdrantConfig{
				BaseURL:    "http://localhost:6333",
				Collection: "pdf_chunks",
				APIKeyEnv:  "QDRANT_API_KEY",
			},
			Postgres: PostgresConfig{
				URLEnv: "DATABASE_URL",
			},
		},
		Pipeline: PipelineConfig{
			ChunkSize:   chunker.DefaultChunkSize,
			Overlap:     chunker.DefaultOverlap,
			TopK:        rag.DefaultTopK,
			Concurrency: rag.DefaultConcurrency,
		},
		Mongo: MongoConfig{
			URIEnv:     "MONGO_URI",
			Database:   "pdf_rag",
			Collection: "chat_history",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// FromEnv resolves a configured env var name to its value, empty when unset.
// Secrets and connection strings are configured by env var name, never stored
// in the YAML file itself.
func FromEnv(envName string) string {
	if envName == "" {
		return ""
	}
	return os.Getenv(envName)
}
