// Package config loads the service configuration from YAML.
//
// Values are resolved in order: built-in defaults, then the YAML file, then
// command-line flags applied by the caller. Validate must pass before the
// configuration is used.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/poiesic/crossmodal/ai"
	"github.com/poiesic/crossmodal/ingestion"
	"github.com/poiesic/crossmodal/search"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StorageBadger = "badger"
	StorageRedis  = "redis"
)

// validate is a single instance of Validate, it caches struct info
var validate = validator.New()

// Config is the complete service configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Submit    SubmitConfig    `yaml:"submit"`
	Log       LogConfig       `yaml:"log"`
}

// StorageConfig selects where documents, uploads and the graph live.
type StorageConfig struct {
	// Backend is "badger" (embedded) or "redis" (RediSearch).
	Backend string `yaml:"backend" validate:"oneof=badger redis"`
	// Path is the badger data directory.
	Path string `yaml:"path"`
	// InMemory keeps badger data in memory only.
	InMemory bool `yaml:"in_memory"`
	// UploadDir receives image and audio submissions.
	UploadDir string `yaml:"upload_dir" validate:"required"`
	// SnapshotFile, when set, stores the graph as a compressed file instead
	// of inside the document backend.
	SnapshotFile string `yaml:"snapshot_file"`
	// Redis configures the redis backend.
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the RediSearch document store.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db" validate:"gte=0"`
	PoolSize    int    `yaml:"pool_size" validate:"gte=0"`
	IndexName   string `yaml:"index_name"`
	KeyPrefix   string `yaml:"key_prefix"`
	SnapshotKey string `yaml:"snapshot_key"`
}

// EmbeddingConfig configures the embedding services.
type EmbeddingConfig struct {
	Backend    string        `yaml:"backend" validate:"oneof=clip openai"`
	Host       string        `yaml:"host" validate:"required,url"`
	Model      string        `yaml:"model"`
	TextHost   string        `yaml:"text_host" validate:"omitempty,url"`
	TextModel  string        `yaml:"text_model" validate:"required_with=TextHost"`
	Dimensions int           `yaml:"dimensions" validate:"gt=0"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
}

// SearchConfig holds the default search parameters.
type SearchConfig struct {
	TopK        int     `yaml:"top_k" validate:"gt=0"`
	Depth       int     `yaml:"depth" validate:"gte=0"`
	Alpha       float64 `yaml:"alpha" validate:"gte=0,lte=1"`
	Mode        string  `yaml:"mode" validate:"oneof=balanced hybrid"`
	Expand      bool    `yaml:"expand"`
	LinkQueries bool    `yaml:"link_queries"`
}

// SubmitConfig configures submissions.
type SubmitConfig struct {
	Neighbors int `yaml:"neighbors" validate:"gt=0"`
	// PoolSize bounds concurrent bulk submissions; 0 picks a size from the CPU count.
	PoolSize int `yaml:"pool_size" validate:"gte=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	embedding := ai.DefaultConfig()
	return &Config{
		Storage: StorageConfig{
			Backend:   StorageBadger,
			Path:      "data",
			UploadDir: "uploads",
		},
		Embedding: EmbeddingConfig{
			Backend:    embedding.Backend,
			Host:       embedding.EmbeddingHost,
			Dimensions: embedding.Dimensions,
			Timeout:    embedding.Timeout,
		},
		Search: SearchConfig{
			TopK:        search.DefaultTopK,
			Depth:       search.DefaultDepth,
			Alpha:       search.DefaultAlpha,
			Mode:        string(search.ModeBalanced),
			Expand:      true,
			LinkQueries: true,
		},
		Submit: SubmitConfig{
			Neighbors: ingestion.DefaultNeighborCount,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file from the OS filesystem over the defaults.
func Load(path string) (*Config, error) {
	return LoadFS(afero.NewOsFs(), path)
}

// LoadFS reads a YAML file from fs over the defaults and validates the result.
// An empty path returns the validated defaults.
func LoadFS(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Write stores cfg as YAML.
func Write(fs afero.Fs, path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0644)
}

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Embedding.Backend = strings.ToLower(strings.TrimSpace(c.Embedding.Backend))
	c.Search.Mode = strings.ToLower(strings.TrimSpace(c.Search.Mode))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.Storage.Backend {
	case StorageBadger:
		if c.Storage.Path == "" && !c.Storage.InMemory {
			return errors.New("invalid config: storage.path is required unless storage.in_memory is set")
		}
	case StorageRedis:
		if c.Storage.Redis.Addr == "" {
			return errors.New("invalid config: storage.redis.addr is required for the redis backend")
		}
	}
	if c.Embedding.Backend == ai.BackendOpenAI && c.Embedding.Model == "" {
		return errors.New("invalid config: embedding.model is required for the openai backend")
	}
	return nil
}

// AIConfig converts the embedding section into an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithBackend(c.Embedding.Backend),
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithTextService(c.Embedding.TextHost, c.Embedding.TextModel),
		ai.WithDimensions(c.Embedding.Dimensions),
		ai.WithTimeout(c.Embedding.Timeout),
	)
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}
