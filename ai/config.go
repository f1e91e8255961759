// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"strings"
	"time"
)

// Embedding backends.
const (
	BackendCLIP   = "clip"
	BackendOpenAI = "openai"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Backend selects the multimodal embedding service: "clip" or "openai".
	// Default: "clip"
	Backend string

	// EmbeddingHost is the base URL of the embedding service.
	// Example: "http://127.0.0.1:8009" for a CLIP service
	EmbeddingHost string

	// EmbeddingModel is the model identifier sent to OpenAI-compatible services.
	// Ignored by the CLIP backend.
	EmbeddingModel string

	// TextHost, when set, routes text content to a separate OpenAI-compatible
	// service while images and audio stay on the main backend.
	TextHost string

	// TextModel is the model identifier used with TextHost.
	TextModel string

	// Dimensions is the length every returned vector must have.
	// Default: 512
	Dimensions int

	// Timeout bounds a single embedding request.
	// Default: 30s
	Timeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBackend sets the embedding backend.
func WithBackend(backend string) ConfigOption {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithTextService routes text content to a separate OpenAI-compatible service.
func WithTextService(host, model string) ConfigOption {
	return func(c *Config) {
		c.TextHost = host
		c.TextModel = model
	}
}

// WithDimensions sets the expected vector length.
func WithDimensions(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = dim
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// DefaultConfig returns a Config for a local CLIP embedding service.
func DefaultConfig() *Config {
	return &Config{
		Backend:       BackendCLIP,
		EmbeddingHost: "http://127.0.0.1:8009",
		Dimensions:    512,
		Timeout:       30 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithEmbeddingHost("http://gpu-box:8009"),
//	    WithTextService("http://localhost:11434/v1", "clip-text"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get a /v1 suffix if missing; CLIP hosts lose any
// trailing slash.
func (c *Config) Normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == BackendOpenAI {
		c.EmbeddingHost = withV1(c.EmbeddingHost)
	} else {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
	}
	c.TextHost = withV1(c.TextHost)
}

func withV1(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Backend != BackendCLIP && c.Backend != BackendOpenAI {
		return errors.New("ai config: Backend must be \"clip\" or \"openai\"")
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.Backend == BackendOpenAI && c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required for the openai backend")
	}
	if c.TextHost != "" && c.TextModel == "" {
		return errors.New("ai config: TextModel is required when TextHost is set")
	}
	if c.Dimensions <= 0 {
		return errors.New("ai config: Dimensions must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("ai config: Timeout must be positive")
	}
	return nil
}
