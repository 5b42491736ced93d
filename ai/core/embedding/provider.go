// Package embedding maps text to vectors through OpenAI-compatible embedding endpoints.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Service is the vector embedding capability.
type Service interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int
}

// Config represents vector embedding configuration.
type Config struct {
	Provider   string // siliconflow, openai, ollama, ...
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
	Timeout    time.Duration
}

// DefaultConfig returns the SiliconFlow bge-m3 setup used by default deployments.
func DefaultConfig() Config {
	return Config{
		Provider:   "siliconflow",
		Model:      "BAAI/bge-m3",
		BaseURL:    "https://api.siliconflow.cn/v1",
		Dimensions: 1024,
		Timeout:    30 * time.Second,
	}
}

// Provider implements Service on top of go-openai.
type Provider struct {
	client     *openai.Client
	model      string
	dimensions int
	timeout    time.Duration
}

// NewProvider creates a new embedding Provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Model == "" {
		return nil, errors.New("embedding model is required")
	}
	if cfg.Provider != "ollama" && cfg.APIKey == "" {
		return nil, errors.New("embedding API key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		timeout:    cfg.Timeout,
	}, nil
}

// Embed generates the vector for text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: p.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

// Dimensions returns the configured vector dimension.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

var _ Service = (*Provider)(nil)
