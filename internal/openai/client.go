// Package openai produces chunk and query embeddings with the OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions matches the vector(1536) chunk column.
	DefaultEmbeddingDimensions = 1536
	// MaxInputChars keeps a single input well under the model's token limit.
	MaxInputChars = 24000
	// DefaultRequestsPerSecond throttles backfill bursts.
	DefaultRequestsPerSecond = 5
)

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	ErrNoAPIKey        = errors.New("OpenAI API key not configured")
)

// EmbeddingAPI is the slice of the OpenAI API the client needs.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// OpenAIAdapter calls the real API through go-openai.
type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      a.model,
		Dimensions: DefaultEmbeddingDimensions,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}
	return resp.Data[0].Embedding, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	// RequestsPerSecond caps API calls; zero means DefaultRequestsPerSecond.
	RequestsPerSecond float64
}

// Client generates fixed-size embeddings under a request rate limit.
type Client struct {
	api        EmbeddingAPI
	model      string
	dimensions int
	limiter    *rate.Limiter
}

// NewClient creates a client. An empty API key is an error.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return newClient(NewOpenAIAdapter(cfg.APIKey, model), string(model), cfg.EmbeddingDimensions, cfg.RequestsPerSecond), nil
}

func newClient(api EmbeddingAPI, model string, dimensions int, rps float64) *Client {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	return &Client{
		api:        api,
		model:      model,
		dimensions: dimensions,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Model names the embedding model, recorded with chunk metadata.
func (c *Client) Model() string {
	return c.model
}

// GenerateEmbedding embeds text, waiting for the rate limiter first. Inputs
// longer than MaxInputChars are truncated.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if utf8.RuneCountInString(text) > MaxInputChars {
		text = string([]rune(text)[:MaxInputChars])
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	embedding, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(embedding), c.dimensions)
	}

	return embedding, nil
}
