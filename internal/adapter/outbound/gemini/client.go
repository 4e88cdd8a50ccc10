package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultModel is the default Gemini embedding model.
	DefaultModel = "gemini-embedding-001"

	// DefaultBaseURL is the Gemini API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultBatchLimit is the provider's per-request content limit.
	DefaultBatchLimit = 100
)

// ClientConfig holds the configuration for the Gemini API client.
type ClientConfig struct {
	APIKey            string        `json:"api_key"`
	BaseURL           string        `json:"base_url"`
	Model             string        `json:"model"`
	Timeout           time.Duration `json:"timeout"`
	BatchLimit        int           `json:"batch_limit"`
	RequestsPerMinute int           `json:"requests_per_minute"`
	Dimensions        int           `json:"dimensions"`
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	if err := c.validateAPIKey(); err != nil {
		return err
	}
	if err := c.validateBaseURL(); err != nil {
		return err
	}
	if err := c.validateTimeout(); err != nil {
		return err
	}
	if err := c.validateBatchLimit(); err != nil {
		return err
	}
	return c.validateDimensions()
}

func (c *ClientConfig) validateAPIKey() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("API key cannot be empty")
	}
	return nil
}

func (c *ClientConfig) validateBaseURL() error {
	if c.BaseURL == "" {
		return nil
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return errors.New("invalid base URL")
	}
	if !strings.HasPrefix(c.BaseURL, "http") {
		return errors.New("invalid base URL")
	}
	return nil
}

func (c *ClientConfig) validateTimeout() error {
	if c.Timeout < 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

func (c *ClientConfig) validateBatchLimit() error {
	if c.BatchLimit < 0 {
		return errors.New("batch limit cannot be negative")
	}
	return nil
}

func (c *ClientConfig) validateDimensions() error {
	if c.Dimensions < 0 {
		return errors.New("dimensions cannot be negative")
	}
	return nil
}

// Client is a Gemini embedding API client implementing
// outbound.EmbeddingService.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Gemini API client.
func NewClient(config ClientConfig) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gemini configuration: %w", err)
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.BatchLimit == 0 {
		config.BatchLimit = DefaultBatchLimit
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), 1)
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: limiter,
	}, nil
}

type embedContentRequest struct {
	Model                string  `json:"model"`
	Content              content `json:"content"`
	OutputDimensionality int     `json:"outputDimensionality,omitempty"`
}

type batchEmbedRequest struct {
	Requests []embedContentRequest `json:"requests"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type embedding struct {
	Values []float32 `json:"values"`
}

type embedContentResponse struct {
	Embedding embedding `json:"embedding"`
}

type batchEmbedResponse struct {
	Embeddings []embedding `json:"embeddings"`
}

// Embed generates an embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("text cannot be empty")
	}

	request := embedContentRequest{
		Model:                "models/" + c.config.Model,
		Content:              content{Parts: []part{{Text: text}}},
		OutputDimensionality: c.config.Dimensions,
	}

	var response embedContentResponse
	if err := c.post(ctx, ":embedContent", request, &response); err != nil {
		return nil, err
	}

	if len(response.Embedding.Values) == 0 {
		return nil, errors.New("gemini returned an empty embedding")
	}

	return response.Embedding.Values, nil
}

// EmbedBatch generates embeddings for a slice of texts, chunking requests to
// the provider batch limit. The returned slice is index-aligned with texts.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += c.config.BatchLimit {
		end := min(start+c.config.BatchLimit, len(texts))
		chunk := texts[start:end]

		request := batchEmbedRequest{
			Requests: make([]embedContentRequest, 0, len(chunk)),
		}
		for _, text := range chunk {
			request.Requests = append(request.Requests, embedContentRequest{
				Model:                "models/" + c.config.Model,
				Content:              content{Parts: []part{{Text: text}}},
				OutputDimensionality: c.config.Dimensions,
			})
		}

		var response batchEmbedResponse
		if err := c.post(ctx, ":batchEmbedContents", request, &response); err != nil {
			return nil, err
		}

		if len(response.Embeddings) != len(chunk) {
			return nil, fmt.Errorf("gemini returned %d embeddings for %d texts",
				len(response.Embeddings), len(chunk))
		}

		for _, emb := range response.Embeddings {
			vectors = append(vectors, emb.Values)
		}
	}

	return vectors, nil
}

func (c *Client) post(ctx context.Context, operation string, payload, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s%s", c.config.BaseURL, c.config.Model, operation)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gemini response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, truncateBody(responseBody))
	}

	if err := json.Unmarshal(responseBody, result); err != nil {
		return fmt.Errorf("failed to decode gemini response: %w", err)
	}

	return nil
}

func truncateBody(body []byte) string {
	const maxLen = 512
	if len(body) > maxLen {
		return string(body[:maxLen]) + "..."
	}
	return string(body)
}
