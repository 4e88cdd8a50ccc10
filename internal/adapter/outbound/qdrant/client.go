package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vectorsync/internal/application/common/retry"
	"vectorsync/internal/port/outbound"
)

// DefaultDistanceMetric is used when a collection is auto-provisioned without
// an explicit metric.
const DefaultDistanceMetric = "Cosine"

var validDistanceMetrics = map[string]bool{
	"Cosine":    true,
	"Dot":       true,
	"Euclid":    true,
	"Manhattan": true,
}

// ClientConfig holds the configuration for the Qdrant REST client.
type ClientConfig struct {
	URL     string        `json:"url"`
	APIKey  string        `json:"api_key"`
	Timeout time.Duration `json:"timeout"`
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("qdrant URL cannot be empty")
	}
	if !strings.HasPrefix(c.URL, "http") {
		return errors.New("qdrant URL must be an http(s) endpoint")
	}
	if c.Timeout < 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

// Client is a Qdrant REST API client implementing outbound.VectorStore.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	retrier    *retry.Executor
}

// NewClient creates a new Qdrant client.
func NewClient(config ClientConfig) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid qdrant configuration: %w", err)
	}

	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	config.URL = strings.TrimRight(config.URL, "/")

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		retrier: retry.NewExecutorWithChecker(retry.DefaultConfig(), transientChecker{}),
	}, nil
}

// transientError marks failures worth retrying: network errors, 429 and 5xx.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

type transientChecker struct{}

func (transientChecker) IsRetryable(err error) bool {
	var transient *transientError
	return errors.As(err, &transient)
}

type pointStruct struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

type upsertPointsRequest struct {
	Points []pointStruct `json:"points"`
}

type deletePointsRequest struct {
	Points []string `json:"points"`
}

type createCollectionRequest struct {
	Vectors vectorParams `json:"vectors"`
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type apiResponse struct {
	Status json.RawMessage `json:"status"`
	Result json.RawMessage `json:"result"`
}

// Upsert writes points into the collection, waiting for the operation to be
// applied.
func (c *Client) Upsert(ctx context.Context, collection string, points []outbound.Point) error {
	if len(points) == 0 {
		return nil
	}

	request := upsertPointsRequest{
		Points: make([]pointStruct, 0, len(points)),
	}
	for _, point := range points {
		request.Points = append(request.Points, pointStruct{
			ID:      point.ID,
			Vector:  point.Vector,
			Payload: point.Payload,
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", collection)
	if err := c.do(ctx, http.MethodPut, path, request, nil); err != nil {
		return fmt.Errorf("upsert into %s failed: %w", collection, err)
	}

	return nil
}

// Delete removes points by id from the collection.
func (c *Client) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	request := deletePointsRequest{Points: ids}

	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", collection)
	if err := c.do(ctx, http.MethodPost, path, request, nil); err != nil {
		return fmt.Errorf("delete from %s failed: %w", collection, err)
	}

	return nil
}

// EnsureCollection creates the collection if it does not already exist.
func (c *Client) EnsureCollection(ctx context.Context, collection string, vectorSize int, distanceMetric string) error {
	if vectorSize <= 0 {
		return errors.New("vector size must be positive")
	}
	if distanceMetric == "" {
		distanceMetric = DefaultDistanceMetric
	}
	if !validDistanceMetrics[distanceMetric] {
		return fmt.Errorf("unsupported distance metric: %s", distanceMetric)
	}

	exists, err := c.collectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	request := createCollectionRequest{
		Vectors: vectorParams{
			Size:     vectorSize,
			Distance: distanceMetric,
		},
	}

	path := fmt.Sprintf("/collections/%s", collection)
	if err := c.do(ctx, http.MethodPut, path, request, nil); err != nil {
		// A concurrent creator winning the race is fine.
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("create collection %s failed: %w", collection, err)
	}

	return nil
}

func (c *Client) collectionExists(ctx context.Context, collection string) (bool, error) {
	path := fmt.Sprintf("/collections/%s/exists", collection)

	var result struct {
		Exists bool `json:"exists"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		if errors.Is(err, outbound.ErrCollectionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("collection existence check failed: %w", err)
	}

	return result.Exists, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, result any) error {
	return c.retrier.Execute(ctx, func(ctx context.Context) error {
		return c.doOnce(ctx, method, path, payload, result)
	})
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.URL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("api-key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transientError{err: fmt.Errorf("qdrant request failed: %w", err)}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transientError{err: fmt.Errorf("failed to read qdrant response: %w", err)}
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", outbound.ErrCollectionNotFound, strings.TrimSpace(string(responseBody)))
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &transientError{
			err: fmt.Errorf("qdrant returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(responseBody))),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(responseBody)))
	}

	if result != nil {
		var envelope apiResponse
		if unmarshalErr := json.Unmarshal(responseBody, &envelope); unmarshalErr != nil {
			return fmt.Errorf("failed to decode qdrant response: %w", unmarshalErr)
		}
		if len(envelope.Result) > 0 {
			if unmarshalErr := json.Unmarshal(envelope.Result, result); unmarshalErr != nil {
				return fmt.Errorf("failed to decode qdrant result: %w", unmarshalErr)
			}
		}
	}

	return nil
}
