package outbound

import (
	"context"
	"errors"
)

// ErrCollectionNotFound indicates an upsert or delete targeted a collection
// the vector store does not have. The batch executor reacts by provisioning
// the collection and retrying once.
var ErrCollectionNotFound = errors.New("collection not found")

// Point is one destination record in the vector store.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// VectorStore upserts and deletes points in named collections.
type VectorStore interface {
	Upsert(ctx context.Context, collection string, points []Point) error
	Delete(ctx context.Context, collection string, ids []string) error
	EnsureCollection(ctx context.Context, collection string, vectorSize int, distanceMetric string) error
}
