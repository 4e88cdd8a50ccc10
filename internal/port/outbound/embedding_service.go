package outbound

import "context"

// EmbeddingService turns text into vectors, single or batched. EmbedBatch is
// chunked internally to respect the provider's batch limit.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
