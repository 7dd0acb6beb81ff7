// Package embedding provides text embedding clients.
package embedding

import "context"

// Embedder turns text into a vector suitable for similarity search.
type Embedder interface {
	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model returns the embedding model identifier.
	Model() string
}
