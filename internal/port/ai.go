package port

import "context"

// Embedder abstracts the embedding backend. Implementations can target
// Ollama, OpenAI, or any compatible API; they must preserve input order and
// respect their own per-call batch limits internally.
type Embedder interface {
	// ModelName returns the identifier of the embedding model being used.
	ModelName() string

	// Dimension returns the fixed width of the vectors this model produces.
	Dimension() int

	// Embed generates a vector embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, batching them into
	// the minimum number of backend calls. The result has the same length
	// and order as the input; a partial backend failure fails the whole batch.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
