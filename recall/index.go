package recall

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/coder/hnsw"
)

// embedText abstracts the Embedder so tests can index without an API.
type embedText interface {
	Model() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index holds embedded chat exchanges in an in-memory HNSW graph.
type Index struct {
	embedder embedText

	mu    sync.RWMutex
	graph *hnsw.Graph[string] // keyed by exchange hash
	turns map[string]string   // hash -> exchange text
}

// NewIndex creates an empty index backed by the given embedder.
func NewIndex(embedder *Embedder) *Index {
	return newIndex(embedder)
}

func newIndex(embedder embedText) *Index {
	return &Index{
		embedder: embedder,
		graph:    hnsw.NewGraph[string](),
		turns:    make(map[string]string),
	}
}

// hashText keys an exchange by its content.
func hashText(text string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(text)))
}

// Add embeds one exchange and inserts it. Re-adding identical text is a
// no-op.
func (ix *Index) Add(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	hash := hashText(text)

	ix.mu.RLock()
	_, exists := ix.graph.Lookup(hash)
	ix.mu.RUnlock()
	if exists {
		return nil
	}

	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.graph.Add(hnsw.MakeNode(hash, vec))
	ix.turns[hash] = text
	return nil
}

// Search embeds the query and returns the topK most similar exchanges.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]string, error) {
	if topK <= 0 {
		return nil, nil
	}

	queryVec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.graph.Len() == 0 {
		return nil, nil
	}

	neighbors := ix.graph.Search(queryVec, topK)
	turns := make([]string, len(neighbors))
	for i, n := range neighbors {
		turns[i] = ix.turns[n.Key]
	}
	return turns, nil
}

// Len returns the number of indexed exchanges.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.graph.Len()
}
