// Package retrieval provides similarity search over the calculus corpus.
// Documents live in an embedded chromem-go vector store with two collections:
// English textbook chunks and Korean markdown study guides.
package retrieval

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/mathtutor-ai/mathtutor/pkg/llm"
)

// Collection names within the store.
const (
	// CollectionTextbook holds English textbook chunks with chapter and
	// section metadata.
	CollectionTextbook = "calculus"

	// CollectionGuides holds Korean markdown study guides with source URLs.
	CollectionGuides = "guides"
)

// Document is one pre-chunked corpus entry for indexing. Chunking itself
// happens upstream; the store accepts ready chunks.
type Document struct {
	ID      string
	Text    string
	Chapter string
	Section string
	URL     string
}

// Result is one ranked search hit.
type Result struct {
	Text       string
	Chapter    string
	Section    string
	URL        string
	Similarity float32
}

// Store wraps the vector database and the embedding function.
// Safe for concurrent use across workflow runs.
type Store struct {
	db    *chromem.DB
	embed chromem.EmbeddingFunc
}

// GeminiEmbedding adapts an llm.Client into a chromem embedding function
// using the given embedding model.
func GeminiEmbedding(client llm.Client, model string) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return client.Embed(ctx, model, text)
	}
}

// NewStore opens a persistent vector store at path. An empty path keeps the
// store in memory (tests).
func NewStore(path string, embed chromem.EmbeddingFunc) (*Store, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open vector store: %w", err)
		}
	}
	return &Store{db: db, embed: embed}, nil
}

func (s *Store) collection(name string) (*chromem.Collection, error) {
	col, err := s.db.GetOrCreateCollection(name, nil, s.embed)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", name, err)
	}
	return col, nil
}

// Index adds documents to a collection.
func (s *Store) Index(ctx context.Context, collection string, docs []Document) error {
	col, err := s.collection(collection)
	if err != nil {
		return err
	}
	for _, d := range docs {
		meta := map[string]string{}
		if d.Chapter != "" {
			meta["chapter"] = d.Chapter
		}
		if d.Section != "" {
			meta["section"] = d.Section
		}
		if d.URL != "" {
			meta["url"] = d.URL
		}
		doc := chromem.Document{
			ID:       d.ID,
			Content:  d.Text,
			Metadata: meta,
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("index document %s: %w", d.ID, err)
		}
	}
	return nil
}

// Search returns up to k documents of a collection ranked by similarity to
// the query. An empty collection yields no results, not an error.
func (s *Store) Search(ctx context.Context, collection, query string, k int) ([]Result, error) {
	col, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	if n := col.Count(); n < k {
		k = n
	}
	if k == 0 {
		return nil, nil
	}

	hits, err := col.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			Text:       h.Content,
			Chapter:    h.Metadata["chapter"],
			Section:    h.Metadata["section"],
			URL:        h.Metadata["url"],
			Similarity: h.Similarity,
		})
	}
	return results, nil
}
