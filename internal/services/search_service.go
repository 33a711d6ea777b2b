// Package services – SearchService
//
// SearchService answers free-text catalog search and "more like this"
// lookups by cosine similarity over per-book embeddings. When the embedding
// provider is unavailable the result is empty, never an error.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
	"github.com/tbourn/go-bookstore-backend/internal/embedding"
	"github.com/tbourn/go-bookstore-backend/internal/repo"
	"github.com/tbourn/go-bookstore-backend/internal/search"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTopK = 10
	maxTopK     = 100
)

// Hit is one ranked book.
type Hit struct {
	Book  domain.Book `json:"book"`
	Score float64     `json:"score"`
}

// SearchService ranks catalog books against a query or a reference book.
type SearchService struct {
	DB    *gorm.DB
	Store *EmbeddingStore
	// Queries embeds query text; usually a cache in front of the provider.
	Queries Embedder

	// Concurrency bounds provider calls for books missing a vector.
	Concurrency int
	Logger      *zerolog.Logger
}

func (s *SearchService) logger() *zerolog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return &log.Logger
}

// ClampTopK applies the default and upper bound to a requested result count.
func ClampTopK(k int) int {
	if k <= 0 {
		return defaultTopK
	}
	if k > maxTopK {
		return maxTopK
	}
	return k
}

// Search embeds q and returns the topK most similar books. An empty query
// returns an empty list without calling the provider.
func (s *SearchService) Search(ctx context.Context, q string, topK int) ([]Hit, error) {
	tr := otel.Tracer("services/SearchService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(attribute.Int("top_k", topK)),
	)
	defer span.End()

	q = search.NormalizeQuery(q)
	if q == "" {
		return []Hit{}, nil
	}
	qv, ok := s.Queries.Embed(ctx, q, embedding.InputQuery).Vector()
	if !ok {
		s.logger().Warn().Msg("search degraded: query embedding unavailable")
		return []Hit{}, nil
	}
	return s.rank(ctx, qv, ClampTopK(topK))
}

// RecommendSimilar ranks books against bookID's own vector, excluding bookID.
func (s *SearchService) RecommendSimilar(ctx context.Context, bookID string, topK int) ([]Hit, error) {
	tr := otel.Tracer("services/SearchService")
	ctx, span := tr.Start(ctx, "RecommendSimilar",
		trace.WithAttributes(
			attribute.String("book.id", bookID),
			attribute.Int("top_k", topK),
		),
	)
	defer span.End()

	book, err := repo.GetBook(ctx, s.DB, bookID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	qv, ok := s.Store.GetOrCompute(ctx, book.ID, BookText(*book)).Vector()
	if !ok {
		s.logger().Warn().Str("book_id", book.ID).Msg("similar degraded: book embedding unavailable")
		return []Hit{}, nil
	}
	return s.rank(ctx, qv, ClampTopK(topK), search.WithExclude(book.ID))
}

func (s *SearchService) rank(ctx context.Context, qv []float32, k int, opts ...search.Option) ([]Hit, error) {
	books, err := repo.ListBooks(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return []Hit{}, nil
	}
	vecs, err := s.Store.Vectors(ctx, books, s.Concurrency)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Book, len(books))
	cands := make([]search.Candidate, 0, len(vecs))
	for _, b := range books {
		byID[b.ID] = b
		if v, ok := vecs[b.ID]; ok {
			cands = append(cands, search.Candidate{ID: b.ID, Vector: v})
		}
	}

	ranked := search.Rank(qv, cands, k, opts...)
	hits := make([]Hit, 0, len(ranked))
	for _, r := range ranked {
		hits = append(hits, Hit{Book: byID[r.ID], Score: r.Score})
	}
	return hits, nil
}
