// Package services – EmbeddingStore
//
// EmbeddingStore materializes one vector per book on demand. Stored vectors
// are returned as-is; a miss computes the vector through the Embedder,
// persists it and returns it. Unavailable outcomes are never persisted, so
// the next access retries the provider.
//
// Concurrent misses for the same book share one provider call (singleflight)
// that outlives a canceled caller, so joined callers still get the vector.
// Races across processes are tolerated: the upsert is last-writer-wins.
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
	"github.com/tbourn/go-bookstore-backend/internal/embedding"
	"github.com/tbourn/go-bookstore-backend/internal/observability"
	"github.com/tbourn/go-bookstore-backend/internal/repo"
	"github.com/tbourn/go-bookstore-backend/internal/search"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultComputeConcurrency = 4

// Embedder produces embeddings. *embedding.Client and *embedding.CachedClient
// satisfy it; tests use fakes.
type Embedder interface {
	Embed(ctx context.Context, text string, inputType embedding.InputType) embedding.Outcome
	Model() string
}

// EmbeddingStore reads and lazily computes per-book vectors.
type EmbeddingStore struct {
	DB       *gorm.DB
	Embedder Embedder
	Logger   *zerolog.Logger
	// ComputeTimeout bounds one shared provider call. Zero leaves the bound
	// to the Embedder.
	ComputeTimeout time.Duration

	group singleflight.Group
}

// BackfillReport summarizes one backfill run.
type BackfillReport struct {
	Total       int           `json:"total"`
	Stored      int           `json:"stored"`
	Unavailable int           `json:"unavailable"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"duration_ns"`
}

// BookText is the text embedded for b.
func BookText(b domain.Book) string {
	return search.DocumentText(b.Title, b.Author, b.Category, b.Description)
}

func (s *EmbeddingStore) logger() *zerolog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return &log.Logger
}

// GetOrCompute returns the stored vector for bookID, or computes text's
// document embedding, persists it, and returns it. Storage read failures
// fall through to computing; a provider failure yields Unavailable.
func (s *EmbeddingStore) GetOrCompute(ctx context.Context, bookID, text string) embedding.Outcome {
	tr := otel.Tracer("services/EmbeddingStore")
	ctx, span := tr.Start(ctx, "GetOrCompute",
		trace.WithAttributes(attribute.String("book.id", bookID)),
	)
	defer span.End()

	rec, err := repo.GetEmbedding(ctx, s.DB, bookID)
	switch {
	case err == nil:
		if v := rec.Values(); len(v) > 0 {
			span.SetAttributes(attribute.Bool("embedding.stored", true))
			return embedding.Available(v)
		}
	case !errors.Is(err, repo.ErrNotFound):
		s.logger().Warn().Err(err).Str("book_id", bookID).Msg("embedding lookup failed")
	}
	return s.compute(ctx, bookID, text)
}

// compute embeds text once per bookID among concurrent callers and persists
// available vectors. The shared call is detached from any single caller's
// cancellation; each caller stops waiting when its own ctx is done.
func (s *EmbeddingStore) compute(ctx context.Context, bookID, text string) embedding.Outcome {
	ch := s.group.DoChan(bookID, func() (any, error) {
		callCtx := context.WithoutCancel(ctx)
		if s.ComputeTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, s.ComputeTimeout)
			defer cancel()
		}
		out := s.Embedder.Embed(callCtx, text, embedding.InputDocument)
		vec, ok := out.Vector()
		if !ok {
			return out, nil
		}
		if _, err := repo.UpsertEmbedding(callCtx, s.DB, bookID, s.Embedder.Model(), vec); err != nil {
			s.logger().Error().Err(err).Str("book_id", bookID).Msg("embedding persist failed")
		}
		return out, nil
	})
	select {
	case res := <-ch:
		return res.Val.(embedding.Outcome)
	case <-ctx.Done():
		return embedding.Unavailable(ctx.Err())
	}
}

// LoadAll returns every stored vector keyed by book ID in one query.
func (s *EmbeddingStore) LoadAll(ctx context.Context) (map[string][]float32, error) {
	rows, err := repo.ListEmbeddings(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float32, len(rows))
	for _, r := range rows {
		if v := r.Values(); len(v) > 0 {
			out[r.BookID] = v
		}
	}
	return out, nil
}

// Vectors returns vectors for books: stored ones from a single bulk load,
// the rest computed with at most concurrency provider calls in flight.
// Books whose embedding is unavailable are absent from the result.
func (s *EmbeddingStore) Vectors(ctx context.Context, books []domain.Book, concurrency int) (map[string][]float32, error) {
	tr := otel.Tracer("services/EmbeddingStore")
	ctx, span := tr.Start(ctx, "Vectors",
		trace.WithAttributes(attribute.Int("books", len(books))),
	)
	defer span.End()

	stored, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float32, len(books))
	var missing []domain.Book
	for _, b := range books {
		if v, ok := stored[b.ID]; ok {
			out[b.ID] = v
			continue
		}
		missing = append(missing, b)
	}
	span.SetAttributes(attribute.Int("missing", len(missing)))
	if len(missing) == 0 {
		return out, nil
	}

	if concurrency <= 0 {
		concurrency = defaultComputeConcurrency
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, b := range missing {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if v, ok := s.compute(gctx, b.ID, BookText(b)).Vector(); ok {
				mu.Lock()
				out[b.ID] = v
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate deletes bookID's vector so the next access regenerates it.
func (s *EmbeddingStore) Invalidate(ctx context.Context, bookID string) error {
	if _, err := repo.GetBook(ctx, s.DB, bookID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrItemNotFound
		}
		return err
	}
	if err := repo.DeleteEmbedding(ctx, s.DB, bookID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	s.logger().Info().Str("book_id", bookID).Msg("embedding invalidated")
	return nil
}

// Stats reports embedding coverage.
func (s *EmbeddingStore) Stats(ctx context.Context) (repo.EmbeddingCoverage, error) {
	return repo.EmbeddingStats(ctx, s.DB)
}

// Backfill computes vectors for every book that has none. Per-book failures
// are counted, not returned; only cancellation or a failed listing aborts.
func (s *EmbeddingStore) Backfill(ctx context.Context, concurrency int) (BackfillReport, error) {
	tr := otel.Tracer("services/EmbeddingStore")
	ctx, span := tr.Start(ctx, "Backfill")
	defer span.End()

	start := time.Now()
	books, err := repo.ListBooksWithoutEmbedding(ctx, s.DB)
	if err != nil {
		return BackfillReport{}, err
	}
	rep := BackfillReport{Total: len(books)}
	if concurrency <= 0 {
		concurrency = defaultComputeConcurrency
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, b := range books {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result := "stored"
			vec, ok := s.Embedder.Embed(gctx, BookText(b), embedding.InputDocument).Vector()
			if !ok {
				result = "unavailable"
			} else if _, err := repo.UpsertEmbedding(gctx, s.DB, b.ID, s.Embedder.Model(), vec); err != nil {
				s.logger().Error().Err(err).Str("book_id", b.ID).Msg("backfill persist failed")
				result = "error"
			}
			observability.EmbeddingBackfillItems.WithLabelValues(result).Inc()

			mu.Lock()
			switch result {
			case "stored":
				rep.Stored++
			case "unavailable":
				rep.Unavailable++
			default:
				rep.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	rep.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("total", rep.Total),
		attribute.Int("stored", rep.Stored),
		attribute.Int("unavailable", rep.Unavailable),
	)
	return rep, err
}
