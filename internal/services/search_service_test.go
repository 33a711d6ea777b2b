package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-bookstore-backend/internal/embedding"
)

func newSearchService(t *testing.T, fe *fakeEmbedder) *SearchService {
	t.Helper()
	db := newServiceDB(t)
	seedCatalog(t, db)
	return &SearchService{
		DB:          db,
		Store:       &EmbeddingStore{DB: db, Embedder: fe},
		Queries:     fe,
		Concurrency: 2,
	}
}

func hitIDs(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Book.ID
	}
	return out
}

func TestSearch_RanksByCosine(t *testing.T) {
	fe := catalogEmbedder()
	s := newSearchService(t, fe)

	hits, err := s.Search(context.Background(), "  desert   planet ", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	ids := hitIDs(hits)
	if len(ids) != 2 || ids[0] != "b1" || ids[1] != "b2" {
		t.Fatalf("ranking = %v", ids)
	}
	if hits[0].Score <= hits[1].Score || hits[0].Book.Title != "Dune" {
		t.Fatalf("hits = %+v", hits)
	}
	if fe.seen[0] != embedding.InputQuery {
		t.Fatalf("query embedded as %q", fe.seen[0])
	}
}

func TestSearch_EmptyQueryDoesNotCallProvider(t *testing.T) {
	fe := catalogEmbedder()
	s := newSearchService(t, fe)

	hits, err := s.Search(context.Background(), "   ", 10)
	if err != nil || hits == nil || len(hits) != 0 {
		t.Fatalf("hits = %v, %v", hits, err)
	}
	if fe.Calls() != 0 {
		t.Fatalf("provider calls = %d; want 0", fe.Calls())
	}
}

func TestSearch_EmptyCatalog(t *testing.T) {
	fe := catalogEmbedder()
	db := newServiceDB(t)
	s := &SearchService{DB: db, Store: &EmbeddingStore{DB: db, Embedder: fe}, Queries: fe}

	hits, err := s.Search(context.Background(), "desert", 10)
	if err != nil || len(hits) != 0 {
		t.Fatalf("hits = %v, %v", hits, err)
	}
}

func TestSearch_ProviderDownReturnsEmpty(t *testing.T) {
	fe := &fakeEmbedder{}
	s := newSearchService(t, fe)

	hits, err := s.Search(context.Background(), "desert", 10)
	if err != nil || hits == nil || len(hits) != 0 {
		t.Fatalf("hits = %v, %v", hits, err)
	}
}

func TestSearch_SkipsUnavailableItems(t *testing.T) {
	fe := catalogEmbedder()
	fe.down = []string{"Hyperion"}
	s := newSearchService(t, fe)

	hits, err := s.Search(context.Background(), "desert", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	ids := hitIDs(hits)
	if len(ids) != 2 || ids[0] != "b1" || ids[1] != "b3" {
		t.Fatalf("ranking = %v", ids)
	}
}

func TestRecommendSimilar_ExcludesTarget(t *testing.T) {
	fe := catalogEmbedder()
	s := newSearchService(t, fe)

	hits, err := s.RecommendSimilar(context.Background(), "b1", 5)
	if err != nil {
		t.Fatalf("RecommendSimilar: %v", err)
	}
	ids := hitIDs(hits)
	if len(ids) != 2 || ids[0] != "b2" || ids[1] != "b3" {
		t.Fatalf("ranking = %v", ids)
	}
	if hits[0].Score < 0.79 || hits[0].Score > 0.81 {
		t.Fatalf("score(b1,b2) = %v; want 0.8", hits[0].Score)
	}

	if _, err := s.RecommendSimilar(context.Background(), "missing", 5); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestRecommendSimilar_TargetUnavailable(t *testing.T) {
	fe := catalogEmbedder()
	fe.down = []string{"Dune"}
	s := newSearchService(t, fe)

	hits, err := s.RecommendSimilar(context.Background(), "b1", 5)
	if err != nil || len(hits) != 0 {
		t.Fatalf("hits = %v, %v", hits, err)
	}
}

func TestClampTopK(t *testing.T) {
	cases := map[int]int{-1: 10, 0: 10, 3: 3, 100: 100, 1000: 100}
	for in, want := range cases {
		if got := ClampTopK(in); got != want {
			t.Fatalf("ClampTopK(%d) = %d; want %d", in, got, want)
		}
	}
}
