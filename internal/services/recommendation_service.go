// Package services – RecommendationService
//
// RecommendationService loads one user's behavioral snapshot and ranks the
// collaborative scores produced by the recommend package. Purchased books
// are never recommended back.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
	"github.com/tbourn/go-bookstore-backend/internal/recommend"
	"github.com/tbourn/go-bookstore-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Recommendation is one recommended book with its merged score.
type Recommendation struct {
	Book  domain.Book `json:"book"`
	Score float64     `json:"score"`
}

// RecommendationService serves per-user collaborative recommendations.
type RecommendationService struct {
	DB *gorm.DB
}

// Snapshot loads the data the collaborative signals are computed from.
func (s *RecommendationService) Snapshot(ctx context.Context, userID string) (recommend.Snapshot, error) {
	var snap recommend.Snapshot

	purchased, err := repo.PurchasedBookIDs(ctx, s.DB, userID)
	if err != nil {
		return snap, err
	}
	others, err := repo.OtherUsersPurchases(ctx, s.DB, userID)
	if err != nil {
		return snap, err
	}
	cart, err := repo.CartBookIDs(ctx, s.DB, userID)
	if err != nil {
		return snap, err
	}
	ratings, err := repo.Ratings(ctx, s.DB, userID)
	if err != nil {
		return snap, err
	}
	favs, err := repo.FavoriteBookIDs(ctx, s.DB, userID)
	if err != nil {
		return snap, err
	}
	books, err := repo.ListBooks(ctx, s.DB)
	if err != nil {
		return snap, err
	}

	snap.Purchased = recommend.NewSet(purchased...)
	snap.OthersPurchased = make(map[string]recommend.Set, len(others))
	for u, ids := range others {
		snap.OthersPurchased[u] = recommend.NewSet(ids...)
	}
	snap.Cart = cart
	snap.Ratings = ratings
	snap.Favorites = favs
	snap.Catalog = make([]recommend.BookMeta, 0, len(books))
	for _, b := range books {
		snap.Catalog = append(snap.Catalog, recommend.BookMeta{ID: b.ID, AuthorID: b.AuthorID, CategoryID: b.CategoryID})
	}
	return snap, nil
}

// ScoreCandidates returns the merged per-book scores for userID, purchased
// books included.
func (s *RecommendationService) ScoreCandidates(ctx context.Context, userID string) (recommend.Scores, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return recommend.ScoreCandidates(snap), nil
}

// Recommend returns the topK highest scored books userID has not purchased.
func (s *RecommendationService) Recommend(ctx context.Context, userID string, topK int) ([]Recommendation, error) {
	tr := otel.Tracer("services/RecommendationService")
	ctx, span := tr.Start(ctx, "Recommend",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("top_k", topK),
		),
	)
	defer span.End()

	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	top := recommend.ScoreCandidates(snap).Top(ClampTopK(topK), snap.Purchased)
	if len(top) == 0 {
		return []Recommendation{}, nil
	}

	ids := make([]string, len(top))
	for i, t := range top {
		ids[i] = t.ID
	}
	books, err := repo.ListBooksByIDs(ctx, s.DB, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	out := make([]Recommendation, 0, len(top))
	for _, t := range top {
		b, ok := byID[t.ID]
		if !ok {
			continue
		}
		out = append(out, Recommendation{Book: b, Score: t.Score})
	}
	return out, nil
}
