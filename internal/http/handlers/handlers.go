// Package handlers – wiring
//
// Handlers are transport-thin: they validate input, call application
// services through the interfaces below, and translate results and sentinel
// errors into HTTP responses.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
	"github.com/tbourn/go-bookstore-backend/internal/http/middleware"
	"github.com/tbourn/go-bookstore-backend/internal/repo"
	"github.com/tbourn/go-bookstore-backend/internal/services"
	"github.com/tbourn/go-bookstore-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// PaymentService initiates payments and reconciles gateway callbacks.
type PaymentService interface {
	// Initiate creates a PENDING payment and, for GATEWAY, a redirect URL.
	Initiate(ctx context.Context, req services.InitiateRequest) (*services.Initiation, error)
	// GetByRef returns a payment owned by userID.
	GetByRef(ctx context.Context, userID, ref string) (*domain.Payment, error)
	// Reconcile verifies and applies one IPN or return callback.
	Reconcile(ctx context.Context, source string, params map[string]string) (services.Result, error)
}

// SearchService ranks catalog items by embedding similarity.
type SearchService interface {
	Search(ctx context.Context, q string, topK int) ([]services.Hit, error)
	RecommendSimilar(ctx context.Context, bookID string, topK int) ([]services.Hit, error)
}

// RecommendationService ranks books from collaborative signals.
type RecommendationService interface {
	Recommend(ctx context.Context, userID string, topK int) ([]services.Recommendation, error)
}

// EmbeddingAdmin exposes vector maintenance.
type EmbeddingAdmin interface {
	Invalidate(ctx context.Context, bookID string) error
	Stats(ctx context.Context) (repo.EmbeddingCoverage, error)
}

// BackfillRunner queues background backfills and reports their state.
type BackfillRunner interface {
	Trigger() bool
	Status() services.BackfillStatus
}

//
// Handler wiring
//

// Deps bundles the services Handlers depends on. All members are required.
type Deps struct {
	Payments        PaymentService
	Search          SearchService
	Recommendations RecommendationService
	Embeddings      EmbeddingAdmin
	Backfill        BackfillRunner
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	payments PaymentService
	search   SearchService
	recs     RecommendationService
	admin    EmbeddingAdmin
	backfill BackfillRunner
}

// New constructs Handlers bound to the given services.
func New(d Deps) *Handlers {
	return &Handlers{
		payments: d.Payments,
		search:   d.Search,
		recs:     d.Recommendations,
		admin:    d.Embeddings,
		backfill: d.Backfill,
	}
}

// userID is the caller identity resolved by the middleware chain.
func userID(c *gin.Context) string { return middleware.UserID(c) }

// topK reads the optional top_k query parameter; 0 means the service
// default. Range clamping is the services' job.
func topK(c *gin.Context) (int, bool) {
	k, _, err := utils.OptionalInt(c.Query("top_k"))
	return k, err == nil
}
