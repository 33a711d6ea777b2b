package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-bookstore-backend/internal/services"
)

// BackfillResponse acknowledges a backfill request.
type BackfillResponse struct {
	Queued bool                    `json:"queued"`
	Status services.BackfillStatus `json:"status"`
}

// EmbeddingStatsResponse reports embedding coverage and backfill state.
type EmbeddingStatsResponse struct {
	Books         int64                   `json:"books"`
	Embedded      int64                   `json:"embedded"`
	Coverage      float64                 `json:"coverage" example:"0.97"`
	LastCreatedAt *time.Time              `json:"last_created_at,omitempty"`
	Backfill      services.BackfillStatus `json:"backfill"`
}

// TriggerBackfill godoc
// @ID          triggerBackfill
// @Summary     Queue an embedding backfill
// @Description Queues a background run computing embeddings for every book without one. At most one run is queued at a time.
// @Tags        Admin
// @Produce     json
// @Success     202  {object}  handlers.BackfillResponse
// @Failure     409  {object}  handlers.ErrorResponse  "A run is already queued"
// @Router      /admin/embeddings/backfill [post]
func (h *Handlers) TriggerBackfill(c *gin.Context) {
	if !h.backfill.Trigger() {
		fail(c, http.StatusConflict, ErrCodeBackfillQueued, "a backfill is already queued")
		return
	}
	ok(c, http.StatusAccepted, BackfillResponse{Queued: true, Status: h.backfill.Status()})
}

// EmbeddingStats godoc
// @ID          embeddingStats
// @Summary     Embedding coverage
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  handlers.EmbeddingStatsResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /admin/embeddings/stats [get]
func (h *Handlers) EmbeddingStats(c *gin.Context) {
	cov, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, "failed to load embedding stats")
		return
	}
	resp := EmbeddingStatsResponse{
		Books:         cov.Books,
		Embedded:      cov.Embedded,
		LastCreatedAt: cov.LastCreatedAt,
		Backfill:      h.backfill.Status(),
	}
	if cov.Books > 0 {
		resp.Coverage = float64(cov.Embedded) / float64(cov.Books)
	}
	ok(c, http.StatusOK, resp)
}

// InvalidateEmbedding godoc
// @ID          invalidateEmbedding
// @Summary     Drop a book's embedding
// @Description Deletes the stored vector so the next search or backfill regenerates it, e.g. after the book's text changed.
// @Tags        Admin
// @Param       bookId  path  string  true  "Book ID"
// @Success     204  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /admin/embeddings/{bookId} [delete]
func (h *Handlers) InvalidateEmbedding(c *gin.Context) {
	err := h.admin.Invalidate(c.Request.Context(), c.Param("bookId"))
	if err != nil {
		if errors.Is(err, services.ErrItemNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "book not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to invalidate embedding")
		return
	}
	noContent(c)
}
