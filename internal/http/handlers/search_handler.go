package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-bookstore-backend/internal/services"
)

// SearchResponse lists ranked books.
type SearchResponse struct {
	Query string         `json:"query,omitempty"`
	Items []services.Hit `json:"items"`
}

// RecommendationsResponse lists personalized recommendations.
type RecommendationsResponse struct {
	Items []services.Recommendation `json:"items"`
}

// Search godoc
// @ID          searchBooks
// @Summary     Semantic book search
// @Description Ranks books by cosine similarity between the query embedding and each book's embedding. When the embedding provider is unavailable the result is an empty list, not an error.
// @Tags        Search
// @Produce     json
// @Param       q      query  string  true   "Search text"
// @Param       top_k  query  int     false  "Result count (default 10, max 100)"
// @Success     200  {object}  handlers.SearchResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /search [get]
func (h *Handlers) Search(c *gin.Context) {
	k, valid := topK(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "top_k must be an integer")
		return
	}
	q := c.Query("q")
	hits, err := h.search.Search(c.Request.Context(), q, k)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSearchFailed, "search failed")
		return
	}
	ok(c, http.StatusOK, SearchResponse{Query: q, Items: hits})
}

// SimilarBooks godoc
// @ID          similarBooks
// @Summary     Books similar to a book
// @Tags        Search
// @Produce     json
// @Param       id     path   string  true   "Book ID"
// @Param       top_k  query  int     false  "Result count (default 10, max 100)"
// @Success     200  {object}  handlers.SearchResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /books/{id}/similar [get]
func (h *Handlers) SimilarBooks(c *gin.Context) {
	k, valid := topK(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "top_k must be an integer")
		return
	}
	hits, err := h.search.RecommendSimilar(c.Request.Context(), c.Param("id"), k)
	if err != nil {
		if errors.Is(err, services.ErrItemNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "book not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeSearchFailed, "similarity search failed")
		return
	}
	ok(c, http.StatusOK, SearchResponse{Items: hits})
}

// Recommendations godoc
// @ID          recommendations
// @Summary     Personalized recommendations
// @Description Collaborative recommendations for the caller from co-purchases, co-ratings, co-favorites and shared categories or authors. Books the caller already bought are excluded.
// @Tags        Recommendations
// @Produce     json
// @Param       X-User-ID  header  string  false  "User ID (demo header)"
// @Param       top_k      query   int     false  "Result count (default 10, max 100)"
// @Success     200  {object}  handlers.RecommendationsResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /recommendations [get]
func (h *Handlers) Recommendations(c *gin.Context) {
	k, valid := topK(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "top_k must be an integer")
		return
	}
	recs, err := h.recs.Recommend(c.Request.Context(), userID(c), k)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeRecommendFailed, "failed to compute recommendations")
		return
	}
	ok(c, http.StatusOK, RecommendationsResponse{Items: recs})
}
