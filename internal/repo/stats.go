// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used by the
// embedding admin endpoints.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
)

// EmbeddingCoverage describes how much of the catalog has a stored vector.
type EmbeddingCoverage struct {
	Books         int64
	Embedded      int64
	LastCreatedAt *time.Time
}

// EmbeddingStats returns the catalog size, the number of stored vectors and
// the newest vector's creation time (nil when there are none).
func EmbeddingStats(ctx context.Context, db *gorm.DB) (EmbeddingCoverage, error) {
	var out EmbeddingCoverage
	if err := db.WithContext(ctx).Model(&domain.Book{}).Count(&out.Books).Error; err != nil {
		return out, err
	}

	q := db.WithContext(ctx).Model(&domain.BookEmbedding{})
	if err := q.Count(&out.Embedded).Error; err != nil {
		return out, err
	}
	if out.Embedded == 0 {
		return out, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err := db.WithContext(ctx).Model(&domain.BookEmbedding{}).
		Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return out, err
	}
	out.LastCreatedAt = &row.CreatedAt
	return out, nil
}
