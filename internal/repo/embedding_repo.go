// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for per-book
// embedding vectors.
//
// Vectors are written with an upsert on book_id: two requests computing the
// same missing vector both succeed and the last writer wins.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
)

// GetEmbedding fetches the vector for bookID, or ErrNotFound.
func GetEmbedding(ctx context.Context, db *gorm.DB, bookID string) (*domain.BookEmbedding, error) {
	var e domain.BookEmbedding
	if err := db.WithContext(ctx).Where("book_id = ?", bookID).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEmbeddings loads every stored vector in one query.
func ListEmbeddings(ctx context.Context, db *gorm.DB) ([]domain.BookEmbedding, error) {
	var out []domain.BookEmbedding
	err := db.WithContext(ctx).Order("book_id asc").Find(&out).Error
	return out, err
}

// UpsertEmbedding stores vec for bookID, replacing any existing row.
func UpsertEmbedding(ctx context.Context, db *gorm.DB, bookID, model string, vec []float32) (*domain.BookEmbedding, error) {
	e := &domain.BookEmbedding{
		ID:         uuid.NewString(),
		BookID:     bookID,
		Vector:     domain.EncodeVector(vec),
		Dimensions: len(vec),
		Model:      model,
		CreatedAt:  time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "book_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"vector", "dimensions", "model", "created_at"}),
		}).
		Create(e).Error
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEmbedding removes the vector for bookID. It returns ErrNotFound when
// there was none.
func DeleteEmbedding(ctx context.Context, db *gorm.DB, bookID string) error {
	res := db.WithContext(ctx).Where("book_id = ?", bookID).Delete(&domain.BookEmbedding{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
