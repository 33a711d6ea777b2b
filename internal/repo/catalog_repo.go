// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read-only catalog queries used by
// search, recommendation and embedding backfill.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
)

// GetBook fetches a book by ID, or ErrNotFound.
func GetBook(ctx context.Context, db *gorm.DB, id string) (*domain.Book, error) {
	var b domain.Book
	if err := db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBooks returns every book ordered by ID.
func ListBooks(ctx context.Context, db *gorm.DB) ([]domain.Book, error) {
	var out []domain.Book
	err := db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

// ListBooksByIDs returns the books with the given IDs, in no particular order.
func ListBooksByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]domain.Book, error) {
	if len(ids) == 0 {
		return []domain.Book{}, nil
	}
	var out []domain.Book
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

// ListBooksWithoutEmbedding returns books that have no stored vector.
func ListBooksWithoutEmbedding(ctx context.Context, db *gorm.DB) ([]domain.Book, error) {
	var out []domain.Book
	err := db.WithContext(ctx).
		Where("id NOT IN (?)", db.Model(&domain.BookEmbedding{}).Select("book_id")).
		Order("id asc").
		Find(&out).Error
	return out, err
}
