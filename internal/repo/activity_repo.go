// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the per-user behavioral lookups the
// recommendation aggregator reads: purchases, cart, reviews and favorites.
//
// A book counts as purchased when it appears in any of the user's orders
// that is not CANCELLED.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
)

type purchaseRow struct {
	UserID string
	BookID string
}

func purchases(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx).
		Table(domain.OrderItem{}.TableName()+" AS oi").
		Joins("JOIN "+domain.Order{}.TableName()+" AS o ON o.id = oi.order_id").
		Where("o.status <> ?", domain.OrderStatusCancelled).
		Select("DISTINCT o.user_id AS user_id, oi.book_id AS book_id")
}

// PurchasedBookIDs returns the distinct books userID has bought.
func PurchasedBookIDs(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var rows []purchaseRow
	err := purchases(ctx, db).
		Where("o.user_id = ?", userID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.BookID)
	}
	return out, nil
}

// OtherUsersPurchases maps every user except userID to the books they bought.
func OtherUsersPurchases(ctx context.Context, db *gorm.DB, userID string) (map[string][]string, error) {
	var rows []purchaseRow
	err := purchases(ctx, db).
		Where("o.user_id <> ?", userID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, r := range rows {
		out[r.UserID] = append(out[r.UserID], r.BookID)
	}
	return out, nil
}

// CartBookIDs returns the books in userID's cart.
func CartBookIDs(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var out []string
	err := db.WithContext(ctx).
		Model(&domain.CartItem{}).
		Where("user_id = ?", userID).
		Pluck("book_id", &out).Error
	return out, err
}

// Ratings maps book ID to userID's rating.
func Ratings(ctx context.Context, db *gorm.DB, userID string) (map[string]int, error) {
	var rows []domain.Review
	err := db.WithContext(ctx).
		Select("book_id", "rating").
		Where("user_id = ?", userID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.BookID] = r.Rating
	}
	return out, nil
}

// FavoriteBookIDs returns the books userID favorited.
func FavoriteBookIDs(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var out []string
	err := db.WithContext(ctx).
		Model(&domain.Favorite{}).
		Where("user_id = ?", userID).
		Pluck("book_id", &out).Error
	return out, err
}
