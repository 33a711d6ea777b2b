// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the order lookups and the single order
// mutation (PENDING → PAID) the payment flow needs.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetOrder fetches an order by its ID and owner (userID), or ErrNotFound.
func GetOrder(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkOrderPaid moves a PENDING order to PAID. It is a no-op for orders in
// any other status.
func MarkOrderPaid(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, domain.OrderStatusPending).
		Updates(map[string]any{"status": domain.OrderStatusPaid, "updated_at": time.Now().UTC()}).Error
}
