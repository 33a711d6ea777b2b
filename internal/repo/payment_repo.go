// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for payments and
// the gateway callback audit log.
//
// Payments are settled with a compare-and-swap on status: the UPDATE only
// matches a row that is still PENDING, so concurrent callbacks for the same
// transaction reference produce at most one transition.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
)

// ErrActivePayment indicates that the order already has a payment that is
// PENDING or SUCCESS.
var ErrActivePayment = errors.New("order already has an active payment")

// Settlement carries the fields written when a payment leaves PENDING.
type Settlement struct {
	Status               string
	GatewayTransactionNo string
	GatewayResponseCode  string
	BankCode             string
	RawPayload           string
	FailureReason        string
	SettledAt            time.Time
}

// CreatePayment inserts p, assigning an ID and timestamps when missing.
// A second active payment for the same order is ErrActivePayment; unique
// violations on transaction_ref are returned as raw DB errors.
func CreatePayment(ctx context.Context, db *gorm.DB, p *domain.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domain.PaymentStatusPending
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	err := db.WithContext(ctx).Omit("Order").Create(p).Error
	if isActivePaymentViolation(err) {
		return ErrActivePayment
	}
	return err
}

// isActivePaymentViolation matches the sqlite ("payments.order_id") and
// named-constraint forms of a ux_payment_order_active violation.
func isActivePaymentViolation(err error) bool {
	if !IsDuplicate(err) {
		return false
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "payments.order_id") || strings.Contains(low, "ux_payment_order_active")
}

// GetActivePayment returns the order's payment that is not FAILED, or
// ErrNotFound.
func GetActivePayment(ctx context.Context, db *gorm.DB, orderID string) (*domain.Payment, error) {
	var p domain.Payment
	err := db.WithContext(ctx).
		Where("order_id = ? AND status <> ?", orderID, domain.PaymentStatusFailed).
		Order("created_at desc").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPaymentByRef fetches a payment by transaction reference, or ErrNotFound.
func GetPaymentByRef(ctx context.Context, db *gorm.DB, ref string) (*domain.Payment, error) {
	var p domain.Payment
	if err := db.WithContext(ctx).Where("transaction_ref = ?", ref).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPaymentByID fetches a payment by primary key, or ErrNotFound.
func GetPaymentByID(ctx context.Context, db *gorm.DB, id string) (*domain.Payment, error) {
	var p domain.Payment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// SettlePayment moves the PENDING payment identified by ref to s.Status.
// It reports false when no PENDING row matched (already settled or missing).
func SettlePayment(ctx context.Context, db *gorm.DB, ref string, s Settlement) (bool, error) {
	settledAt := s.SettledAt.UTC()
	res := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("transaction_ref = ? AND status = ?", ref, domain.PaymentStatusPending).
		Updates(map[string]any{
			"status":                 s.Status,
			"gateway_transaction_no": s.GatewayTransactionNo,
			"gateway_response_code":  s.GatewayResponseCode,
			"bank_code":              s.BankCode,
			"raw_payload":            s.RawPayload,
			"failure_reason":         s.FailureReason,
			"settled_at":             &settledAt,
			"updated_at":             settledAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CreateCallback appends an audit row for a gateway callback.
func CreateCallback(ctx context.Context, db *gorm.DB, cb *domain.PaymentCallback) error {
	if cb.ID == "" {
		cb.ID = uuid.NewString()
	}
	if cb.CreatedAt.IsZero() {
		cb.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(cb).Error
}
