package domain

import "time"

// Idempotency records the payment produced by a previously processed payment
// initiation, keyed by (user_id, order_id, key). A retried POST carrying the
// same Idempotency-Key is answered with PaymentID instead of creating a second
// pending payment.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_order_key,priority:1"`
	OrderID   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_order_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_order_key,priority:3"`
	PaymentID string    `gorm:"type:TEXT NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
