package domain

import (
	"time"
)

// Payment methods.
const (
	PaymentMethodCash    = "CASH"
	PaymentMethodGateway = "GATEWAY"
)

// Payment lifecycle statuses. SUCCESS and FAILED are terminal.
const (
	PaymentStatusPending = "PENDING"
	PaymentStatusSuccess = "SUCCESS"
	PaymentStatusFailed  = "FAILED"
)

// Payment is the record settling one order. It is created PENDING when a
// payment is initiated and is moved to a terminal status only by gateway
// reconciliation. Rows are never deleted.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - OrderID: the owning order. An order has at most one payment that is
//     not FAILED (partial unique index ux_payment_order_active), so a
//     failed attempt can be retried but an order is never paid twice.
//   - Amount: VND minor units; the gateway reports Amount*100.
//   - Method: CASH or GATEWAY.
//   - Status: PENDING, SUCCESS or FAILED.
//   - TransactionRef: unique reconciliation key sent as vnp_TxnRef.
//   - GatewayTransactionNo / GatewayResponseCode / BankCode: provider data
//     copied from the settling callback.
//   - RawPayload: bounded JSON snapshot of the settling callback.
//   - FailureReason: short machine reason when FAILED (e.g. amount_mismatch).
//   - SettledAt: time of the transition out of PENDING.
type Payment struct {
	ID                   string     `json:"id"                     gorm:"type:char(36);primaryKey"`
	OrderID              string     `json:"order_id"               gorm:"type:char(36);not null;index;uniqueIndex:ux_payment_order_active,where:status <> 'FAILED'"`
	Amount               int64      `json:"amount"                 gorm:"not null;check:amount > 0"`
	Method               string     `json:"method"                 gorm:"type:varchar(16);not null;check:method IN ('CASH','GATEWAY')"`
	Status               string     `json:"status"                 gorm:"type:varchar(16);not null;default:'PENDING';check:status IN ('PENDING','SUCCESS','FAILED');index"`
	TransactionRef       string     `json:"transaction_ref"        gorm:"type:varchar(64);not null;uniqueIndex:ux_payment_txn_ref"`
	GatewayTransactionNo string     `json:"gateway_transaction_no,omitempty" gorm:"type:varchar(64)"`
	GatewayResponseCode  string     `json:"gateway_response_code,omitempty"  gorm:"type:varchar(8)"`
	BankCode             string     `json:"bank_code,omitempty"    gorm:"type:varchar(32)"`
	RawPayload           string     `json:"-"                      gorm:"type:text"`
	FailureReason        string     `json:"failure_reason,omitempty" gorm:"type:varchar(64)"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	SettledAt            *time.Time `json:"settled_at,omitempty"`

	Order Order `json:"-" gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Payment.
func (Payment) TableName() string { return "payments" }

// IsTerminal reports whether the payment has left PENDING.
func (p Payment) IsTerminal() bool {
	return p.Status == PaymentStatusSuccess || p.Status == PaymentStatusFailed
}

// PaymentCallback is an append-only audit row for every gateway callback,
// including ones rejected before a payment record was found.
type PaymentCallback struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	TransactionRef string    `json:"transaction_ref" gorm:"type:varchar(64);index"`
	Source         string    `json:"source"          gorm:"type:varchar(16);not null"`
	AckCode        string    `json:"ack_code"        gorm:"type:varchar(4);not null"`
	Outcome        string    `json:"outcome"         gorm:"type:varchar(32);not null"`
	Payload        string    `json:"payload"         gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"      gorm:"index"`
}

// TableName returns the database table name for PaymentCallback.
func (PaymentCallback) TableName() string { return "payment_callbacks" }
