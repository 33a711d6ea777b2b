// Package services defines the business logic for payment reconciliation,
// embedding storage, similarity search and recommendations.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages, HTTP status codes or gateway
// acknowledgment codes is performed at the handler layer.
package services

import (
	"errors"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
)

// Payment-related errors.
var (
	// ErrDuplicateReference is returned when a payment with the same
	// transaction reference already exists.
	ErrDuplicateReference = errors.New("duplicate transaction reference")

	// ErrUnknownReference indicates that no payment matches a callback's
	// transaction reference.
	ErrUnknownReference = errors.New("unknown transaction reference")

	// ErrAmountMismatch is returned when the amount reported by the gateway
	// differs from the recorded amount scaled by 100.
	ErrAmountMismatch = errors.New("amount mismatch")

	// ErrInvalidSignature is returned when a callback's secure hash does not
	// verify.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidAmount is returned when a payment amount is not a positive
	// whole number of VND the gateway can carry. It is the domain sentinel,
	// so gateway client rejections match it too.
	ErrInvalidAmount = domain.ErrInvalidAmount

	// ErrPaymentInProgress is returned when the order already has a PENDING
	// payment with a different method.
	ErrPaymentInProgress = errors.New("order already has a pending payment")

	// ErrInvalidMethod is returned for a payment method outside CASH/GATEWAY.
	ErrInvalidMethod = errors.New("invalid payment method")

	// ErrOrderNotFound indicates that the order does not exist or is not
	// accessible to the current user.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderNotPayable is returned when the order is no longer PENDING.
	ErrOrderNotPayable = errors.New("order is not payable")

	// ErrGatewayUnavailable is returned for GATEWAY payments when no gateway
	// merchant credentials are configured.
	ErrGatewayUnavailable = errors.New("payment gateway is not configured")

	// ErrPaymentNotFound indicates that the payment does not exist or belongs
	// to another user's order.
	ErrPaymentNotFound = errors.New("payment not found")
)

// Catalog-related errors.
var (
	// ErrItemNotFound indicates that the requested book does not exist.
	ErrItemNotFound = errors.New("item not found")
)
