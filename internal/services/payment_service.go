// Package services – PaymentService
//
// This file implements PaymentService, which owns the payment record
// lifecycle: creating PENDING records, initiating gateway payments, and
// reconciling gateway callbacks (IPN and browser return) into terminal
// SUCCESS/FAILED states.
//
// Reconciliation never returns an error the gateway could not act on: every
// callback produces a Result carrying one of the gateway's acknowledgment
// codes, and every callback is appended to the audit log.
//
// Observability: public methods are OpenTelemetry-instrumented and every
// callback outcome is counted in payment_reconciliations_total.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
	"github.com/tbourn/go-bookstore-backend/internal/observability"
	"github.com/tbourn/go-bookstore-backend/internal/repo"
	"github.com/tbourn/go-bookstore-backend/internal/vnpay"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Reconciliation outcomes, used as audit values and metric labels.
const (
	OutcomeSuccess          = "success"
	OutcomeFailed           = "failed"
	OutcomeAmountMismatch   = "amount_mismatch"
	OutcomeDuplicate        = "duplicate"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeUnknownReference = "unknown_reference"
	OutcomeMalformed        = "malformed"
	OutcomeError            = "error"
)

// Callback sources.
const (
	SourceIPN    = "ipn"
	SourceReturn = "return"
)

const (
	defaultRawPayloadMax = 2048
	defaultIdemTTL       = 24 * time.Hour
	orderInfoPrefix      = "Thanh toan don hang "
)

// Gateway is the subset of the VNPay client the service depends on.
type Gateway interface {
	BuildRedirectURL(amount int64, orderInfo, txnRef, clientIP string) (string, error)
	ValidateSignature(params map[string]string) bool
}

// PaymentService coordinates payment creation and gateway reconciliation.
type PaymentService struct {
	DB      *gorm.DB
	Gateway Gateway

	// RawPayloadMax bounds the stored callback snapshot in bytes.
	RawPayloadMax int
	// IdempotencyTTL is how long an Idempotency-Key replays its payment.
	IdempotencyTTL time.Duration

	Logger *zerolog.Logger
	Now    func() time.Time
	NewRef func(now time.Time) string
}

// InitiateRequest describes a shopper's request to pay an order.
type InitiateRequest struct {
	UserID         string
	OrderID        string
	Method         string
	ClientIP       string
	IdempotencyKey string
}

// Initiation is the result of Initiate. RedirectURL is empty for CASH.
type Initiation struct {
	Payment     *domain.Payment
	RedirectURL string
	Replayed    bool
	// Resumed marks an existing PENDING payment returned instead of a new one.
	Resumed bool
}

// Result is the acknowledgment of one gateway callback.
type Result struct {
	AckCode string
	Outcome string
	Payment *domain.Payment
}

// Ack returns the gateway acknowledgment body for r.
func (r Result) Ack() vnpay.Ack { return vnpay.NewAck(r.AckCode) }

// NewTransactionRef returns "<unix-millis>-<8 hex>".
func NewTransactionRef(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}

func (s *PaymentService) logger() *zerolog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return &log.Logger
}

func (s *PaymentService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// CreatePending inserts a PENDING payment for orderID.
func (s *PaymentService) CreatePending(ctx context.Context, orderID string, amount int64, method, ref string) (*domain.Payment, error) {
	tr := otel.Tracer("services/PaymentService")
	ctx, span := tr.Start(ctx, "CreatePending",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("payment.ref", ref),
		),
	)
	defer span.End()

	return s.createPending(ctx, s.DB, orderID, amount, method, ref)
}

func (s *PaymentService) createPending(ctx context.Context, db *gorm.DB, orderID string, amount int64, method, ref string) (*domain.Payment, error) {
	if _, err := domain.AmountFromDecimal(decimal.NewFromInt(amount)); err != nil {
		return nil, ErrInvalidAmount
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method != domain.PaymentMethodCash && method != domain.PaymentMethodGateway {
		return nil, ErrInvalidMethod
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("create payment: empty transaction reference")
	}

	if _, err := repo.GetPaymentByRef(ctx, db, ref); err == nil {
		return nil, ErrDuplicateReference
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if _, err := repo.GetActivePayment(ctx, db, orderID); err == nil {
		return nil, ErrPaymentInProgress
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	p := &domain.Payment{
		OrderID:        orderID,
		Amount:         amount,
		Method:         method,
		Status:         domain.PaymentStatusPending,
		TransactionRef: ref,
	}
	if err := repo.CreatePayment(ctx, db, p); err != nil {
		switch {
		case errors.Is(err, repo.ErrActivePayment):
			return nil, ErrPaymentInProgress
		case repo.IsDuplicate(err):
			return nil, ErrDuplicateReference
		}
		return nil, err
	}
	return p, nil
}

// Initiate creates a PENDING payment for the user's order and, for GATEWAY
// payments, the signed redirect URL. An order has at most one payment that is
// not FAILED: when a PENDING one exists with the same method it is resumed
// (a fresh redirect URL for the same reference); with another method the call
// fails with ErrPaymentInProgress. A repeated Idempotency-Key returns the
// payment created by the first request.
func (s *PaymentService) Initiate(ctx context.Context, req InitiateRequest) (*Initiation, error) {
	tr := otel.Tracer("services/PaymentService")
	ctx, span := tr.Start(ctx, "Initiate",
		trace.WithAttributes(
			attribute.String("order.id", req.OrderID),
			attribute.String("user.id", req.UserID),
			attribute.String("payment.method", req.Method),
		),
	)
	defer span.End()

	if req.IdempotencyKey != "" {
		out, err := s.replay(ctx, req)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}

	order, err := repo.GetOrder(ctx, s.DB, req.OrderID, req.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.Status != domain.OrderStatusPending {
		return nil, ErrOrderNotPayable
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method != domain.PaymentMethodCash && method != domain.PaymentMethodGateway {
		return nil, ErrInvalidMethod
	}
	if s.Gateway == nil && method == domain.PaymentMethodGateway {
		return nil, ErrGatewayUnavailable
	}

	if active, err := repo.GetActivePayment(ctx, s.DB, order.ID); err == nil {
		return s.resume(ctx, active, method, req)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	newRef := s.NewRef
	if newRef == nil {
		newRef = NewTransactionRef
	}
	ref := newRef(s.now())

	var p *domain.Payment
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.createPending(ctx, tx, order.ID, order.Total, method, ref)
		if err != nil {
			return err
		}
		p = created
		if req.IdempotencyKey == "" {
			return nil
		}
		_, err = repo.CreateIdempotency(ctx, tx, req.UserID, order.ID, req.IdempotencyKey, p.ID, 201, s.idemTTL())
		return err
	})
	if err != nil {
		// A concurrent request won the race: same key replays its payment,
		// otherwise the order's active payment is resumed.
		raced := errors.Is(err, repo.ErrDuplicate) || errors.Is(err, ErrPaymentInProgress)
		if raced && req.IdempotencyKey != "" {
			if out, rerr := s.replay(ctx, req); rerr == nil {
				return out, nil
			}
		}
		if errors.Is(err, ErrPaymentInProgress) {
			if active, aerr := repo.GetActivePayment(ctx, s.DB, order.ID); aerr == nil {
				return s.resume(ctx, active, method, req)
			}
		}
		return nil, err
	}

	out := &Initiation{Payment: p}
	if p.Method == domain.PaymentMethodGateway {
		url, err := s.redirect(p, req.ClientIP)
		if err != nil {
			return nil, err
		}
		out.RedirectURL = url
	}

	s.logger().Info().
		Str("order_id", order.ID).
		Str("payment_id", p.ID).
		Str("ref", p.TransactionRef).
		Str("method", p.Method).
		Msg("payment initiated")
	return out, nil
}

func (s *PaymentService) idemTTL() time.Duration {
	if s.IdempotencyTTL > 0 {
		return s.IdempotencyTTL
	}
	return defaultIdemTTL
}

// resume returns the order's existing PENDING payment when it was started
// with the requested method, recording req's Idempotency-Key against it.
func (s *PaymentService) resume(ctx context.Context, active *domain.Payment, method string, req InitiateRequest) (*Initiation, error) {
	if active.Status != domain.PaymentStatusPending {
		return nil, ErrOrderNotPayable
	}
	if active.Method != method {
		return nil, ErrPaymentInProgress
	}
	if req.IdempotencyKey != "" {
		_, err := repo.CreateIdempotency(ctx, s.DB, req.UserID, active.OrderID, req.IdempotencyKey, active.ID, 201, s.idemTTL())
		if err != nil && !errors.Is(err, repo.ErrDuplicate) {
			return nil, err
		}
	}
	out := &Initiation{Payment: active, Resumed: true}
	if active.Method == domain.PaymentMethodGateway {
		url, err := s.redirect(active, req.ClientIP)
		if err != nil {
			return nil, err
		}
		out.RedirectURL = url
	}
	s.logger().Info().
		Str("order_id", active.OrderID).
		Str("payment_id", active.ID).
		Str("ref", active.TransactionRef).
		Msg("pending payment resumed")
	return out, nil
}

// replay returns the payment recorded for the request's Idempotency-Key, or
// repo.ErrNotFound when the key is unknown or expired.
func (s *PaymentService) replay(ctx context.Context, req InitiateRequest) (*Initiation, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, req.UserID, req.OrderID, req.IdempotencyKey, s.now())
	if err != nil {
		return nil, err
	}
	p, err := repo.GetPaymentByID(ctx, s.DB, rec.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("replay payment %s: %w", rec.PaymentID, err)
	}
	out := &Initiation{Payment: p, Replayed: true}
	if p.Method == domain.PaymentMethodGateway && p.Status == domain.PaymentStatusPending {
		url, err := s.redirect(p, req.ClientIP)
		if err != nil {
			return nil, err
		}
		out.RedirectURL = url
	}
	return out, nil
}

func (s *PaymentService) redirect(p *domain.Payment, clientIP string) (string, error) {
	if s.Gateway == nil {
		return "", ErrGatewayUnavailable
	}
	return s.Gateway.BuildRedirectURL(p.Amount, orderInfoPrefix+p.OrderID, p.TransactionRef, clientIP)
}

// GetByRef returns the payment for ref when it belongs to one of userID's orders.
func (s *PaymentService) GetByRef(ctx context.Context, userID, ref string) (*domain.Payment, error) {
	tr := otel.Tracer("services/PaymentService")
	ctx, span := tr.Start(ctx, "GetByRef",
		trace.WithAttributes(attribute.String("payment.ref", ref)),
	)
	defer span.End()

	p, err := repo.GetPaymentByRef(ctx, s.DB, ref)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if _, err := repo.GetOrder(ctx, s.DB, p.OrderID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

// Reconcile verifies and applies one gateway callback. The returned Result
// always carries a valid acknowledgment code; the error, when non-nil, names
// why the callback was rejected (ErrInvalidSignature, ErrUnknownReference,
// ErrAmountMismatch, vnpay.ErrMalformedAmount) or wraps a storage failure.
//
// State transitions happen only from PENDING and only once: the settle is a
// compare-and-swap on status, so concurrent deliveries of the same callback
// produce one transition and idempotent acknowledgments for the rest.
func (s *PaymentService) Reconcile(ctx context.Context, source string, params map[string]string) (Result, error) {
	tr := otel.Tracer("services/PaymentService")
	ctx, span := tr.Start(ctx, "Reconcile",
		trace.WithAttributes(
			attribute.String("callback.source", source),
			attribute.String("payment.ref", params["vnp_TxnRef"]),
		),
	)
	defer span.End()

	cb := vnpay.ParseCallback(params)
	payload := s.snapshot(params)

	res, err := s.reconcile(ctx, cb, params, payload)

	span.SetAttributes(
		attribute.String("ack.code", res.AckCode),
		attribute.String("outcome", res.Outcome),
	)
	observability.PaymentReconciliations.WithLabelValues(res.Outcome).Inc()

	audit := &domain.PaymentCallback{
		TransactionRef: cb.TxnRef,
		Source:         source,
		AckCode:        res.AckCode,
		Outcome:        res.Outcome,
		Payload:        payload,
	}
	if aerr := repo.CreateCallback(ctx, s.DB, audit); aerr != nil {
		s.logger().Error().Err(aerr).Str("ref", cb.TxnRef).Msg("payment callback audit write failed")
	}

	ev := s.logger().Info()
	if err != nil {
		ev = s.logger().Warn().Err(err)
	}
	ev.Str("source", source).
		Str("ref", cb.TxnRef).
		Str("ack", res.AckCode).
		Str("outcome", res.Outcome).
		Str("response_code", cb.ResponseCode).
		Msg("payment callback")

	return res, err
}

func (s *PaymentService) reconcile(ctx context.Context, cb vnpay.Callback, params map[string]string, payload string) (Result, error) {
	if s.Gateway == nil || !s.Gateway.ValidateSignature(params) {
		return Result{AckCode: vnpay.AckInvalidSignature, Outcome: OutcomeInvalidSignature}, ErrInvalidSignature
	}
	if cb.TxnRef == "" {
		return Result{AckCode: vnpay.AckUnknownReference, Outcome: OutcomeUnknownReference}, ErrUnknownReference
	}
	wire, err := cb.Amount()
	if err != nil {
		return Result{AckCode: vnpay.AckOther, Outcome: OutcomeMalformed}, err
	}

	var (
		res      Result
		rejected error
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := repo.GetPaymentByRef(ctx, tx, cb.TxnRef)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				res = Result{AckCode: vnpay.AckUnknownReference, Outcome: OutcomeUnknownReference}
				rejected = ErrUnknownReference
				return nil
			}
			return err
		}
		res.Payment = p

		if wire != domain.GatewayAmount(p.Amount) {
			res.AckCode, res.Outcome = vnpay.AckAmountMismatch, OutcomeAmountMismatch
			rejected = ErrAmountMismatch
			if p.IsTerminal() {
				return nil
			}
			_, err := s.settle(ctx, tx, p, cb, payload, domain.PaymentStatusFailed, OutcomeAmountMismatch)
			return err
		}

		if p.IsTerminal() {
			res.AckCode, res.Outcome = vnpay.AckSuccess, OutcomeDuplicate
			return nil
		}

		status, reason := domain.PaymentStatusSuccess, ""
		if !cb.Paid() {
			status, reason = domain.PaymentStatusFailed, "gateway_code_"+cb.ResponseCode
		}
		won, err := s.settle(ctx, tx, p, cb, payload, status, reason)
		if err != nil {
			return err
		}
		switch {
		case !won:
			res.AckCode, res.Outcome = vnpay.AckSuccess, OutcomeDuplicate
		case status == domain.PaymentStatusSuccess:
			if err := repo.MarkOrderPaid(ctx, tx, p.OrderID); err != nil {
				return err
			}
			res.AckCode, res.Outcome = vnpay.AckSuccess, OutcomeSuccess
		default:
			res.AckCode, res.Outcome = vnpay.AckSuccess, OutcomeFailed
		}
		return nil
	})
	if err != nil {
		return Result{AckCode: vnpay.AckOther, Outcome: OutcomeError}, fmt.Errorf("reconcile %s: %w", cb.TxnRef, err)
	}
	return res, rejected
}

// settle moves p out of PENDING. It reports whether this call made the
// transition and refreshes p on success.
func (s *PaymentService) settle(ctx context.Context, db *gorm.DB, p *domain.Payment, cb vnpay.Callback, payload, status, reason string) (bool, error) {
	at := s.now()
	won, err := repo.SettlePayment(ctx, db, p.TransactionRef, repo.Settlement{
		Status:               status,
		GatewayTransactionNo: cb.TransactionNo,
		GatewayResponseCode:  cb.ResponseCode,
		BankCode:             cb.BankCode,
		RawPayload:           payload,
		FailureReason:        reason,
		SettledAt:            at,
	})
	if err != nil || !won {
		return won, err
	}
	p.Status = status
	p.FailureReason = reason
	p.GatewayTransactionNo = cb.TransactionNo
	p.GatewayResponseCode = cb.ResponseCode
	p.BankCode = cb.BankCode
	p.SettledAt = &at
	return true, nil
}

// snapshot serializes params without the secure hash, clipped to
// RawPayloadMax bytes on a rune boundary.
func (s *PaymentService) snapshot(params map[string]string) string {
	clean := make(map[string]string, len(params))
	for k, v := range params {
		if k == vnpay.FieldSecureHash {
			continue
		}
		clean[k] = v
	}
	b, err := json.Marshal(clean)
	if err != nil {
		return ""
	}
	limit := s.RawPayloadMax
	if limit <= 0 {
		limit = defaultRawPayloadMax
	}
	if len(b) <= limit {
		return string(b)
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}
	return string(b[:cut])
}
