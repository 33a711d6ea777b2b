// Payment HTTP handlers.
//
//   - POST /orders/{id}/payments     (initiate, Idempotency-Key aware)
//   - GET  /payments/{ref}           (status for the owning user)
//   - GET  /payments/vnpay/ipn       (gateway server-to-server callback)
//   - GET  /payments/vnpay/return    (shopper browser return)
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
	"github.com/tbourn/go-bookstore-backend/internal/http/middleware"
	"github.com/tbourn/go-bookstore-backend/internal/services"
	"github.com/tbourn/go-bookstore-backend/internal/vnpay"
)

// HeaderIdempotentReplay marks a response served from a previous request
// with the same Idempotency-Key.
const HeaderIdempotentReplay = "Idempotent-Replayed"

//
// DTOs
//

// InitiatePaymentRequest is the JSON payload for starting a payment.
type InitiatePaymentRequest struct {
	// Method is GATEWAY (default) or CASH.
	Method string `json:"method" example:"GATEWAY"`
}

// PaymentView is the client-facing payment representation.
type PaymentView struct {
	ID             string `json:"id"`
	OrderID        string `json:"order_id"`
	TransactionRef string `json:"transaction_ref" example:"1718000000000-1a2b3c4d"`
	Method         string `json:"method" example:"GATEWAY"`
	Status         string `json:"status" example:"PENDING"`
	// Amount in VND as a decimal string.
	Amount        string  `json:"amount" example:"150000"`
	FailureReason string  `json:"failure_reason,omitempty"`
	SettledAt     *string `json:"settled_at,omitempty"`
}

// InitiatePaymentResponse wraps a new (or replayed) payment.
type InitiatePaymentResponse struct {
	Payment PaymentView `json:"payment"`
	// RedirectURL is the signed gateway URL; empty for CASH.
	RedirectURL string `json:"redirect_url,omitempty"`
}

// PaymentReturnResponse is what the shopper's browser receives after the
// gateway redirects back.
type PaymentReturnResponse struct {
	TransactionRef string       `json:"transaction_ref"`
	Outcome        string       `json:"outcome" example:"success"`
	Message        string       `json:"message" example:"Confirm Success"`
	Payment        *PaymentView `json:"payment,omitempty"`
}

func paymentView(p *domain.Payment) PaymentView {
	v := PaymentView{
		ID:             p.ID,
		OrderID:        p.OrderID,
		TransactionRef: p.TransactionRef,
		Method:         p.Method,
		Status:         p.Status,
		Amount:         domain.AmountDecimal(p.Amount).String(),
		FailureReason:  p.FailureReason,
	}
	if p.SettledAt != nil {
		s := p.SettledAt.UTC().Format(time.RFC3339)
		v.SettledAt = &s
	}
	return v
}

var initiateErrors = []errorRule{
	{services.ErrOrderNotFound, http.StatusNotFound, ErrCodeNotFound, "order not found"},
	{services.ErrOrderNotPayable, http.StatusConflict, ErrCodeOrderNotPayable, "order is not payable"},
	{services.ErrInvalidMethod, http.StatusBadRequest, ErrCodeInvalidMethod, "method must be GATEWAY or CASH"},
	{services.ErrInvalidAmount, http.StatusBadRequest, ErrCodeInvalidAmount, "order total is not payable"},
	{services.ErrPaymentInProgress, http.StatusConflict, ErrCodePaymentInProgress, "order already has a pending payment with another method"},
	{services.ErrDuplicateReference, http.StatusConflict, ErrCodeConflict, "payment already exists"},
	{services.ErrGatewayUnavailable, http.StatusServiceUnavailable, ErrCodeGatewayUnavailable, "online payment is unavailable"},
}

//
// Handlers
//

// InitiatePayment godoc
// @ID          initiatePayment
// @Summary     Start paying an order
// @Description Creates a PENDING payment for a PENDING order. GATEWAY payments return a signed redirect URL. An order has one active payment: calling again while it is PENDING returns it with 200 and a fresh redirect URL. A repeated Idempotency-Key returns the original payment with 200 and Idempotent-Replayed: true.
// @Tags        Payments
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key"        example(pay-o1-1)
// @Param       id               path    string  true  "Order ID"
// @Param       body             body    handlers.InitiatePaymentRequest  false  "Payment method"
//
// @Success     201  {object}  handlers.InitiatePaymentResponse
// @Success     200  {object}  handlers.InitiatePaymentResponse  "Idempotent replay or resumed pending payment"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Order not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Order not payable or payment in progress"
// @Failure     503  {object}  handlers.ErrorResponse  "Gateway not configured"
// @Router      /orders/{id}/payments [post]
func (h *Handlers) InitiatePayment(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = domain.PaymentMethodGateway
	}
	key, _ := middleware.GetIdempotencyKey(c)

	out, err := h.payments.Initiate(c.Request.Context(), services.InitiateRequest{
		UserID:         userID(c),
		OrderID:        c.Param("id"),
		Method:         method,
		ClientIP:       c.ClientIP(),
		IdempotencyKey: key,
	})
	if err != nil {
		failFor(c, err, initiateErrors, errorRule{
			status: http.StatusInternalServerError, code: ErrCodeInitiateFailed, message: "failed to initiate payment",
		})
		return
	}

	status := http.StatusCreated
	switch {
	case out.Replayed:
		status = http.StatusOK
		c.Header(HeaderIdempotentReplay, "true")
	case out.Resumed:
		status = http.StatusOK
	}
	ok(c, status, InitiatePaymentResponse{Payment: paymentView(out.Payment), RedirectURL: out.RedirectURL})
}

// GetPayment godoc
// @ID          getPayment
// @Summary     Payment status
// @Description Returns a payment by transaction reference when it belongs to one of the caller's orders.
// @Tags        Payments
// @Produce     json
// @Param       X-User-ID  header  string  false "User ID (demo header)"
// @Param       ref        path    string  true  "Transaction reference"
// @Success     200  {object}  handlers.PaymentView
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /payments/{ref} [get]
func (h *Handlers) GetPayment(c *gin.Context) {
	p, err := h.payments.GetByRef(c.Request.Context(), userID(c), c.Param("ref"))
	if err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "payment not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to load payment")
		return
	}
	ok(c, http.StatusOK, paymentView(p))
}

// PaymentIPN godoc
// @ID          paymentIPN
// @Summary     Gateway IPN callback
// @Description Verifies and reconciles a server-to-server notification. Always answers 200 with the gateway acknowledgment body; RspCode carries the outcome.
// @Tags        Payments
// @Produce     json
// @Param       vnp_TxnRef      query  string  true  "Transaction reference"
// @Param       vnp_Amount      query  string  true  "Amount ×100"
// @Param       vnp_SecureHash  query  string  true  "HMAC-SHA512 signature"
// @Success     200  {object}  vnpay.Ack
// @Router      /payments/vnpay/ipn [get]
func (h *Handlers) PaymentIPN(c *gin.Context) {
	res, _ := h.payments.Reconcile(c.Request.Context(), services.SourceIPN, vnpay.ExtractCallbackParams(c.Request))
	c.JSON(http.StatusOK, res.Ack())
}

// PaymentReturn godoc
// @ID          paymentReturn
// @Summary     Shopper return from the gateway
// @Description Runs the same verification and idempotent reconciliation as the IPN and reports the payment status to the shopper.
// @Tags        Payments
// @Produce     json
// @Success     200  {object}  handlers.PaymentReturnResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid signature or malformed callback"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown transaction reference"
// @Router      /payments/vnpay/return [get]
func (h *Handlers) PaymentReturn(c *gin.Context) {
	params := vnpay.ExtractCallbackParams(c.Request)
	res, err := h.payments.Reconcile(c.Request.Context(), services.SourceReturn, params)
	switch {
	case errors.Is(err, services.ErrInvalidSignature):
		fail(c, http.StatusBadRequest, ErrCodeInvalidSignature, "payment result could not be verified")
		return
	case errors.Is(err, services.ErrUnknownReference):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "payment not found")
		return
	case errors.Is(err, vnpay.ErrMalformedAmount):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed payment result")
		return
	case res.Outcome == services.OutcomeError:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to record payment result")
		return
	}

	body := PaymentReturnResponse{
		TransactionRef: params["vnp_TxnRef"],
		Outcome:        res.Outcome,
		Message:        res.Ack().Message,
	}
	if res.Payment != nil {
		v := paymentView(res.Payment)
		body.Payment = &v
	}
	ok(c, http.StatusOK, body)
}
