// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are stable, lowercase snake_case strings returned in the error
// envelope next to the HTTP status. Clients branch on the code, never on the
// message.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "order_not_payable",
//	  "message": "order is not payable"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Payments
	ErrCodeInvalidMethod      = "invalid_payment_method"
	ErrCodeInvalidAmount      = "invalid_amount"
	ErrCodeOrderNotPayable    = "order_not_payable"
	ErrCodePaymentInProgress  = "payment_in_progress"
	ErrCodeGatewayUnavailable = "gateway_unavailable"
	ErrCodeInvalidSignature   = "invalid_signature"
	ErrCodeInitiateFailed     = "initiate_failed"

	// Search and recommendations
	ErrCodeSearchFailed    = "search_failed"
	ErrCodeRecommendFailed = "recommend_failed"

	// Embedding administration
	ErrCodeBackfillQueued = "backfill_already_queued"
	ErrCodeStatsFailed    = "stats_failed"
)
