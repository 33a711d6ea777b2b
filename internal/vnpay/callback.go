package vnpay

import (
	"errors"
	"strconv"
	"strings"
)

// Acknowledgment codes returned to the gateway. The gateway keeps retrying an
// IPN until it receives one of these.
const (
	AckSuccess          = "00"
	AckUnknownReference = "01"
	AckAmountMismatch   = "04"
	AckInvalidSignature = "97"
	AckOther            = "99"
)

// SuccessCode is the response and transaction status meaning "paid".
const SuccessCode = "00"

var ackMessages = map[string]string{
	AckSuccess:          "Confirm Success",
	AckUnknownReference: "Order not found",
	AckAmountMismatch:   "Invalid amount",
	AckInvalidSignature: "Invalid signature",
	AckOther:            "Unknown error",
}

// Ack is the JSON body answered to an IPN call.
type Ack struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// NewAck returns the acknowledgment body for code.
func NewAck(code string) Ack {
	msg, ok := ackMessages[code]
	if !ok {
		code, msg = AckOther, ackMessages[AckOther]
	}
	return Ack{RspCode: code, Message: msg}
}

// ErrMalformedAmount is returned when vnp_Amount is missing or not a
// non-negative integer.
var ErrMalformedAmount = errors.New("vnpay: malformed amount")

// Callback is the typed view of the fields reconciliation reads from an IPN or
// return call.
type Callback struct {
	TxnRef            string
	RawAmount         string
	ResponseCode      string
	TransactionStatus string
	TransactionNo     string
	BankCode          string
	PayDate           string
	OrderInfo         string
}

// ParseCallback picks the reconciliation fields out of params.
func ParseCallback(params map[string]string) Callback {
	return Callback{
		TxnRef:            strings.TrimSpace(params["vnp_TxnRef"]),
		RawAmount:         strings.TrimSpace(params["vnp_Amount"]),
		ResponseCode:      params["vnp_ResponseCode"],
		TransactionStatus: params["vnp_TransactionStatus"],
		TransactionNo:     params["vnp_TransactionNo"],
		BankCode:          params["vnp_BankCode"],
		PayDate:           params["vnp_PayDate"],
		OrderInfo:         params["vnp_OrderInfo"],
	}
}

// Amount returns the wire amount (VND ×100).
func (cb Callback) Amount() (int64, error) {
	n, err := strconv.ParseInt(cb.RawAmount, 10, 64)
	if err != nil || n < 0 {
		return 0, ErrMalformedAmount
	}
	return n, nil
}

// Paid reports whether the gateway declared the transaction successful.
// vnp_TransactionStatus is only consulted when present.
func (cb Callback) Paid() bool {
	if cb.ResponseCode != SuccessCode {
		return false
	}
	return cb.TransactionStatus == "" || cb.TransactionStatus == SuccessCode
}
