// Package vnpay implements the VNPay payment-gateway integration: the
// canonical query-string signature codec and a client that builds redirect
// URLs and reads inbound callbacks.
//
// One canonicalization rule is used for signing and verifying. Keys are
// sorted ascending, fields with an empty value and the signature fields are
// left out, and keys and values are percent-encoded with space as %20.
package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Signature fields carried by the gateway. Neither is ever signed.
const (
	FieldSecureHash     = "vnp_SecureHash"
	FieldSecureHashType = "vnp_SecureHashType"
)

// Canonical returns the string that is signed for params.
func Canonical(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" || isHashField(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escape(k))
		b.WriteByte('=')
		b.WriteString(escape(params[k]))
	}
	return b.String()
}

// Sign returns the lowercase hex HMAC-SHA512 of Canonical(params).
func Sign(secret string, params map[string]string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(Canonical(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature over params and compares it, ignoring case,
// with the vnp_SecureHash value in params. A missing signature never verifies.
func Verify(secret string, params map[string]string) bool {
	got := strings.ToLower(strings.TrimSpace(params[FieldSecureHash]))
	if got == "" {
		return false
	}
	want := Sign(secret, params)
	return hmac.Equal([]byte(got), []byte(want))
}

// escape is url.QueryEscape with space encoded as %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func isHashField(k string) bool {
	return k == FieldSecureHash || k == FieldSecureHashType
}
