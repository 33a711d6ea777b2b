package vnpay

import (
	"errors"
	"testing"
)

func TestParseCallback_Amount(t *testing.T) {
	cb := ParseCallback(map[string]string{"vnp_TxnRef": " r1 ", "vnp_Amount": "15000000"})
	if cb.TxnRef != "r1" {
		t.Fatalf("TxnRef = %q", cb.TxnRef)
	}
	n, err := cb.Amount()
	if err != nil || n != 15000000 {
		t.Fatalf("Amount = %d, %v", n, err)
	}

	for _, bad := range []string{"", "abc", "-1", "1.5"} {
		if _, err := (Callback{RawAmount: bad}).Amount(); !errors.Is(err, ErrMalformedAmount) {
			t.Fatalf("Amount(%q) err = %v", bad, err)
		}
	}
}

func TestCallback_Paid(t *testing.T) {
	cases := []struct {
		rsp, status string
		want        bool
	}{
		{"00", "00", true},
		{"00", "", true},
		{"00", "02", false},
		{"24", "", false},
		{"", "00", false},
	}
	for _, c := range cases {
		if got := (Callback{ResponseCode: c.rsp, TransactionStatus: c.status}).Paid(); got != c.want {
			t.Fatalf("Paid(%q,%q) = %v", c.rsp, c.status, got)
		}
	}
}

func TestNewAck(t *testing.T) {
	if a := NewAck(AckAmountMismatch); a.RspCode != "04" || a.Message == "" {
		t.Fatalf("ack = %+v", a)
	}
	if a := NewAck("zz"); a.RspCode != AckOther {
		t.Fatalf("unknown code should map to 99, got %+v", a)
	}
}
