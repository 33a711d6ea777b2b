package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmountFromDecimal(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"150000", 150000, false},
		{"150000.00", 150000, false},
		{"150000.5", 0, true},
		{"0", 0, true},
		{"-10", 0, true},
		{"999999999999999999999", 0, true},
		{"92233720368547759", 0, true},
		{"92233720368547758", 92233720368547758, false},
	}
	for _, c := range cases {
		got, err := AmountFromDecimal(decimal.RequireFromString(c.in))
		if c.wantErr {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("AmountFromDecimal(%s) err = %v; want ErrInvalidAmount", c.in, err)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Fatalf("AmountFromDecimal(%s) = %d, %v; want %d", c.in, got, err, c.want)
		}
	}
}

func TestGatewayAmount(t *testing.T) {
	if got := GatewayAmount(150000); got != 15000000 {
		t.Fatalf("GatewayAmount = %d; want 15000000", got)
	}
	if AmountDecimal(150000).String() != "150000" {
		t.Fatalf("AmountDecimal = %s", AmountDecimal(150000).String())
	}
}
