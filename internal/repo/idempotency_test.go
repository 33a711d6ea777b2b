package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
)

func TestGetIdempotency_NoOrderID_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	rec, err := GetIdempotency(context.Background(), db, "u1", "   ", "k1", time.Now().UTC())
	if rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for empty orderID, got (%v, %v)", rec, err)
	}
}

func TestGetIdempotency_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	exp := &domain.Idempotency{
		ID: "expired", UserID: "u1", OrderID: "o1", Key: "k1", PaymentID: "p1",
		Status: 201, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := GetIdempotency(context.Background(), db, "u1", "o1", "k1", now); err != ErrNotFound {
		t.Fatalf("expired: expected ErrNotFound, got %v", err)
	}
	if _, err := GetIdempotency(context.Background(), db, "u1", "o1", "nope", now); err != ErrNotFound {
		t.Fatalf("missing: expected ErrNotFound, got %v", err)
	}
}

func TestCreateAndGetIdempotency(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "u1", "o1", "k1", "p1", 201, time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := GetIdempotency(ctx, db, "u1", "o1", "k1", time.Now().UTC())
	if err != nil || got.ID != rec.ID || got.PaymentID != "p1" || got.Status != 201 {
		t.Fatalf("get = %+v, %v", got, err)
	}

	if _, err := CreateIdempotency(ctx, db, "u1", "o1", "k1", "p2", 201, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestIsDuplicate(t *testing.T) {
	cases := map[string]bool{
		"UNIQUE constraint failed: payments.transaction_ref":    true,
		"constraint failed: UNIQUE constraint failed (2067)":    true,
		"ERROR: duplicate key value violates unique constraint": true,
		"FOREIGN KEY constraint failed":                         false,
	}
	for msg, want := range cases {
		if got := IsDuplicate(errors.New(msg)); got != want {
			t.Fatalf("IsDuplicate(%q) = %v", msg, got)
		}
	}
	if IsDuplicate(nil) {
		t.Fatalf("nil is not a duplicate")
	}
}
