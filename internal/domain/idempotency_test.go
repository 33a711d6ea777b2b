package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIdempotency_UniquePerUserOrderKey(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC()

	rec := &Idempotency{
		ID: uuid.NewString(), UserID: "u1", OrderID: "o1", Key: "k1",
		PaymentID: "p1", Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}

	dup := *rec
	dup.ID = uuid.NewString()
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("expected unique violation for same (user, order, key)")
	}

	other := *rec
	other.ID = uuid.NewString()
	other.OrderID = "o2"
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("different order should be allowed: %v", err)
	}
}
