package repo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
)

func newPaymentDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := newTestDB(t, &domain.Order{}, &domain.OrderItem{}, &domain.Payment{}, &domain.PaymentCallback{})
	if err := db.Create(&domain.Order{ID: "o1", UserID: "u1", Status: domain.OrderStatusPending, Total: 150000}).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return db
}

func TestCreatePayment_DuplicateRef(t *testing.T) {
	db := newPaymentDB(t)
	ctx := context.Background()

	p := &domain.Payment{OrderID: "o1", Amount: 150000, Method: domain.PaymentMethodGateway, TransactionRef: "r1"}
	if err := CreatePayment(ctx, db, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" || p.Status != domain.PaymentStatusPending || p.CreatedAt.IsZero() {
		t.Fatalf("defaults not applied: %+v", p)
	}

	if err := db.Create(&domain.Order{ID: "o2", UserID: "u1", Status: domain.OrderStatusPending, Total: 150000}).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	dup := &domain.Payment{OrderID: "o2", Amount: 150000, Method: domain.PaymentMethodGateway, TransactionRef: "r1"}
	err := CreatePayment(ctx, db, dup)
	if err == nil || !IsDuplicate(err) || errors.Is(err, ErrActivePayment) {
		t.Fatalf("expected transaction_ref violation, got %v", err)
	}
}

func TestCreatePayment_OneActivePerOrder(t *testing.T) {
	db := newPaymentDB(t)
	ctx := context.Background()
	create := func(ref string) error {
		return CreatePayment(ctx, db, &domain.Payment{OrderID: "o1", Amount: 150000, Method: domain.PaymentMethodGateway, TransactionRef: ref})
	}

	if _, err := GetActivePayment(ctx, db, "o1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := create("r1"); err != nil {
		t.Fatalf("create r1: %v", err)
	}
	if err := create("r2"); !errors.Is(err, ErrActivePayment) {
		t.Fatalf("second pending payment: got %v; want ErrActivePayment", err)
	}

	if ok, err := SettlePayment(ctx, db, "r1", Settlement{Status: domain.PaymentStatusFailed, SettledAt: time.Now()}); err != nil || !ok {
		t.Fatalf("fail r1 = %v, %v", ok, err)
	}
	if err := create("r3"); err != nil {
		t.Fatalf("retry after FAILED: %v", err)
	}
	active, err := GetActivePayment(ctx, db, "o1")
	if err != nil || active.TransactionRef != "r3" {
		t.Fatalf("active = %+v, %v", active, err)
	}

	if ok, err := SettlePayment(ctx, db, "r3", Settlement{Status: domain.PaymentStatusSuccess, SettledAt: time.Now()}); err != nil || !ok {
		t.Fatalf("settle r3 = %v, %v", ok, err)
	}
	if err := create("r4"); !errors.Is(err, ErrActivePayment) {
		t.Fatalf("payment after SUCCESS: got %v; want ErrActivePayment", err)
	}
}

func TestGetPayment_NotFound(t *testing.T) {
	db := newPaymentDB(t)
	if _, err := GetPaymentByRef(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetPaymentByID(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettlePayment_OnlyFromPending(t *testing.T) {
	db := newPaymentDB(t)
	ctx := context.Background()
	p := &domain.Payment{OrderID: "o1", Amount: 150000, Method: domain.PaymentMethodGateway, TransactionRef: "r1"}
	if err := CreatePayment(ctx, db, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := SettlePayment(ctx, db, "r1", Settlement{
		Status: domain.PaymentStatusSuccess, GatewayTransactionNo: "T1", GatewayResponseCode: "00",
		BankCode: "NCB", RawPayload: `{"a":"b"}`, SettledAt: time.Now(),
	})
	if err != nil || !ok {
		t.Fatalf("first settle = %v, %v", ok, err)
	}

	ok, err = SettlePayment(ctx, db, "r1", Settlement{Status: domain.PaymentStatusFailed, SettledAt: time.Now()})
	if err != nil || ok {
		t.Fatalf("second settle must not match: %v, %v", ok, err)
	}

	got, _ := GetPaymentByRef(ctx, db, "r1")
	if got.Status != domain.PaymentStatusSuccess || got.GatewayTransactionNo != "T1" || got.SettledAt == nil || got.BankCode != "NCB" {
		t.Fatalf("payment = %+v", got)
	}

	if ok, _ := SettlePayment(ctx, db, "missing", Settlement{Status: domain.PaymentStatusSuccess, SettledAt: time.Now()}); ok {
		t.Fatalf("missing ref must not settle")
	}
}

func TestSettlePayment_ConcurrentSingleWinner(t *testing.T) {
	db := newPaymentDB(t)
	ctx := context.Background()
	if err := CreatePayment(ctx, db, &domain.Payment{OrderID: "o1", Amount: 1, Method: domain.PaymentMethodGateway, TransactionRef: "r1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	// One connection: shared-cache memory DBs report table locks instead of waiting.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := SettlePayment(ctx, db, "r1", Settlement{Status: domain.PaymentStatusSuccess, SettledAt: time.Now()})
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("wins = %d; want 1", wins)
	}
}

func TestCreateCallback_Appends(t *testing.T) {
	db := newPaymentDB(t)
	ctx := context.Background()

	for _, code := range []string{"97", "00"} {
		if err := CreateCallback(ctx, db, &domain.PaymentCallback{TransactionRef: "r1", Source: "ipn", AckCode: code, Outcome: "x"}); err != nil {
			t.Fatalf("create callback: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	var got []domain.PaymentCallback
	err := db.Where("transaction_ref = ?", "r1").Order("created_at asc").Find(&got).Error
	if err != nil || len(got) != 2 || got[0].AckCode != "97" || got[1].AckCode != "00" {
		t.Fatalf("callbacks = %+v, %v", got, err)
	}
}

func TestMarkOrderPaid(t *testing.T) {
	db := newPaymentDB(t)
	ctx := context.Background()

	if err := MarkOrderPaid(ctx, db, "o1"); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	o, err := GetOrder(ctx, db, "o1", "u1")
	if err != nil || o.Status != domain.OrderStatusPaid {
		t.Fatalf("order = %+v, %v", o, err)
	}
	if _, err := GetOrder(ctx, db, "o1", "someone-else"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign order must be not found, got %v", err)
	}
}
