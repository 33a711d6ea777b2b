package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so constraints actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(
		&Book{}, &Order{}, &OrderItem{}, &CartItem{}, &Review{}, &Favorite{},
		&Payment{}, &PaymentCallback{}, &BookEmbedding{}, &Idempotency{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		Book{}.TableName():            "books",
		Order{}.TableName():           "orders",
		OrderItem{}.TableName():       "order_items",
		CartItem{}.TableName():        "cart_items",
		Review{}.TableName():          "reviews",
		Favorite{}.TableName():        "favorites",
		Payment{}.TableName():         "payments",
		PaymentCallback{}.TableName(): "payment_callbacks",
		BookEmbedding{}.TableName():   "book_embeddings",
		Idempotency{}.TableName():     "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_Indexes(t *testing.T) {
	db := newDomainDB(t)
	m := db.Migrator()

	checks := []struct {
		model any
		index string
	}{
		{&Payment{}, "ux_payment_txn_ref"},
		{&BookEmbedding{}, "ux_embedding_book"},
		{&CartItem{}, "ux_cart_user_book"},
		{&Review{}, "ux_review_user_book"},
		{&Favorite{}, "ux_favorite_user_book"},
		{&Idempotency{}, "ux_user_order_key"},
	}
	for _, c := range checks {
		if !m.HasIndex(c.model, c.index) {
			t.Fatalf("expected index %s on %T", c.index, c.model)
		}
	}
}

func TestPayment_UniqueTransactionRef(t *testing.T) {
	db := newDomainDB(t)

	o := &Order{ID: uuid.NewString(), UserID: "u1", Status: OrderStatusPending, Total: 1000}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	p1 := &Payment{ID: uuid.NewString(), OrderID: o.ID, Amount: 1000, Method: PaymentMethodGateway, Status: PaymentStatusPending, TransactionRef: "ref-1"}
	if err := db.Create(p1).Error; err != nil {
		t.Fatalf("create p1: %v", err)
	}
	p2 := &Payment{ID: uuid.NewString(), OrderID: o.ID, Amount: 1000, Method: PaymentMethodGateway, Status: PaymentStatusPending, TransactionRef: "ref-1"}
	if err := db.Create(p2).Error; err == nil {
		t.Fatalf("expected unique violation on transaction_ref")
	}
}

func TestPayment_CheckConstraints(t *testing.T) {
	db := newDomainDB(t)

	o := &Order{ID: uuid.NewString(), UserID: "u1", Status: OrderStatusPending, Total: 1000}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	bad := &Payment{ID: uuid.NewString(), OrderID: o.ID, Amount: 1000, Method: "BARTER", Status: PaymentStatusPending, TransactionRef: "ref-x"}
	if err := db.Create(bad).Error; err == nil {
		t.Fatalf("expected method check violation")
	}
	zero := &Payment{ID: uuid.NewString(), OrderID: o.ID, Amount: 0, Method: PaymentMethodCash, Status: PaymentStatusPending, TransactionRef: "ref-y"}
	if err := db.Create(zero).Error; err == nil {
		t.Fatalf("expected amount check violation")
	}
}

func TestPayment_IsTerminal(t *testing.T) {
	for status, want := range map[string]bool{
		PaymentStatusPending: false,
		PaymentStatusSuccess: true,
		PaymentStatusFailed:  true,
	} {
		if got := (Payment{Status: status}).IsTerminal(); got != want {
			t.Fatalf("IsTerminal(%s) = %v; want %v", status, got, want)
		}
	}
}

func TestReview_RatingCheck(t *testing.T) {
	db := newDomainDB(t)
	r := &Review{ID: uuid.NewString(), UserID: "u1", BookID: uuid.NewString(), Rating: 6, CreatedAt: time.Now()}
	if err := db.Create(r).Error; err == nil {
		t.Fatalf("expected rating check violation")
	}
}
