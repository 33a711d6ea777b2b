package repo

import (
	"context"
	"errors"
	"sort"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
)

func newActivityDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := newTestDB(t, Models()...)
	seedBooks(t, db,
		domain.Book{ID: "b1", Title: "Dune", AuthorID: "herbert", CategoryID: "scifi"},
		domain.Book{ID: "b2", Title: "Emma", AuthorID: "austen", CategoryID: "classic"},
		domain.Book{ID: "b3", Title: "Hyperion", AuthorID: "simmons", CategoryID: "scifi"},
	)
	orders := []domain.Order{
		{ID: "o1", UserID: "u1", Status: domain.OrderStatusPaid, Total: 1, Items: []domain.OrderItem{
			{ID: "i1", BookID: "b1", Quantity: 1},
			{ID: "i2", BookID: "b2", Quantity: 1},
		}},
		{ID: "o2", UserID: "u1", Status: domain.OrderStatusDelivered, Total: 1, Items: []domain.OrderItem{
			{ID: "i3", BookID: "b1", Quantity: 2},
		}},
		{ID: "o3", UserID: "u1", Status: domain.OrderStatusCancelled, Total: 1, Items: []domain.OrderItem{
			{ID: "i4", BookID: "b3", Quantity: 1},
		}},
		{ID: "o4", UserID: "u2", Status: domain.OrderStatusPending, Total: 1, Items: []domain.OrderItem{
			{ID: "i5", BookID: "b3", Quantity: 1},
		}},
	}
	for i := range orders {
		if err := db.Create(&orders[i]).Error; err != nil {
			t.Fatalf("seed order: %v", err)
		}
	}
	db.Create(&domain.CartItem{ID: "c1", UserID: "u1", BookID: "b3"})
	db.Create(&domain.Review{ID: "r1", UserID: "u1", BookID: "b2", Rating: 5})
	db.Create(&domain.Favorite{ID: "f1", UserID: "u1", BookID: "b3"})
	return db
}

func TestPurchasedBookIDs_DistinctAndSkipsCancelled(t *testing.T) {
	db := newActivityDB(t)
	got, err := PurchasedBookIDs(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("PurchasedBookIDs: %v", err)
	}
	sort.Strings(got)
	if len(got) != 2 || got[0] != "b1" || got[1] != "b2" {
		t.Fatalf("purchased = %v", got)
	}
}

func TestOtherUsersPurchases(t *testing.T) {
	db := newActivityDB(t)
	got, err := OtherUsersPurchases(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("OtherUsersPurchases: %v", err)
	}
	if len(got) != 1 || len(got["u2"]) != 1 || got["u2"][0] != "b3" {
		t.Fatalf("others = %v", got)
	}
}

func TestCartRatingsFavorites(t *testing.T) {
	db := newActivityDB(t)
	ctx := context.Background()

	cart, err := CartBookIDs(ctx, db, "u1")
	if err != nil || len(cart) != 1 || cart[0] != "b3" {
		t.Fatalf("cart = %v, %v", cart, err)
	}
	ratings, err := Ratings(ctx, db, "u1")
	if err != nil || ratings["b2"] != 5 || len(ratings) != 1 {
		t.Fatalf("ratings = %v, %v", ratings, err)
	}
	favs, err := FavoriteBookIDs(ctx, db, "u1")
	if err != nil || len(favs) != 1 || favs[0] != "b3" {
		t.Fatalf("favorites = %v, %v", favs, err)
	}

	empty, err := CartBookIDs(ctx, db, "nobody")
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty cart = %v, %v", empty, err)
	}
}

func TestCatalogLookups(t *testing.T) {
	db := newActivityDB(t)
	ctx := context.Background()

	b, err := GetBook(ctx, db, "b1")
	if err != nil || b.Title != "Dune" {
		t.Fatalf("GetBook = %+v, %v", b, err)
	}
	if _, err := GetBook(ctx, db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	all, err := ListBooks(ctx, db)
	if err != nil || len(all) != 3 || all[0].ID != "b1" {
		t.Fatalf("ListBooks = %v, %v", all, err)
	}
	some, err := ListBooksByIDs(ctx, db, []string{"b2", "zz"})
	if err != nil || len(some) != 1 || some[0].ID != "b2" {
		t.Fatalf("ListBooksByIDs = %v, %v", some, err)
	}
	none, err := ListBooksByIDs(ctx, db, nil)
	if err != nil || len(none) != 0 {
		t.Fatalf("ListBooksByIDs(nil) = %v, %v", none, err)
	}
}
