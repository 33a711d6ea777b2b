package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
)

func TestUpsertEmbedding_LastWriterWins(t *testing.T) {
	db := newTestDB(t, &domain.Book{}, &domain.BookEmbedding{})
	ctx := context.Background()

	if _, err := UpsertEmbedding(ctx, db, "b1", "m1", []float32{1, 2, 3}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if _, err := UpsertEmbedding(ctx, db, "b1", "m2", []float32{4, 5}); err != nil {
		t.Fatalf("second upsert must not fail on duplicate book: %v", err)
	}

	var n int64
	db.Model(&domain.BookEmbedding{}).Where("book_id = ?", "b1").Count(&n)
	if n != 1 {
		t.Fatalf("rows = %d; want 1", n)
	}
	got, err := GetEmbedding(ctx, db, "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	v := got.Values()
	if got.Model != "m2" || got.Dimensions != 2 || len(v) != 2 || v[0] != 4 {
		t.Fatalf("embedding = %+v values=%v", got, v)
	}
}

func TestListEmbeddings_AndDelete(t *testing.T) {
	db := newTestDB(t, &domain.Book{}, &domain.BookEmbedding{})
	ctx := context.Background()
	for _, id := range []string{"b2", "b1"} {
		if _, err := UpsertEmbedding(ctx, db, id, "m", []float32{1}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	all, err := ListEmbeddings(ctx, db)
	if err != nil || len(all) != 2 || all[0].BookID != "b1" {
		t.Fatalf("list = %+v, %v", all, err)
	}

	if err := DeleteEmbedding(ctx, db, "b1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := DeleteEmbedding(ctx, db, "b1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
	if _, err := GetEmbedding(ctx, db, "b1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted: expected ErrNotFound, got %v", err)
	}
}

func TestListBooksWithoutEmbedding(t *testing.T) {
	db := newTestDB(t, &domain.Book{}, &domain.BookEmbedding{})
	ctx := context.Background()
	seedBooks(t, db, domain.Book{ID: "b1", Title: "A"}, domain.Book{ID: "b2", Title: "B"}, domain.Book{ID: "b3", Title: "C"})
	if _, err := UpsertEmbedding(ctx, db, "b2", "m", []float32{1}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := ListBooksWithoutEmbedding(ctx, db)
	if err != nil || len(got) != 2 || got[0].ID != "b1" || got[1].ID != "b3" {
		t.Fatalf("missing = %+v, %v", got, err)
	}
}
