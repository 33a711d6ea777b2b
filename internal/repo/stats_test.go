package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedBooks(t *testing.T, db *gorm.DB, books ...domain.Book) {
	t.Helper()
	for i := range books {
		if err := db.Create(&books[i]).Error; err != nil {
			t.Fatalf("seed book %s: %v", books[i].ID, err)
		}
	}
}

func TestEmbeddingStats_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, err := EmbeddingStats(context.Background(), db); err == nil {
		t.Fatalf("expected error due to missing tables")
	}
}

func TestEmbeddingStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Book{}, &domain.BookEmbedding{})
	cov, err := EmbeddingStats(context.Background(), db)
	if err != nil {
		t.Fatalf("EmbeddingStats: %v", err)
	}
	if cov.Books != 0 || cov.Embedded != 0 || cov.LastCreatedAt != nil {
		t.Fatalf("expected empty coverage, got %+v", cov)
	}
}

func TestEmbeddingStats_CountsAndLatest(t *testing.T) {
	db := newTestDB(t, &domain.Book{}, &domain.BookEmbedding{})
	ctx := context.Background()
	seedBooks(t, db, domain.Book{ID: "b1", Title: "A"}, domain.Book{ID: "b2", Title: "B"}, domain.Book{ID: "b3", Title: "C"})

	if _, err := UpsertEmbedding(ctx, db, "b1", "m", []float32{1}); err != nil {
		t.Fatalf("upsert b1: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	last, err := UpsertEmbedding(ctx, db, "b2", "m", []float32{2})
	if err != nil {
		t.Fatalf("upsert b2: %v", err)
	}

	cov, err := EmbeddingStats(ctx, db)
	if err != nil {
		t.Fatalf("EmbeddingStats: %v", err)
	}
	if cov.Books != 3 || cov.Embedded != 2 {
		t.Fatalf("coverage = %+v", cov)
	}
	if cov.LastCreatedAt == nil || !cov.LastCreatedAt.Equal(last.CreatedAt) {
		t.Fatalf("LastCreatedAt = %v; want %v", cov.LastCreatedAt, last.CreatedAt)
	}
}
