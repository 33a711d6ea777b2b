package domain

import (
	"encoding/binary"
	"math"
	"time"
)

// BookEmbedding stores exactly one vector per book. Vectors are immutable:
// a changed book gets its row deleted and regenerated, never patched.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - BookID: owning book; unique.
//   - Vector: little-endian float32 components.
//   - Dimensions: number of components in Vector.
//   - Model: embedding model that produced the vector.
type BookEmbedding struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	BookID     string    `json:"book_id"     gorm:"type:char(36);not null;uniqueIndex:ux_embedding_book"`
	Vector     []byte    `json:"-"           gorm:"type:blob;not null"`
	Dimensions int       `json:"dimensions"  gorm:"not null"`
	Model      string    `json:"model"       gorm:"type:varchar(64)"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for BookEmbedding.
func (BookEmbedding) TableName() string { return "book_embeddings" }

// Values decodes the stored vector. A blob whose length disagrees with
// Dimensions decodes as many whole components as it holds.
func (e BookEmbedding) Values() []float32 {
	return DecodeVector(e.Vector, e.Dimensions)
}

// EncodeVector packs v as little-endian float32s.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector unpacks up to dims float32s from b.
func DecodeVector(b []byte, dims int) []float32 {
	n := len(b) / 4
	if dims >= 0 && dims < n {
		n = dims
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
