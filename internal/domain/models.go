// Package domain defines the persistence models for the bookstore core:
// the catalog collaborators read by search and recommendation, payment
// records settled by the gateway, and per-book embedding vectors. These
// types are mapped with GORM and shared by the repository and service layers.
package domain

import (
	"time"
)

// Order statuses. Only the subset the core reads or writes is modeled.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// Book is a catalog item. Title, author, category and description feed the
// text that is embedded for semantic search; AuthorID and CategoryID drive the
// affinity signals of the collaborative aggregator.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Title / Description: free text used for embeddings.
//   - AuthorID / Author: author identity and display name.
//   - CategoryID / Category: category identity and display name.
//   - Price: list price in VND (integer minor units).
type Book struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	Title       string    `json:"title"       gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	AuthorID    string    `json:"author_id"   gorm:"type:varchar(64);index"`
	Author      string    `json:"author"      gorm:"type:varchar(255)"`
	CategoryID  string    `json:"category_id" gorm:"type:varchar(64);index"`
	Category    string    `json:"category"    gorm:"type:varchar(255)"`
	Price       int64     `json:"price"       gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Book.
func (Book) TableName() string { return "books" }

// Order is a shopper's purchase. Total is the amount a payment must settle,
// in VND minor units.
type Order struct {
	ID        string      `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string      `json:"user_id"    gorm:"type:varchar(64);not null;index"`
	Status    string      `json:"status"     gorm:"type:varchar(16);not null;default:'PENDING';index"`
	Total     int64       `json:"total"      gorm:"not null"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Items     []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// OrderItem is one line of an order.
type OrderItem struct {
	ID        string `json:"id"         gorm:"type:char(36);primaryKey"`
	OrderID   string `json:"order_id"   gorm:"type:char(36);not null;index"`
	BookID    string `json:"book_id"    gorm:"type:char(36);not null;index"`
	Quantity  int    `json:"quantity"   gorm:"not null;default:1"`
	UnitPrice int64  `json:"unit_price" gorm:"not null;default:0"`
}

// TableName returns the database table name for OrderItem.
func (OrderItem) TableName() string { return "order_items" }

// CartItem is a book sitting in a user's cart. One row per (user, book).
type CartItem struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"  gorm:"type:varchar(64);not null;uniqueIndex:ux_cart_user_book"`
	BookID    string    `json:"book_id"  gorm:"type:char(36);not null;uniqueIndex:ux_cart_user_book"`
	Quantity  int       `json:"quantity" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for CartItem.
func (CartItem) TableName() string { return "cart_items" }

// Review is a user's 1..5 star rating of a book.
type Review struct {
	ID        string    `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_review_user_book"`
	BookID    string    `json:"book_id" gorm:"type:char(36);not null;uniqueIndex:ux_review_user_book"`
	Rating    int       `json:"rating"  gorm:"not null;check:rating BETWEEN 1 AND 5"`
	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Review.
func (Review) TableName() string { return "reviews" }

// Favorite marks a book as favorited by a user.
type Favorite struct {
	ID        string    `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_favorite_user_book"`
	BookID    string    `json:"book_id" gorm:"type:char(36);not null;uniqueIndex:ux_favorite_user_book"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Favorite.
func (Favorite) TableName() string { return "favorites" }
