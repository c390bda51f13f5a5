package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	Description string          `db:"description" json:"description"`
	ImageURL    string          `db:"image_url" json:"image_url"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// User represents a customer identified by phone or email
type User struct {
	ID              int64     `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	FullName        string    `db:"full_name" json:"full_name"`
	Phone           string    `db:"phone" json:"phone"`
	NormalizedPhone string    `db:"normalized_phone" json:"normalized_phone"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Order represents a customer order
type Order struct {
	ID          int64           `db:"id" json:"id"`
	UserID      int64           `db:"user_id" json:"user_id"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status      string          `db:"status" json:"status"`
	Comment     string          `db:"comment" json:"comment,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem represents a line of an order. Price is the unit price at purchase time.
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Price     decimal.Decimal `db:"price" json:"price"`
}

// OrderView is an order joined with its customer's contact fields
type OrderView struct {
	Order
	Email    string `db:"email" json:"email"`
	FullName string `db:"full_name" json:"full_name"`
	Phone    string `db:"phone" json:"phone"`
}

// OrderItemView is an order line joined with product presentation fields
type OrderItemView struct {
	OrderItem
	ProductName string `db:"product_name" json:"product_name"`
	ImageURL    string `db:"image_url" json:"image_url"`
}

// Admin is a back-office account
type Admin struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Order statuses. Any other value set by an administrator is stored as is.
const (
	OrderStatusNew = "new"
)

// OrderNotification is the summary handed to the notification sender after commit
type OrderNotification struct {
	OrderID     int64              `json:"order_id"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Customer    CustomerContact    `json:"customer"`
	Lines       []NotificationLine `json:"lines"`
	PlacedAt    time.Time          `json:"placed_at"`
}

// CustomerContact is the contact data submitted with an order
type CustomerContact struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Comment string `json:"comment,omitempty"`
}

// NotificationLine is one resolved cart line
type NotificationLine struct {
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}
