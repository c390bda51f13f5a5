package service

import (
	"errors"
	"fmt"
)

// Validation errors are returned before any transaction is opened.
var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrMissingFields = errors.New("customer name, email and phone are required")
	ErrInvalidItem   = errors.New("each item needs a product id and a positive quantity")
)

// Business rule errors abort the order transaction and roll it back.
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

var (
	ErrInvalidProduct = errors.New("invalid product")
	ErrInvalidStatus  = errors.New("status must not be empty")
	ErrAdminRequired  = errors.New("listing all orders requires an administrator")
)

// ProductNotFoundError names the cart line that referenced a missing product.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error { return ErrProductNotFound }

// InsufficientStockError reports how much of a product was available when the line was priced.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: available %d, requested %d", e.Name, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrMissingFields) ||
		errors.Is(err, ErrInvalidItem) ||
		errors.Is(err, ErrInvalidProduct) ||
		errors.Is(err, ErrInvalidStatus)
}

// IsBusinessRule reports whether err is a business rule violation raised inside the order transaction.
func IsBusinessRule(err error) bool {
	return errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrInsufficientStock)
}
