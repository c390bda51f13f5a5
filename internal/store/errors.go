package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrAdminNotFound   = errors.New("admin not found")

	// ErrProductReferenced is returned when a product still has order lines pointing at it.
	ErrProductReferenced = errors.New("product is referenced by orders")
)

// ProductReferencedError carries the number of orders that block a product deletion.
type ProductReferencedError struct {
	ProductID int64
	Orders    int
}

func (e *ProductReferencedError) Error() string {
	if e.Orders > 0 {
		return fmt.Sprintf("cannot delete product, it is referenced by %d orders", e.Orders)
	}
	return "cannot delete product, it is referenced by orders"
}

func (e *ProductReferencedError) Unwrap() error { return ErrProductReferenced }

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
	ErrorClassUniqueViolation
)

// pq error codes used by the store
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
)

// ClassifyError maps a driver error onto a retry class.
func ClassifyError(err error) ErrorClass {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerializationFailure:
			return ErrorClassSerialization
		case codeDeadlockDetected:
			return ErrorClassDeadlock
		case codeLockNotAvailable:
			return ErrorClassTransient
		case codeUniqueViolation:
			return ErrorClassUniqueViolation
		}
	}
	return ErrorClassPermanent
}

// IsRetryable reports whether a failed order transaction may be re-run from the start.
// A unique violation is retried because two first-time orders from one customer race on
// the customer insert; the second attempt finds the committed row.
func IsRetryable(err error) bool {
	switch ClassifyError(err) {
	case ErrorClassTransient, ErrorClassDeadlock, ErrorClassSerialization, ErrorClassUniqueViolation:
		return true
	default:
		return false
	}
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeForeignKeyViolation
}
