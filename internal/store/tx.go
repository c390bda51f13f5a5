package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// OrderTx is the set of statements an order placement runs inside one transaction.
type OrderTx interface {
	// FindCustomers returns users whose canonical phone key or email matches,
	// phone-key matches first. At most two rows are returned.
	FindCustomers(ctx context.Context, normalizedPhone, email string) ([]models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUserContact(ctx context.Context, user *models.User) error
	CreateOrder(ctx context.Context, order *models.Order) error
	// LockProduct reads a product row and holds its lock until the transaction ends.
	LockProduct(ctx context.Context, productID int64) (*models.Product, error)
	CreateOrderItem(ctx context.Context, item *models.OrderItem) error
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	SetOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error
}

// WithOrderTx runs fn inside a read-committed transaction on a single pooled connection.
// The transaction is rolled back on any error returned by fn and committed otherwise.
// Deadlocks, serialization failures and unique violations re-run fn from the start.
func (s *Store) WithOrderTx(ctx context.Context, fn func(OrderTx) error) error {
	backoff := 50 * time.Millisecond

	for attempt := 0; ; attempt++ {
		err := s.runOrderTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt >= s.txMaxRetries {
			return err
		}

		util.OrderTxRetriesTotal.Inc()

		jitter := time.Duration(rand.Int63n(int64(backoff / 4)))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}

func (s *Store) runOrderTx(ctx context.Context, fn func(OrderTx) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&orderTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type orderTx struct {
	tx *sqlx.Tx
}

func (t *orderTx) FindCustomers(ctx context.Context, normalizedPhone, email string) ([]models.User, error) {
	var users []models.User
	err := t.tx.SelectContext(ctx, &users, `
		SELECT * FROM users
		WHERE normalized_phone = $1 OR email = $2
		ORDER BY (normalized_phone = $1) DESC, id
		LIMIT 2`,
		normalizedPhone, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return users, nil
}

func (t *orderTx) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, full_name, phone, normalized_phone)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return t.tx.QueryRowxContext(ctx, query,
		user.Email, user.FullName, user.Phone, user.NormalizedPhone,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (t *orderTx) UpdateUserContact(ctx context.Context, user *models.User) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE users SET full_name = $1, phone = $2, normalized_phone = $3, updated_at = NOW() WHERE id = $4",
		user.FullName, user.Phone, user.NormalizedPhone, user.ID)
	return err
}

func (t *orderTx) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (user_id, total_amount, status, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return t.tx.QueryRowxContext(ctx, query,
		order.UserID, order.TotalAmount, order.Status, order.Comment,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
}

func (t *orderTx) LockProduct(ctx context.Context, productID int64) (*models.Product, error) {
	var product models.Product
	err := t.tx.GetContext(ctx, &product,
		"SELECT * FROM products WHERE id = $1 FOR UPDATE", productID)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product %d: %w", productID, err)
	}
	return &product, nil
}

func (t *orderTx) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return t.tx.GetContext(ctx, &item.ID, query,
		item.OrderID, item.ProductID, item.Quantity, item.Price)
}

func (t *orderTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2",
		quantity, productID)
	return err
}

func (t *orderTx) SetOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE orders SET total_amount = $1, updated_at = NOW() WHERE id = $2",
		total, orderID)
	return err
}
