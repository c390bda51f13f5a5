package store

import (
	"context"
	"database/sql"

	"shop-service/internal/models"
)

const orderViewQuery = `
	SELECT o.*, u.email, u.full_name, u.phone
	FROM orders o
	JOIN users u ON o.user_id = u.id`

// GetOrders retrieves all orders with customer contact fields, newest first
func (s *Store) GetOrders(ctx context.Context) ([]models.OrderView, error) {
	orders := []models.OrderView{}
	err := s.db.SelectContext(ctx, &orders,
		orderViewQuery+" ORDER BY o.created_at DESC, o.id DESC")
	return orders, err
}

// GetOrdersByPhone retrieves orders of the customer with the given canonical phone key
func (s *Store) GetOrdersByPhone(ctx context.Context, normalizedPhone string) ([]models.OrderView, error) {
	orders := []models.OrderView{}
	err := s.db.SelectContext(ctx, &orders,
		orderViewQuery+" WHERE u.normalized_phone = $1 ORDER BY o.created_at DESC, o.id DESC",
		normalizedPhone)
	return orders, err
}

// GetOrderByID retrieves an order with its customer contact fields
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.OrderView, error) {
	var order models.OrderView
	err := s.db.GetContext(ctx, &order, orderViewQuery+" WHERE o.id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all lines of an order with product presentation fields
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItemView, error) {
	items := []models.OrderItemView{}
	err := s.db.SelectContext(ctx, &items, `
		SELECT oi.*, COALESCE(p.name, '') AS product_name, COALESCE(p.image_url, '') AS image_url
		FROM order_items oi
		LEFT JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, orderID)
	return items, err
}

// UpdateOrderStatus sets the order status and returns the updated row
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING *",
		status, orderID)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetUserByID retrieves a customer
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CountUsers returns the number of customer rows
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM users")
	return n, err
}
