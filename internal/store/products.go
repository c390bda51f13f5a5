package store

import (
	"context"
	"database/sql"
	"fmt"

	"shop-service/internal/models"
)

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetInStockProducts retrieves products with positive stock
func (s *Store) GetInStockProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products WHERE stock > 0 ORDER BY id")
	return products, err
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// CreateProduct inserts a product and fills in its generated fields
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, price, stock, description, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		product.Name, product.Price, product.Stock, product.Description, product.ImageURL,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
}

// UpdateProduct overwrites all editable product fields
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, price = $2, stock = $3, description = $4, image_url = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING *`

	err := s.db.GetContext(ctx, product, query,
		product.Name, product.Price, product.Stock, product.Description, product.ImageURL, product.ID)
	if err == sql.ErrNoRows {
		return ErrProductNotFound
	}
	return err
}

// UpdateProductStock sets the absolute stock level of a product
func (s *Store) UpdateProductStock(ctx context.Context, id int64, stock int) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"UPDATE products SET stock = $1, updated_at = NOW() WHERE id = $2 RETURNING *",
		stock, id)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteProduct removes a product that no order line references
func (s *Store) DeleteProduct(ctx context.Context, id int64) (*models.Product, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var orders int
	err = tx.GetContext(ctx, &orders,
		"SELECT COUNT(DISTINCT order_id) FROM order_items WHERE product_id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to count product references: %w", err)
	}
	if orders > 0 {
		return nil, &ProductReferencedError{ProductID: id, Orders: orders}
	}

	var product models.Product
	err = tx.GetContext(ctx, &product, "DELETE FROM products WHERE id = $1 RETURNING *", id)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		// an order line committed between the count and the delete
		if isForeignKeyViolation(err) {
			return nil, &ProductReferencedError{ProductID: id}
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isForeignKeyViolation(err) {
			return nil, &ProductReferencedError{ProductID: id}
		}
		return nil, err
	}
	return &product, nil
}
