package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memProducts struct {
	products  map[int64]models.Product
	nextID    int64
	inStockDB int
}

func newMemProducts(products ...models.Product) *memProducts {
	m := &memProducts{products: make(map[int64]models.Product), nextID: 50}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *memProducts) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	return &p, nil
}

func (m *memProducts) GetInStockProducts(ctx context.Context) ([]models.Product, error) {
	m.inStockDB++
	out := []models.Product{}
	for id := int64(0); id <= m.nextID; id++ {
		if p, ok := m.products[id]; ok && p.Stock > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProducts) GetProducts(ctx context.Context) ([]models.Product, error) {
	out := []models.Product{}
	for id := int64(0); id <= m.nextID; id++ {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProducts) CreateProduct(ctx context.Context, product *models.Product) error {
	m.nextID++
	product.ID = m.nextID
	m.products[product.ID] = *product
	return nil
}

func (m *memProducts) UpdateProduct(ctx context.Context, product *models.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return store.ErrProductNotFound
	}
	m.products[product.ID] = *product
	return nil
}

func (m *memProducts) UpdateProductStock(ctx context.Context, id int64, stock int) (*models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	p.Stock = stock
	m.products[id] = p
	return &p, nil
}

func (m *memProducts) DeleteProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	if id == 1 {
		return nil, &store.ProductReferencedError{ProductID: id, Orders: 2}
	}
	delete(m.products, id)
	return &p, nil
}

func TestListInStockUsesCache(t *testing.T) {
	products := newMemProducts(testProducts()...)
	cache := &memCache{}
	svc := NewCatalogService(products, cache, time.Minute)

	first, err := svc.ListInStock(context.Background())
	require.NoError(t, err)
	second, err := svc.ListInStock(context.Background())
	require.NoError(t, err)

	assert.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, products.inStockDB)
}

func TestListInStockFallsBackOnCacheError(t *testing.T) {
	products := newMemProducts(testProducts()...)
	svc := NewCatalogService(products, &memCache{err: errors.New("redis down")}, time.Minute)

	list, err := svc.ListInStock(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, 1, products.inStockDB)
}

func TestListInStockSkipsSoldOut(t *testing.T) {
	products := newMemProducts(testProducts()...)
	_, err := products.UpdateProductStock(context.Background(), 3, 0)
	require.NoError(t, err)

	svc := NewCatalogService(products, nil, time.Minute)
	list, err := svc.ListInStock(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].ID)
	assert.Equal(t, int64(2), list[1].ID)

	all, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewCatalogService(newMemProducts(), nil, time.Minute)

	tests := []struct {
		name  string
		input ProductInput
	}{
		{"blank name", ProductInput{Name: " ", Price: decimal.NewFromInt(1)}},
		{"zero price", ProductInput{Name: "Mug", Price: decimal.Zero}},
		{"negative stock", ProductInput{Name: "Mug", Price: decimal.NewFromInt(1), Stock: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrInvalidProduct)
		})
	}
}

func TestProductMutationsInvalidateCache(t *testing.T) {
	products := newMemProducts(testProducts()...)
	cache := &memCache{}
	svc := NewCatalogService(products, cache, time.Minute)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, ProductInput{Name: "Mug", Price: decimal.RequireFromString("4.20"), Stock: 3})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = svc.UpdateProduct(ctx, created.ID, ProductInput{Name: "Big mug", Price: decimal.NewFromInt(5), Stock: 3})
	require.NoError(t, err)

	updated, err := svc.UpdateStock(ctx, created.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Stock)

	_, err = svc.DeleteProduct(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, 4, cache.invalidated)
}

func TestUpdateStockRejectsNegative(t *testing.T) {
	svc := NewCatalogService(newMemProducts(testProducts()...), nil, time.Minute)

	_, err := svc.UpdateStock(context.Background(), 1, -3)
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestDeleteReferencedProduct(t *testing.T) {
	cache := &memCache{}
	svc := NewCatalogService(newMemProducts(testProducts()...), cache, time.Minute)

	_, err := svc.DeleteProduct(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrProductReferenced)
	assert.Equal(t, "cannot delete product, it is referenced by 2 orders", err.Error())
	assert.Zero(t, cache.invalidated)
}
