package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProductStore is the product persistence used by the catalog
type ProductStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetInStockProducts(ctx context.Context) ([]models.Product, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	UpdateProductStock(ctx context.Context, id int64, stock int) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) (*models.Product, error)
}

// CatalogCache caches the public in-stock product list.
type CatalogCache interface {
	GetInStock(ctx context.Context) ([]models.Product, bool, error)
	SetInStock(ctx context.Context, products []models.Product, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// CatalogService serves product reads and admin product management
type CatalogService struct {
	store    ProductStore
	cache    CatalogCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(productStore ProductStore, cache CatalogCache, cacheTTL time.Duration) *CatalogService {
	return &CatalogService{
		store:    productStore,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// ProductInput is the admin-editable part of a product
type ProductInput struct {
	Name        string          `json:"name" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
}

func (in *ProductInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case !in.Price.IsPositive():
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	case in.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	return nil
}

// ListInStock returns products with positive stock ordered by id
func (s *CatalogService) ListInStock(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListInStock")
	defer span.End()

	if s.cache != nil {
		products, ok, err := s.cache.GetInStock(ctx)
		switch {
		case err != nil:
			util.CatalogCacheRequestsTotal.WithLabelValues("error").Inc()
			s.logger.Warn("Catalog cache read failed", zap.Error(err))
		case ok:
			util.CatalogCacheRequestsTotal.WithLabelValues("hit").Inc()
			return products, nil
		default:
			util.CatalogCacheRequestsTotal.WithLabelValues("miss").Inc()
		}
	}

	products, err := s.store.GetInStockProducts(ctx)
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetInStock(ctx, products, s.cacheTTL); err != nil {
			s.logger.Warn("Catalog cache write failed", zap.Error(err))
		}
	}
	return products, nil
}

// ListAll returns every product including sold out ones
func (s *CatalogService) ListAll(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListAll")
	defer span.End()

	return s.store.GetProducts(ctx)
}

// GetProduct retrieves a product by ID
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProduct", attribute.Int64("product.id", id))
	defer span.End()

	return s.store.GetProductByID(ctx, id)
}

// CreateProduct adds a product to the catalog
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        in.Name,
		Price:       in.Price,
		Stock:       in.Stock,
		Description: in.Description,
		ImageURL:    in.ImageURL,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("name", product.Name))
	invalidateCatalog(ctx, s.cache, s.logger)
	return product, nil
}

// UpdateProduct replaces the editable fields of a product
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct", attribute.Int64("product.id", id))
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:          id,
		Name:        in.Name,
		Price:       in.Price,
		Stock:       in.Stock,
		Description: in.Description,
		ImageURL:    in.ImageURL,
	}
	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}

	invalidateCatalog(ctx, s.cache, s.logger)
	return product, nil
}

// UpdateStock sets the absolute stock level of a product
func (s *CatalogService) UpdateStock(ctx context.Context, id int64, stock int) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateStock", attribute.Int64("product.id", id))
	defer span.End()

	if stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}

	product, err := s.store.UpdateProductStock(ctx, id, stock)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product stock updated", zap.Int64("product_id", id), zap.Int("stock", stock))
	invalidateCatalog(ctx, s.cache, s.logger)
	return product, nil
}

// DeleteProduct removes a product that no order references
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteProduct", attribute.Int64("product.id", id))
	defer span.End()

	product, err := s.store.DeleteProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	invalidateCatalog(ctx, s.cache, s.logger)
	return product, nil
}

func invalidateCatalog(ctx context.Context, cache CatalogCache, logger *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx); err != nil {
		logger.Warn("Catalog cache invalidation failed", zap.Error(err))
	}
}
