package service

import (
	"context"
	"strings"

	"shop-service/internal/models"
	"shop-service/internal/phone"
	"shop-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderReader is the order persistence used by the read paths
type OrderReader interface {
	GetOrders(ctx context.Context) ([]models.OrderView, error)
	GetOrdersByPhone(ctx context.Context, normalizedPhone string) ([]models.OrderView, error)
	GetOrderByID(ctx context.Context, id int64) (*models.OrderView, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItemView, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) (*models.Order, error)
}

// OrderQueryService serves order history and status changes
type OrderQueryService struct {
	store  OrderReader
	logger *zap.Logger
}

// NewOrderQueryService creates a new order query service
func NewOrderQueryService(orderStore OrderReader) *OrderQueryService {
	return &OrderQueryService{
		store:  orderStore,
		logger: util.GetLogger(),
	}
}

// OrderDetail is an order with its lines
type OrderDetail struct {
	Order *models.OrderView      `json:"order"`
	Items []models.OrderItemView `json:"items"`
}

// ListOrders returns the orders of the customer whose canonical phone key matches rawPhone.
// Without a phone filter every order is returned, which only an administrator may do.
func (s *OrderQueryService) ListOrders(ctx context.Context, rawPhone string, admin bool) ([]models.OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderQueryService.ListOrders")
	defer span.End()

	if strings.TrimSpace(rawPhone) == "" {
		if !admin {
			return nil, ErrAdminRequired
		}
		return s.store.GetOrders(ctx)
	}

	key := phone.Normalize(rawPhone)
	if !phone.HasDigits(key) {
		return []models.OrderView{}, nil
	}
	return s.store.GetOrdersByPhone(ctx, key)
}

// GetOrder retrieves an order and its lines
func (s *OrderQueryService) GetOrder(ctx context.Context, id int64) (*OrderDetail, error) {
	ctx, span := util.StartSpan(ctx, "OrderQueryService.GetOrder", attribute.Int64("order.id", id))
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &OrderDetail{Order: order, Items: items}, nil
}

// UpdateOrderStatus overwrites the status of an order. Any non-blank value is accepted.
func (s *OrderQueryService) UpdateOrderStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderQueryService.UpdateOrderStatus", attribute.Int64("order.id", id))
	defer span.End()

	status = strings.TrimSpace(status)
	if status == "" {
		return nil, ErrInvalidStatus
	}

	order, err := s.store.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated", zap.Int64("order_id", id), zap.String("status", status))
	return order, nil
}
