package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"shop-service/config"
	"shop-service/internal/models"
	"shop-service/internal/phone"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// OrderStore runs order placement statements inside a single transaction.
type OrderStore interface {
	WithOrderTx(ctx context.Context, fn func(store.OrderTx) error) error
}

// Notifier delivers a summary of a committed order.
type Notifier interface {
	NotifyOrderPlaced(ctx context.Context, notification *models.OrderNotification) error
}

// IdempotencyStore keeps the serialized result of a committed order under a client key.
type IdempotencyStore interface {
	GetOrderResult(ctx context.Context, key string) ([]byte, bool, error)
	SaveOrderResult(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// OrderService places orders
type OrderService struct {
	store          OrderStore
	notifier       Notifier
	idempotency    IdempotencyStore
	cache          CatalogCache
	notifyTimeout  time.Duration
	idempotencyTTL time.Duration
	logger         *zap.Logger

	notifications sync.WaitGroup
}

// NewOrderService creates a new order service. notifier, idempotency and cache may be nil.
func NewOrderService(
	orderStore OrderStore,
	notifier Notifier,
	idempotency IdempotencyStore,
	cache CatalogCache,
	cfg config.BusinessConfig,
) *OrderService {
	return &OrderService{
		store:          orderStore,
		notifier:       notifier,
		idempotency:    idempotency,
		cache:          cache,
		notifyTimeout:  cfg.NotifyTimeout,
		idempotencyTTL: cfg.IdempotencyTTL,
		logger:         util.GetLogger(),
	}
}

// PlaceOrderRequest represents a checkout submission
type PlaceOrderRequest struct {
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
	CustomerPhone string             `json:"customer_phone"`
	Comment       string             `json:"comment"`
	Items         []OrderItemRequest `json:"items" binding:"dive"`
}

// OrderItemRequest represents a cart line
type OrderItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// PlaceOrderResult is returned for a committed order
type PlaceOrderResult struct {
	OrderID     int64           `json:"order_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
}

const resultStatusCreated = "created"

// PlaceOrder validates the cart, then resolves the customer, prices every line,
// decrements stock and stores the order in one transaction. The notification is
// sent after commit and never affects the result.
func (s *OrderService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest, idempotencyKey string) (*PlaceOrderResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder",
		attribute.Int("order.items", len(req.Items)))
	defer span.End()

	if err := validatePlaceOrder(req); err != nil {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	if result := s.lookupIdempotent(ctx, idempotencyKey); result != nil {
		util.OrderIdempotentReplaysTotal.Inc()
		s.logger.Info("Duplicate order request detected",
			zap.String("idempotency_key", idempotencyKey),
			zap.Int64("order_id", result.OrderID))
		return result, nil
	}

	start := time.Now()
	var placed *placedOrder
	err := s.store.WithOrderTx(ctx, func(tx store.OrderTx) error {
		p, err := s.placeOrderTx(ctx, tx, req)
		if err != nil {
			return err
		}
		placed = p
		return nil
	})
	util.OrderPlacementLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		util.RecordError(span, err)
		util.OrdersFailedTotal.WithLabelValues(failureReason(err)).Inc()
		if IsBusinessRule(err) {
			s.logger.Info("Order rejected", zap.Error(err))
			return nil, err
		}
		s.logger.Error("Order transaction failed", zap.Error(err))
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", placed.order.ID),
		zap.Int64("user_id", placed.order.UserID),
		zap.String("total_amount", placed.order.TotalAmount.StringFixed(2)))

	result := &PlaceOrderResult{
		OrderID:     placed.order.ID,
		TotalAmount: placed.order.TotalAmount,
		Status:      resultStatusCreated,
	}

	s.saveIdempotent(ctx, idempotencyKey, result)
	invalidateCatalog(ctx, s.cache, s.logger)
	s.dispatchNotification(ctx, placed.notification)

	return result, nil
}

// Wait blocks until every in-flight notification has finished.
func (s *OrderService) Wait() {
	s.notifications.Wait()
}

type placedOrder struct {
	order        *models.Order
	notification *models.OrderNotification
}

func (s *OrderService) placeOrderTx(ctx context.Context, tx store.OrderTx, req *PlaceOrderRequest) (*placedOrder, error) {
	user, err := s.resolveCustomer(ctx, tx, req.CustomerName, req.CustomerEmail, req.CustomerPhone)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:      user.ID,
		TotalAmount: decimal.Zero,
		Status:      models.OrderStatusNew,
		Comment:     req.Comment,
	}
	if err := tx.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	total := decimal.Zero
	lines := make([]models.NotificationLine, 0, len(req.Items))

	for _, item := range req.Items {
		product, err := tx.LockProduct(ctx, item.ProductID)
		if errors.Is(err, store.ErrProductNotFound) {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		if err != nil {
			return nil, err
		}

		if product.Stock < item.Quantity {
			return nil, &InsufficientStockError{
				ProductID: product.ID,
				Name:      product.Name,
				Available: product.Stock,
				Requested: item.Quantity,
			}
		}

		subtotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(subtotal)

		orderItem := &models.OrderItem{
			OrderID:   order.ID,
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Price:     product.Price,
		}
		if err := tx.CreateOrderItem(ctx, orderItem); err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}

		if err := tx.DecrementStock(ctx, product.ID, item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to decrement stock for product %d: %w", product.ID, err)
		}

		lines = append(lines, models.NotificationLine{
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
			Subtotal:    subtotal,
		})
	}

	if err := tx.SetOrderTotal(ctx, order.ID, total); err != nil {
		return nil, fmt.Errorf("failed to set order total: %w", err)
	}
	order.TotalAmount = total

	return &placedOrder{
		order: order,
		notification: &models.OrderNotification{
			OrderID:     order.ID,
			TotalAmount: total,
			Customer: models.CustomerContact{
				Name:    req.CustomerName,
				Phone:   req.CustomerPhone,
				Email:   req.CustomerEmail,
				Comment: req.Comment,
			},
			Lines:    lines,
			PlacedAt: order.CreatedAt,
		},
	}, nil
}

func validatePlaceOrder(req *PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyCart
	}

	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.Comment = strings.TrimSpace(req.Comment)

	if req.CustomerName == "" || req.CustomerEmail == "" || !phone.HasDigits(phone.Normalize(req.CustomerPhone)) {
		return ErrMissingFields
	}

	for _, item := range req.Items {
		if item.ProductID <= 0 || item.Quantity <= 0 {
			return ErrInvalidItem
		}
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "db_error"
	}
}

// dispatchNotification hands the summary to the notifier in the background with a bounded timeout.
// The background context keeps the request's trace but not its cancellation.
func (s *OrderService) dispatchNotification(reqCtx context.Context, notification *models.OrderNotification) {
	if s.notifier == nil {
		return
	}

	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()
		defer func() {
			if r := recover(); r != nil {
				util.NotificationsFailedTotal.WithLabelValues(util.NotifyStageDispatch, "panic").Inc()
				s.logger.Error("Notifier panicked",
					zap.Int64("order_id", notification.OrderID),
					zap.Any("panic", r))
			}
		}()

		ctx := trace.ContextWithSpanContext(context.Background(), trace.SpanContextFromContext(reqCtx))
		ctx, span := util.StartSpan(ctx, "OrderService.dispatchNotification",
			attribute.Int64("order.id", notification.OrderID))
		defer span.End()

		ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
		defer cancel()

		start := time.Now()
		err := s.notifier.NotifyOrderPlaced(ctx, notification)
		util.NotificationLatency.WithLabelValues(util.NotifyStageDispatch).Observe(time.Since(start).Seconds())

		if err != nil {
			util.RecordError(span, err)
			reason := "error"
			if errors.Is(err, context.DeadlineExceeded) {
				reason = "timeout"
			}
			util.NotificationsFailedTotal.WithLabelValues(util.NotifyStageDispatch, reason).Inc()
			s.logger.Error("Failed to send order notification",
				zap.Int64("order_id", notification.OrderID),
				zap.Error(err))
			return
		}

		util.NotificationsSentTotal.WithLabelValues(util.NotifyStageDispatch).Inc()
	}()
}

func (s *OrderService) lookupIdempotent(ctx context.Context, key string) *PlaceOrderResult {
	if key == "" || s.idempotency == nil {
		return nil
	}

	payload, ok, err := s.idempotency.GetOrderResult(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.String("idempotency_key", key), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var result PlaceOrderResult
	if err := json.Unmarshal(payload, &result); err != nil {
		s.logger.Warn("Discarding unreadable idempotent result", zap.String("idempotency_key", key), zap.Error(err))
		return nil
	}
	return &result
}

func (s *OrderService) saveIdempotent(ctx context.Context, key string, result *PlaceOrderResult) {
	if key == "" || s.idempotency == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("Failed to encode idempotent result", zap.Error(err))
		return
	}
	if err := s.idempotency.SaveOrderResult(ctx, key, payload, s.idempotencyTTL); err != nil {
		s.logger.Warn("Failed to store idempotent result",
			zap.String("idempotency_key", key),
			zap.Int64("order_id", result.OrderID),
			zap.Error(err))
	}
}
