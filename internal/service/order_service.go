package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dewmini3/CakeCustomizing/internal/models"
	"github.com/dewmini3/CakeCustomizing/internal/store"
	"github.com/dewmini3/CakeCustomizing/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService handles order business logic
type OrderService struct {
	store     store.DocumentStore
	seq       *SequenceGenerator
	locker    Locker
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(s store.DocumentStore, seq *SequenceGenerator, locker Locker, publisher EventPublisher) *OrderService {
	return &OrderService{
		store:     s,
		seq:       seq,
		locker:    locker,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	CustomerID      string                 `json:"customer_id"`
	Items           []models.OrderItem     `json:"items"`
	DeliveryAddress models.DeliveryAddress `json:"delivery_address"`
	PaymentMethod   string                 `json:"payment_method"`
	PaymentResult   models.PaymentResult   `json:"payment_result"`
	ItemsPrice      float64                `json:"items_price"`
	TaxPrice        float64                `json:"tax_price"`
	DeliveryFee     float64                `json:"delivery_fee"`
	TotalPrice      float64                `json:"total_price"`
	IsPaid          bool                   `json:"is_paid"`
	PaidAt          *time.Time             `json:"paid_at"`
}

// UpdateOrderRequest is a partial order update; nil fields are left unchanged
type UpdateOrderRequest struct {
	Items           []models.OrderItem      `json:"items"`
	DeliveryAddress *models.DeliveryAddress `json:"delivery_address"`
	PaymentMethod   *string                 `json:"payment_method"`
	PaymentResult   *models.PaymentResult   `json:"payment_result"`
	ItemsPrice      *float64                `json:"items_price"`
	TaxPrice        *float64                `json:"tax_price"`
	DeliveryFee     *float64                `json:"delivery_fee"`
	TotalPrice      *float64                `json:"total_price"`
	IsPaid          *bool                   `json:"is_paid"`
	PaidAt          *time.Time              `json:"paid_at"`
}

func rejectOrder(err error) error {
	util.ValidationFailuresTotal.WithLabelValues("order").Inc()
	return err
}

func validateItems(items []models.OrderItem) error {
	if len(items) == 0 {
		return validationError("Order items are required")
	}
	for _, item := range items {
		if strings.TrimSpace(item.ProductID) == "" || item.Qty < 1 || item.Price < 0 {
			return validationError("Invalid order item")
		}
	}
	return nil
}

// calculateItemsPrice sums price times quantity across items
func calculateItemsPrice(items []models.OrderItem) float64 {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	return total.InexactFloat64()
}

func calculateTotal(itemsPrice, taxPrice, deliveryFee float64) float64 {
	return decimal.NewFromFloat(itemsPrice).
		Add(decimal.NewFromFloat(taxPrice)).
		Add(decimal.NewFromFloat(deliveryFee)).
		InexactFloat64()
}

// CreateOrder stores a new order. Missing item and total prices are derived from the items.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if err := validateItems(req.Items); err != nil {
		return nil, rejectOrder(err)
	}

	itemsPrice := req.ItemsPrice
	if itemsPrice == 0 {
		itemsPrice = calculateItemsPrice(req.Items)
	}
	totalPrice := req.TotalPrice
	if totalPrice == 0 {
		totalPrice = calculateTotal(itemsPrice, req.TaxPrice, req.DeliveryFee)
	}

	id, err := s.seq.Next(ctx, models.PrefixOrder, models.CounterOrder)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:              id,
		CustomerID:      req.CustomerID,
		Items:           req.Items,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentResult:   req.PaymentResult,
		ItemsPrice:      itemsPrice,
		TaxPrice:        req.TaxPrice,
		DeliveryFee:     req.DeliveryFee,
		TotalPrice:      totalPrice,
		IsPaid:          req.IsPaid,
		PaidAt:          req.PaidAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if order.IsPaid && order.PaidAt == nil {
		order.PaidAt = &now
	}

	if err := s.store.Insert(ctx, models.CollectionOrders, id, order); err != nil {
		return nil, util.RecordError(span, storeError("failed to create order", err))
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created", zap.String("order_id", id), zap.Int("items", len(order.Items)))
	s.publish(ctx, models.EventTypeOrderCreated, order)

	return order, nil
}

// GetOrder retrieves an active order by ID
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder", "order_id", id)
	defer span.End()

	var order models.Order
	if err := s.store.FindByID(ctx, models.CollectionOrders, id, &order); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("Order not found")
		}
		return nil, util.RecordError(span, storeError("failed to get order", err))
	}
	return &order, nil
}

// ListOrders returns every active order, newest first
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	orders := []models.Order{}
	if err := s.store.Find(ctx, models.CollectionOrders, nil, store.FindOptions{NewestFirst: true}, &orders); err != nil {
		return nil, util.RecordError(span, storeError("failed to list orders", err))
	}
	return orders, nil
}

// UpdateOrder merges the given fields into an active order
func (s *OrderService) UpdateOrder(ctx context.Context, id string, req *UpdateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrder", "order_id", id)
	defer span.End()

	unlock, err := lockAll(ctx, s.locker, "order:"+id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Items != nil {
		if err := validateItems(req.Items); err != nil {
			return nil, rejectOrder(err)
		}
		order.Items = req.Items
	}
	if req.DeliveryAddress != nil {
		order.DeliveryAddress = *req.DeliveryAddress
	}
	if req.PaymentMethod != nil {
		order.PaymentMethod = *req.PaymentMethod
	}
	if req.PaymentResult != nil {
		order.PaymentResult = *req.PaymentResult
	}
	if req.ItemsPrice != nil {
		order.ItemsPrice = *req.ItemsPrice
	}
	if req.TaxPrice != nil {
		order.TaxPrice = *req.TaxPrice
	}
	if req.DeliveryFee != nil {
		order.DeliveryFee = *req.DeliveryFee
	}
	if req.TotalPrice != nil {
		order.TotalPrice = *req.TotalPrice
	}
	if req.PaidAt != nil {
		order.PaidAt = req.PaidAt
	}
	if req.IsPaid != nil {
		order.IsPaid = *req.IsPaid
		if order.IsPaid && order.PaidAt == nil {
			now := time.Now().UTC()
			order.PaidAt = &now
		}
	}
	order.UpdatedAt = time.Now().UTC()

	if err := s.store.Replace(ctx, models.CollectionOrders, id, order); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("Order not found")
		}
		return nil, util.RecordError(span, storeError("failed to update order", err))
	}

	s.logger.Info("Order updated", zap.String("order_id", id))
	return order, nil
}

// DeleteOrder removes an active order without archiving it
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.DeleteOrder", "order_id", id)
	defer span.End()

	if err := s.store.Delete(ctx, models.CollectionOrders, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("Order not found")
		}
		return util.RecordError(span, storeError("failed to delete order", err))
	}
	s.logger.Info("Order deleted", zap.String("order_id", id))
	return nil
}

// CompleteOrder moves an order into completed orders with its delivery time
// set. The copy is an upsert so a retry after a failed delete converges.
func (s *OrderService) CompleteOrder(ctx context.Context, id string) (*models.CompletedOrder, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CompleteOrder", "order_id", id)
	defer span.End()

	start := time.Now()
	defer func() {
		util.StoreOperationLatency.WithLabelValues("complete_order").Observe(time.Since(start).Seconds())
	}()

	unlock, err := lockAll(ctx, s.locker, "order:"+id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	completed := &models.CompletedOrder{Order: *order}
	completed.DeliveredAt = &now
	completed.UpdatedAt = now

	if err := s.store.Upsert(ctx, models.CollectionCompletedOrders, id, completed); err != nil {
		return nil, util.RecordError(span, storeError("failed to archive order", err))
	}
	if err := s.store.Delete(ctx, models.CollectionOrders, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, util.RecordError(span, storeError("failed to remove completed order", err))
	}

	util.ArchiveMigrationsTotal.WithLabelValues("complete_order").Inc()
	s.logger.Info("Order completed", zap.String("order_id", id))
	s.publish(ctx, models.EventTypeOrderCompleted, &completed.Order)

	return completed, nil
}

// ListCompleted returns every completed order, newest first
func (s *OrderService) ListCompleted(ctx context.Context) ([]models.CompletedOrder, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListCompleted")
	defer span.End()

	orders := []models.CompletedOrder{}
	if err := s.store.Find(ctx, models.CollectionCompletedOrders, nil, store.FindOptions{NewestFirst: true}, &orders); err != nil {
		return nil, util.RecordError(span, storeError("failed to list completed orders", err))
	}
	return orders, nil
}

// GetCompleted returns one completed order
func (s *OrderService) GetCompleted(ctx context.Context, id string) (*models.CompletedOrder, error) {
	var order models.CompletedOrder
	if err := s.store.FindByID(ctx, models.CollectionCompletedOrders, id, &order); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("Completed order not found")
		}
		return nil, storeError("failed to get completed order", err)
	}
	return &order, nil
}

// DeleteCompleted permanently removes a completed order
func (s *OrderService) DeleteCompleted(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, models.CollectionCompletedOrders, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("Completed order not found")
		}
		return storeError("failed to delete completed order", err)
	}
	s.logger.Info("Completed order deleted", zap.String("order_id", id))
	return nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *models.Order) {
	if err := s.publisher.PublishOrderEvent(ctx, orderEvent(eventType, order)); err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("type", eventType),
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}
