package service

import (
	"context"
	"time"

	"github.com/dewmini3/CakeCustomizing/internal/models"

	"github.com/google/uuid"
)

// EventPublisher is the set of domain events services emit.
// *broker.EventPublisher satisfies it.
type EventPublisher interface {
	PublishOptionEvent(ctx context.Context, event *models.OptionEvent) error
	PublishStockEvent(ctx context.Context, event *models.StockEvent) error
	PublishCustomizeCreated(ctx context.Context, event *models.CustomizeCreatedEvent) error
	PublishProductEvent(ctx context.Context, event *models.ProductEvent) error
	PublishOrderEvent(ctx context.Context, event *models.OrderEvent) error
	PublishFeedbackSubmitted(ctx context.Context, event *models.FeedbackSubmittedEvent) error
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func optionEvent(eventType string, o *models.Option) *models.OptionEvent {
	return &models.OptionEvent{
		BaseEvent: newBaseEvent(eventType),
		OptionID:  o.ID,
		Kind:      o.Name,
		Flavor:    o.Flavor,
		Size:      o.Size,
		Shape:     o.Shape,
		Price:     o.Price,
	}
}

func productEvent(eventType string, p *models.Product) *models.ProductEvent {
	return &models.ProductEvent{
		BaseEvent: newBaseEvent(eventType),
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
	}
}

func orderEvent(eventType string, o *models.Order) *models.OrderEvent {
	return &models.OrderEvent{
		BaseEvent:  newBaseEvent(eventType),
		OrderID:    o.ID,
		ItemCount:  len(o.Items),
		TotalPrice: o.TotalPrice,
	}
}
