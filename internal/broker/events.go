package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dewmini3/CakeCustomizing/internal/models"
	"github.com/dewmini3/CakeCustomizing/internal/util"

	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	publisher Publisher
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(publisher Publisher) *EventPublisher {
	return &EventPublisher{publisher: publisher}
}

// PublishOptionEvent publishes an option lifecycle event keyed by option id
func (ep *EventPublisher) PublishOptionEvent(ctx context.Context, event *models.OptionEvent) error {
	return ep.publisher.PublishEvent(ctx, "option-"+event.OptionID, event)
}

// PublishStockEvent publishes a stock event keyed by ingredient id
func (ep *EventPublisher) PublishStockEvent(ctx context.Context, event *models.StockEvent) error {
	return ep.publisher.PublishEvent(ctx, "ingredient-"+event.IngredientID, event)
}

// PublishCustomizeCreated publishes CustomizeCreated event
func (ep *EventPublisher) PublishCustomizeCreated(ctx context.Context, event *models.CustomizeCreatedEvent) error {
	return ep.publisher.PublishEvent(ctx, "customize-"+event.CustomizeID, event)
}

// PublishProductEvent publishes a product lifecycle event
func (ep *EventPublisher) PublishProductEvent(ctx context.Context, event *models.ProductEvent) error {
	return ep.publisher.PublishEvent(ctx, "product-"+event.ProductID, event)
}

// PublishOrderEvent publishes an order lifecycle event
func (ep *EventPublisher) PublishOrderEvent(ctx context.Context, event *models.OrderEvent) error {
	return ep.publisher.PublishEvent(ctx, "order-"+event.OrderID, event)
}

// PublishFeedbackSubmitted publishes FeedbackSubmitted event
func (ep *EventPublisher) PublishFeedbackSubmitted(ctx context.Context, event *models.FeedbackSubmittedEvent) error {
	return ep.publisher.PublishEvent(ctx, "feedback-"+event.FeedbackID, event)
}

// Close closes the underlying transport
func (ep *EventPublisher) Close() error {
	return ep.publisher.Close()
}

// LogPublisher only logs events; used when no transport is configured
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a publisher that writes events to the log
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{logger: util.GetLogger()}
}

// PublishEvent logs the event
func (p *LogPublisher) PublishEvent(_ context.Context, key string, event interface{}) error {
	p.logger.Debug("Event", zap.String("key", key), zap.Any("event", event))
	return nil
}

// Close is a no-op
func (p *LogPublisher) Close() error {
	return nil
}

// EventHandler handles incoming events
type EventHandler struct {
	onFeedbackSubmitted func(context.Context, *models.FeedbackSubmittedEvent) error
	onStockLow          func(context.Context, *models.StockEvent) error
	logger              *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnFeedbackSubmitted registers a handler for FeedbackSubmitted events
func (eh *EventHandler) OnFeedbackSubmitted(handler func(context.Context, *models.FeedbackSubmittedEvent) error) {
	eh.onFeedbackSubmitted = handler
}

// OnStockLow registers a handler for StockLow events
func (eh *EventHandler) OnStockLow(handler func(context.Context, *models.StockEvent) error) {
	eh.onStockLow = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeFeedbackSubmitted:
		if eh.onFeedbackSubmitted != nil {
			var event models.FeedbackSubmittedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal FeedbackSubmitted event: %w", err)
			}
			return eh.onFeedbackSubmitted(ctx, &event)
		}

	case models.EventTypeStockLow:
		if eh.onStockLow != nil {
			var event models.StockEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockLow event: %w", err)
			}
			return eh.onStockLow(ctx, &event)
		}

	default:
		eh.logger.Debug("Ignoring event", zap.String("type", baseEvent.EventType), zap.String("id", baseEvent.EventID))
	}

	return nil
}
