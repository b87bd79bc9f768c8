package worker

import (
	"context"
	"strings"

	"github.com/dewmini3/CakeCustomizing/internal/broker"
	"github.com/dewmini3/CakeCustomizing/internal/models"
	"github.com/dewmini3/CakeCustomizing/internal/util"

	"go.uber.org/zap"
)

// Notifier delivers the thank-you message for a review
type Notifier interface {
	NotifyFeedback(ctx context.Context, event *models.FeedbackSubmittedEvent) error
}

// LogNotifier writes the notification to the log instead of sending mail
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: util.GetLogger()}
}

// NotifyFeedback logs the message that would be mailed
func (n *LogNotifier) NotifyFeedback(_ context.Context, event *models.FeedbackSubmittedEvent) error {
	n.logger.Info("Feedback thank-you",
		zap.String("to", event.Email),
		zap.String("customer", event.CustomerName),
		zap.String("product", event.ProductName),
		zap.String("rating", event.RatingLabel),
		zap.String("stars", Stars(event.Rating)))
	return nil
}

// Stars renders a rating out of five as filled and empty stars
func Stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

// EventWorker consumes domain events and dispatches the ones with background work
type EventWorker struct {
	subscriber   broker.Subscriber
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewEventWorker creates a new event worker
func NewEventWorker(subscriber broker.Subscriber, feedback *FeedbackWorker, stock *StockWorker) *EventWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnFeedbackSubmitted(feedback.Handle)
	eventHandler.OnStockLow(stock.Handle)

	return &EventWorker{
		subscriber:   subscriber,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start consumes until ctx is cancelled
func (w *EventWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting event worker")
	return w.subscriber.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop closes the subscriber
func (w *EventWorker) Stop() error {
	w.logger.Info("Stopping event worker")
	return w.subscriber.Close()
}

// FeedbackWorker sends the thank-you notification for new reviews
type FeedbackWorker struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewFeedbackWorker creates a new feedback worker
func NewFeedbackWorker(notifier Notifier) *FeedbackWorker {
	return &FeedbackWorker{notifier: notifier, logger: util.GetLogger()}
}

// Handle notifies the reviewer. Reviews without an email are skipped.
// Delivery failures are logged and not retried.
func (w *FeedbackWorker) Handle(ctx context.Context, event *models.FeedbackSubmittedEvent) error {
	if event.Email == "" {
		util.FeedbackNotificationsTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	if err := w.notifier.NotifyFeedback(ctx, event); err != nil {
		util.FeedbackNotificationsTotal.WithLabelValues("failed").Inc()
		w.logger.Error("Failed to send feedback notification",
			zap.String("feedback_id", event.FeedbackID),
			zap.Error(err))
		return nil
	}
	util.FeedbackNotificationsTotal.WithLabelValues("sent").Inc()
	return nil
}

// StockWorker raises low stock alerts
type StockWorker struct {
	logger *zap.Logger
}

// NewStockWorker creates a new stock worker
func NewStockWorker() *StockWorker {
	return &StockWorker{logger: util.GetLogger()}
}

// Handle records a low stock alert
func (w *StockWorker) Handle(_ context.Context, event *models.StockEvent) error {
	util.LowStockAlertsTotal.Inc()
	w.logger.Warn("Low ingredient stock",
		zap.String("ingredient_id", event.IngredientID),
		zap.String("name", event.Name),
		zap.Float64("stock_quantity", event.StockQuantity),
		zap.String("unit", event.Unit))
	return nil
}
