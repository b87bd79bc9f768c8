package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dewmini3/CakeCustomizing/internal/broker"
	"github.com/dewmini3/CakeCustomizing/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	events []*models.FeedbackSubmittedEvent
	err    error
}

func (n *recordingNotifier) NotifyFeedback(_ context.Context, event *models.FeedbackSubmittedEvent) error {
	n.events = append(n.events, event)
	return n.err
}

type staticSubscriber struct {
	messages []broker.Message
}

func (s *staticSubscriber) StartConsuming(ctx context.Context, handler broker.MessageHandler) error {
	for _, msg := range s.messages {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *staticSubscriber) Close() error { return nil }

func encode(t *testing.T, v interface{}) broker.Message {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return broker.Message{Value: raw}
}

func TestStars(t *testing.T) {
	assert.Equal(t, "★★★☆☆", Stars(3))
	assert.Equal(t, "★★★★★", Stars(7))
	assert.Equal(t, "☆☆☆☆☆", Stars(-1))
}

func TestFeedbackWorkerSkipsMissingEmail(t *testing.T) {
	notifier := &recordingNotifier{}
	w := NewFeedbackWorker(notifier)

	require.NoError(t, w.Handle(context.Background(), &models.FeedbackSubmittedEvent{FeedbackID: "FDB-0001"}))
	assert.Empty(t, notifier.events)
}

func TestFeedbackWorkerSwallowsDeliveryFailure(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	w := NewFeedbackWorker(notifier)

	err := w.Handle(context.Background(), &models.FeedbackSubmittedEvent{FeedbackID: "FDB-0001", Email: "a@b.co"})
	assert.NoError(t, err)
	assert.Len(t, notifier.events, 1)
}

func TestEventWorkerRoutesFeedback(t *testing.T) {
	notifier := &recordingNotifier{}
	sub := &staticSubscriber{messages: []broker.Message{
		encode(t, &models.FeedbackSubmittedEvent{
			BaseEvent:  models.BaseEvent{EventID: "e1", EventType: models.EventTypeFeedbackSubmitted},
			FeedbackID: "FDB-0001",
			Email:      "jane@example.com",
			Rating:     5,
		}),
		encode(t, &models.StockEvent{
			BaseEvent:     models.BaseEvent{EventID: "e2", EventType: models.EventTypeStockLow},
			IngredientID:  "ING-0001",
			StockQuantity: -10,
		}),
		encode(t, &models.OrderEvent{
			BaseEvent: models.BaseEvent{EventID: "e3", EventType: models.EventTypeOrderCreated},
			OrderID:   "ORD-0001",
		}),
	}}

	w := NewEventWorker(sub, NewFeedbackWorker(notifier), NewStockWorker())
	require.NoError(t, w.Start(context.Background()))

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "FDB-0001", notifier.events[0].FeedbackID)
	assert.Equal(t, 5, notifier.events[0].Rating)
	assert.NoError(t, w.Stop())
}
