package broker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"tourpack-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu   sync.Mutex
	keys []string
	msgs [][]byte
}

func (w *recordingWriter) PublishEvent(_ context.Context, key string, event interface{}) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.keys = append(w.keys, key)
	w.msgs = append(w.msgs, b)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishAndRouteBookingEvent(t *testing.T) {
	w := &recordingWriter{}
	pub := NewEventPublisher(w)
	ctx := context.Background()

	event := &models.BookingEvent{
		BaseEvent:  NewBaseEvent(models.EventTypeBookingConfirmed),
		BookingID:  "b1",
		PackageID:  "p1",
		BuyerEmail: "buyer@example.com",
		SeatCount:  2,
	}
	require.NoError(t, pub.PublishBookingConfirmed(ctx, event))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "booking-b1", w.keys[0])

	var got *models.BookingEvent
	h := NewEventHandler()
	h.OnBooking(func(_ context.Context, e *models.BookingEvent) error {
		got = e
		return nil
	})

	require.NoError(t, h.HandleMessage(ctx, kafka.Message{Value: w.msgs[0]}))
	require.NotNil(t, got)
	assert.Equal(t, event.EventID, got.EventID)
	assert.Equal(t, models.EventTypeBookingConfirmed, got.EventType)
	assert.Equal(t, 2, got.SeatCount)
}

func TestHandleMessageRouting(t *testing.T) {
	w := &recordingWriter{}
	pub := NewEventPublisher(w)
	ctx := context.Background()

	require.NoError(t, pub.PublishSpinIssued(ctx, &models.SpinIssuedEvent{
		BaseEvent:          NewBaseEvent(models.EventTypeSpinIssued),
		OwnerEmail:         "a@example.com",
		DiscountPercentage: 25,
	}))
	require.NoError(t, pub.PublishDiscountRedeemed(ctx, &models.DiscountRedeemedEvent{
		BaseEvent:  NewBaseEvent(models.EventTypeDiscountRedeemed),
		OwnerEmail: "a@example.com",
		Code:       "SPIN123ABC",
	}))

	var spins, redeemed int
	h := NewEventHandler()
	h.OnSpinIssued(func(_ context.Context, e *models.SpinIssuedEvent) error {
		spins++
		assert.Equal(t, 25, e.DiscountPercentage)
		return nil
	})
	h.OnDiscountRedeemed(func(_ context.Context, e *models.DiscountRedeemedEvent) error {
		redeemed++
		assert.Equal(t, "SPIN123ABC", e.Code)
		return nil
	})

	for _, m := range w.msgs {
		require.NoError(t, h.HandleMessage(ctx, kafka.Message{Value: m}))
	}
	assert.Equal(t, 1, spins)
	assert.Equal(t, 1, redeemed)
	assert.Equal(t, []string{"owner-a@example.com", "owner-a@example.com"}, w.keys)

	// unknown types are ignored, garbage is an error
	assert.NoError(t, h.HandleMessage(ctx, kafka.Message{Value: []byte(`{"event_type":"OTHER"}`)}))
	assert.Error(t, h.HandleMessage(ctx, kafka.Message{Value: []byte(`not json`)}))
}
