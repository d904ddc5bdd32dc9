package service

import (
	"context"
	"errors"
	"testing"

	"tourpack-service/internal/broker"
	"tourpack-service/internal/models"
	"tourpack-service/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func bookingEvent(eventType string) *models.BookingEvent {
	return &models.BookingEvent{
		BaseEvent:   broker.NewBaseEvent(eventType),
		BookingID:   "b-1",
		PackageID:   "p-1",
		GuideEmail:  "guide@example.com",
		BuyerEmail:  "buyer@example.com",
		SeatCount:   2,
		AmountCents: 20000,
		Status:      models.BookingStatusConfirmed,
	}
}

func TestNotificationHandledOnce(t *testing.T) {
	st := memory.New()
	notifier := &MockNotifier{}
	ns := NewNotificationService(st, notifier)
	ctx := context.Background()

	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n Notification) bool {
		return n.To == "buyer@example.com" && n.Subject == "Booking confirmed"
	})).Return(nil).Once()
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n Notification) bool {
		return n.To == "guide@example.com" && n.Subject == "Seats sold"
	})).Return(nil).Once()

	event := bookingEvent(models.EventTypeBookingConfirmed)
	require.NoError(t, ns.HandleBooking(ctx, event))
	require.NoError(t, ns.HandleBooking(ctx, event))

	processed, err := st.IsEventProcessed(ctx, event.EventID)
	require.NoError(t, err)
	assert.True(t, processed)

	notifier.AssertExpectations(t)
	notifier.AssertNumberOfCalls(t, "Notify", 2)
}

func TestNotificationCompletedGoesToBuyerOnly(t *testing.T) {
	notifier := &MockNotifier{}
	ns := NewNotificationService(memory.New(), notifier)

	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n Notification) bool {
		return n.To == "buyer@example.com"
	})).Return(nil).Once()

	require.NoError(t, ns.HandleBooking(context.Background(), bookingEvent(models.EventTypeBookingCompleted)))
	notifier.AssertExpectations(t)
}

func TestNotificationSpinIssued(t *testing.T) {
	notifier := &MockNotifier{}
	ns := NewNotificationService(memory.New(), notifier)

	event := &models.SpinIssuedEvent{
		BaseEvent:          broker.NewBaseEvent(models.EventTypeSpinIssued),
		OwnerEmail:         "lucky@example.com",
		DiscountPercentage: 25,
		ValidUntil:         testNow,
	}
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n Notification) bool {
		return n.To == "lucky@example.com" && n.Subject == "You won a discount"
	})).Return(nil).Once()

	require.NoError(t, ns.HandleSpinIssued(context.Background(), event))
	notifier.AssertExpectations(t)
}

func TestNotificationFailureIsRetried(t *testing.T) {
	st := memory.New()
	notifier := &MockNotifier{}
	ns := NewNotificationService(st, notifier)
	ctx := context.Background()

	event := &models.DiscountRedeemedEvent{
		BaseEvent:  broker.NewBaseEvent(models.EventTypeDiscountRedeemed),
		OwnerEmail: "a@example.com",
		Code:       "SPINAAAAAA",
	}

	notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
	assert.Error(t, ns.HandleDiscountRedeemed(ctx, event))

	processed, err := st.IsEventProcessed(ctx, event.EventID)
	require.NoError(t, err)
	assert.False(t, processed)

	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()
	assert.NoError(t, ns.HandleDiscountRedeemed(ctx, event))
	notifier.AssertExpectations(t)
}
