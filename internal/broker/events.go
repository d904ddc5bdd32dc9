package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tourpack-service/internal/models"
	"tourpack-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	writer EventWriter
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(writer EventWriter) *EventPublisher {
	return &EventPublisher{writer: writer}
}

// NewBaseEvent stamps a fresh event id and time
func NewBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// PublishSpinIssued publishes SpinIssued event
func (ep *EventPublisher) PublishSpinIssued(ctx context.Context, event *models.SpinIssuedEvent) error {
	return ep.writer.PublishEvent(ctx, "owner-"+event.OwnerEmail, event)
}

// PublishDiscountRedeemed publishes DiscountRedeemed event
func (ep *EventPublisher) PublishDiscountRedeemed(ctx context.Context, event *models.DiscountRedeemedEvent) error {
	return ep.writer.PublishEvent(ctx, "owner-"+event.OwnerEmail, event)
}

// PublishBookingCreated publishes BookingCreated event
func (ep *EventPublisher) PublishBookingCreated(ctx context.Context, event *models.BookingEvent) error {
	return ep.writer.PublishEvent(ctx, "booking-"+event.BookingID, event)
}

// PublishBookingConfirmed publishes BookingConfirmed event
func (ep *EventPublisher) PublishBookingConfirmed(ctx context.Context, event *models.BookingEvent) error {
	return ep.writer.PublishEvent(ctx, "booking-"+event.BookingID, event)
}

// PublishBookingCompleted publishes BookingCompleted event
func (ep *EventPublisher) PublishBookingCompleted(ctx context.Context, event *models.BookingEvent) error {
	return ep.writer.PublishEvent(ctx, "booking-"+event.BookingID, event)
}

// Close closes the underlying writer
func (ep *EventPublisher) Close() error {
	return ep.writer.Close()
}

// EventHandler handles incoming events
type EventHandler struct {
	onSpinIssued       func(context.Context, *models.SpinIssuedEvent) error
	onDiscountRedeemed func(context.Context, *models.DiscountRedeemedEvent) error
	onBooking          func(context.Context, *models.BookingEvent) error
	logger             *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnSpinIssued registers a handler for SpinIssued events
func (eh *EventHandler) OnSpinIssued(handler func(context.Context, *models.SpinIssuedEvent) error) {
	eh.onSpinIssued = handler
}

// OnDiscountRedeemed registers a handler for DiscountRedeemed events
func (eh *EventHandler) OnDiscountRedeemed(handler func(context.Context, *models.DiscountRedeemedEvent) error) {
	eh.onDiscountRedeemed = handler
}

// OnBooking registers a handler for every booking lifecycle event
func (eh *EventHandler) OnBooking(handler func(context.Context, *models.BookingEvent) error) {
	eh.onBooking = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeSpinIssued:
		if eh.onSpinIssued != nil {
			var event models.SpinIssuedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SpinIssued event: %w", err)
			}
			return eh.onSpinIssued(ctx, &event)
		}

	case models.EventTypeDiscountRedeemed:
		if eh.onDiscountRedeemed != nil {
			var event models.DiscountRedeemedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal DiscountRedeemed event: %w", err)
			}
			return eh.onDiscountRedeemed(ctx, &event)
		}

	case models.EventTypeBookingCreated, models.EventTypeBookingConfirmed, models.EventTypeBookingCompleted:
		if eh.onBooking != nil {
			var event models.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			return eh.onBooking(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
