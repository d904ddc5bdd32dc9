package service

import (
	"context"
	"fmt"

	"tourpack-service/internal/models"
	"tourpack-service/internal/store"
	"tourpack-service/internal/util"

	"go.uber.org/zap"
)

// Notification is a message addressed to one participant.
type Notification struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers notifications, e.g. by email.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: util.GetLogger()}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	l.logger.Info("Notification",
		zap.String("to", n.To),
		zap.String("subject", n.Subject),
		zap.String("body", n.Body))
	return nil
}

// NotificationService turns domain events into participant notifications.
// Each event id is handled at most once.
type NotificationService struct {
	events   store.EventLog
	notifier Notifier
	logger   *zap.Logger
}

func NewNotificationService(events store.EventLog, notifier Notifier) *NotificationService {
	return &NotificationService{
		events:   events,
		notifier: notifier,
		logger:   util.GetLogger(),
	}
}

// HandleSpinIssued tells the owner about a new discount code.
func (ns *NotificationService) HandleSpinIssued(ctx context.Context, event *models.SpinIssuedEvent) error {
	return ns.once(ctx, event.BaseEvent, []Notification{{
		To:      event.OwnerEmail,
		Subject: "You won a discount",
		Body: fmt.Sprintf("Your spin earned %d%% off, valid until %s.",
			event.DiscountPercentage, event.ValidUntil.Format("2006-01-02 15:04 MST")),
	}})
}

// HandleDiscountRedeemed confirms a redemption to the owner.
func (ns *NotificationService) HandleDiscountRedeemed(ctx context.Context, event *models.DiscountRedeemedEvent) error {
	return ns.once(ctx, event.BaseEvent, []Notification{{
		To:      event.OwnerEmail,
		Subject: "Discount applied",
		Body:    fmt.Sprintf("Discount code %s has been used.", event.Code),
	}})
}

// HandleBooking notifies buyer and guide of booking lifecycle changes.
func (ns *NotificationService) HandleBooking(ctx context.Context, event *models.BookingEvent) error {
	var out []Notification
	switch event.EventType {
	case models.EventTypeBookingCreated:
		out = []Notification{
			{To: event.BuyerEmail, Subject: "Booking received",
				Body: fmt.Sprintf("Booking %s for %d seat(s) is pending payment.", event.BookingID, event.SeatCount)},
			{To: event.GuideEmail, Subject: "New booking request",
				Body: fmt.Sprintf("%s requested %d seat(s) on package %s.", event.BuyerEmail, event.SeatCount, event.PackageID)},
		}
	case models.EventTypeBookingConfirmed:
		out = []Notification{
			{To: event.BuyerEmail, Subject: "Booking confirmed",
				Body: fmt.Sprintf("Booking %s is confirmed. Amount paid: %d cents.", event.BookingID, event.AmountCents)},
			{To: event.GuideEmail, Subject: "Seats sold",
				Body: fmt.Sprintf("%s booked %d seat(s) on package %s.", event.BuyerEmail, event.SeatCount, event.PackageID)},
		}
	case models.EventTypeBookingCompleted:
		out = []Notification{
			{To: event.BuyerEmail, Subject: "Tour completed",
				Body: fmt.Sprintf("Booking %s was marked completed by your guide.", event.BookingID)},
		}
	default:
		return nil
	}
	return ns.once(ctx, event.BaseEvent, out)
}

func (ns *NotificationService) once(ctx context.Context, base models.BaseEvent, out []Notification) error {
	ctx, span := util.StartSpan(ctx, "NotificationService.Handle")
	defer span.End()

	processed, err := ns.events.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		ns.logger.Info("Event already processed", zap.String("event_id", base.EventID))
		return nil
	}

	for _, n := range out {
		if n.To == "" {
			continue
		}
		if err := ns.notifier.Notify(ctx, n); err != nil {
			return fmt.Errorf("failed to notify %s: %w", n.To, err)
		}
	}
	util.NotificationsSentTotal.WithLabelValues(base.EventType).Inc()

	if err := ns.events.MarkEventProcessed(ctx, base.EventID, base.EventType); err != nil {
		ns.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}
