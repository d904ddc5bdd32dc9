package service

import (
	"context"
	"time"

	"tourpack-service/internal/models"
)

// SpinCache is the fast-path cooldown lookup. It is advisory: the store
// remains authoritative and a miss or error falls through to it.
type SpinCache interface {
	GetLastSpin(ctx context.Context, ownerEmail string) (time.Time, bool, error)
	SetLastSpin(ctx context.Context, ownerEmail string, at time.Time, ttl time.Duration) error
}

// Locker provides short-lived mutual exclusion across API replicas.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// EventPublisher emits domain events. Publishing is best effort and never
// fails the request that triggered it.
type EventPublisher interface {
	PublishSpinIssued(ctx context.Context, event *models.SpinIssuedEvent) error
	PublishDiscountRedeemed(ctx context.Context, event *models.DiscountRedeemedEvent) error
	PublishBookingCreated(ctx context.Context, event *models.BookingEvent) error
	PublishBookingConfirmed(ctx context.Context, event *models.BookingEvent) error
	PublishBookingCompleted(ctx context.Context, event *models.BookingEvent) error
}
