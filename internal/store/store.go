// Package store declares the persistence contract shared by the postgres,
// mongo and memory drivers.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourpack-service/internal/models"
)

var (
	ErrNotFound         = errors.New("store: not found")
	ErrDuplicateCode    = errors.New("store: duplicate discount code")
	ErrSpinCooldown     = errors.New("store: spin inside cooldown window")
	ErrDuplicatePayment = errors.New("store: booking already exists for payment intent")
	ErrStatusConflict   = errors.New("store: booking status changed")
	ErrPackageInUse     = errors.New("store: package has bookings")

	// ErrDiscountUnavailable means the booking's discount is used or not
	// reserved for its payment intent.
	ErrDiscountUnavailable = errors.New("store: discount not reserved for payment")
)

// InsufficientSeatsError is returned when the conditional seat decrement
// matched no row. Available is the count observed after the guard failed.
type InsufficientSeatsError struct {
	Available int
}

func (e *InsufficientSeatsError) Error() string {
	return fmt.Sprintf("store: insufficient seats (available=%d)", e.Available)
}

// PackageStore persists tour packages. UpdatePackage never touches
// available_seats or booking_count.
type PackageStore interface {
	CreatePackage(ctx context.Context, pkg *models.TourPackage) error
	GetPackage(ctx context.Context, id string) (*models.TourPackage, error)
	ListPackagesByGuide(ctx context.Context, guideEmail string) ([]models.TourPackage, error)
	UpdatePackage(ctx context.Context, pkg *models.TourPackage) error
	// DeletePackage refuses with ErrPackageInUse while any booking references the package.
	DeletePackage(ctx context.Context, id string) error
}

// BookingStore persists bookings together with the inventory fields they affect.
type BookingStore interface {
	// CreatePendingBooking inserts the booking and increments booking_count.
	CreatePendingBooking(ctx context.Context, booking *models.Booking) error
	// ConfirmBooking decrements available_seats by SeatCount only if enough
	// seats remain, increments booking_count and inserts the booking, all as
	// one unit. A non-empty DiscountCode is redeemed in the same unit, and only
	// if the record is reserved for PaymentIntentID. Returns
	// *InsufficientSeatsError, ErrNotFound, ErrDuplicatePayment or ErrDiscountUnavailable.
	ConfirmBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetBookingByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Booking, error)
	ListBookingsByBuyer(ctx context.Context, buyerEmail string) ([]models.Booking, error)
	ListBookingsByGuide(ctx context.Context, guideEmail string) ([]models.Booking, error)
	// TransitionBookingStatus moves a booking from one status to another,
	// returning ErrStatusConflict if the current status is not from.
	TransitionBookingStatus(ctx context.Context, id, from, to string, at time.Time) (*models.Booking, error)
}

// DiscountStore is the append-only spin ledger.
type DiscountStore interface {
	// LatestSpin returns the owner's most recent record or ErrNotFound.
	LatestSpin(ctx context.Context, ownerEmail string) (*models.DiscountRecord, error)
	// InsertSpin appends rec unless the owner already has a spin after
	// cooldownStart (ErrSpinCooldown). Code collisions yield ErrDuplicateCode.
	InsertSpin(ctx context.Context, rec *models.DiscountRecord, cooldownStart time.Time) error
	ListSpins(ctx context.Context, ownerEmail string) ([]models.DiscountRecord, error)
	GetDiscount(ctx context.Context, code, ownerEmail string) (*models.DiscountRecord, error)
	// MarkDiscountUsed flips used only on an unused record; otherwise ErrNotFound.
	MarkDiscountUsed(ctx context.Context, code, ownerEmail string, at time.Time) error
	// ReserveDiscount hands an unused record to intentID if it is still held
	// by heldBy ("" when unreserved); otherwise ErrNotFound.
	ReserveDiscount(ctx context.Context, code, ownerEmail, intentID, heldBy string) error
}

// EventLog records consumed event ids for idempotent consumers.
type EventLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

type Store interface {
	PackageStore
	BookingStore
	DiscountStore
	EventLog
	Ping(ctx context.Context) error
	Close() error
}
