package models

import "time"

// Event types
const (
	EventTypeSpinIssued       = "SPIN_ISSUED"
	EventTypeDiscountRedeemed = "DISCOUNT_REDEEMED"
	EventTypeBookingCreated   = "BOOKING_CREATED"
	EventTypeBookingConfirmed = "BOOKING_CONFIRMED"
	EventTypeBookingCompleted = "BOOKING_COMPLETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SpinIssuedEvent published when a spin produces a discount
type SpinIssuedEvent struct {
	BaseEvent
	OwnerEmail         string    `json:"owner_email"`
	DiscountPercentage int       `json:"discount_percentage"`
	ValidUntil         time.Time `json:"valid_until"`
}

// DiscountRedeemedEvent published when a discount code is marked used
type DiscountRedeemedEvent struct {
	BaseEvent
	OwnerEmail string `json:"owner_email"`
	Code       string `json:"code"`
}

// BookingEvent is shared by the booking lifecycle events
type BookingEvent struct {
	BaseEvent
	BookingID   string `json:"booking_id"`
	PackageID   string `json:"package_id"`
	GuideEmail  string `json:"guide_email"`
	BuyerEmail  string `json:"buyer_email"`
	SeatCount   int    `json:"seat_count"`
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"`
}
