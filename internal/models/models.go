package models

import "time"

// TourPackage represents a guided tour offered by a guide
type TourPackage struct {
	ID             string    `db:"id" json:"id"`
	GuideEmail     string    `db:"guide_email" json:"guide_email"`
	Title          string    `db:"title" json:"title"`
	Description    string    `db:"description" json:"description"`
	Destination    string    `db:"destination" json:"destination"`
	DurationDays   int       `db:"duration_days" json:"duration_days"`
	PriceCents     int64     `db:"price_cents" json:"price_cents"`
	AvailableSeats int       `db:"available_seats" json:"available_seats"`
	BookingCount   int       `db:"booking_count" json:"booking_count"`
	IsSeasonal     bool      `db:"is_seasonal" json:"is_seasonal"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Booking represents a buyer's reservation of seats on a package
type Booking struct {
	ID              string     `db:"id" json:"id"`
	PackageID       string     `db:"package_id" json:"package_id"`
	GuideEmail      string     `db:"guide_email" json:"guide_email"`
	BuyerEmail      string     `db:"buyer_email" json:"buyer_email"`
	SeatCount       int        `db:"seat_count" json:"seat_count"`
	PaymentStatus   string     `db:"payment_status" json:"payment_status"`
	Status          string     `db:"status" json:"status"`
	PaymentIntentID string     `db:"payment_intent_id" json:"payment_intent_id,omitempty"`
	AmountCents     int64      `db:"amount_cents" json:"amount_cents"`
	Currency        string     `db:"currency" json:"currency,omitempty"`
	DiscountCode    string     `db:"discount_code" json:"discount_code,omitempty"`
	PaidAt          *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// DiscountRecord is a ledger entry produced by a spin
type DiscountRecord struct {
	ID                 string     `db:"id" json:"id"`
	OwnerEmail         string     `db:"owner_email" json:"owner_email"`
	DiscountPercentage int        `db:"discount_percentage" json:"discount_percentage"`
	Code               string     `db:"code" json:"code"`
	ValidUntil         time.Time  `db:"valid_until" json:"valid_until"`
	SpinDate           time.Time  `db:"spin_date" json:"spin_date"`
	Used               bool       `db:"used" json:"used"`
	UsedAt             *time.Time `db:"used_at" json:"used_at,omitempty"`
	// payment intent the code is held for, empty when unreserved
	ReservedIntentID   string     `db:"reserved_intent_id" json:"-"`
}

// Redeemable reports whether the record can still be applied by owner at t
func (d *DiscountRecord) Redeemable(owner string, t time.Time) bool {
	return !d.Used && d.ValidUntil.After(t) && d.OwnerEmail == owner
}

// Booking statuses
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
)

// Payment statuses
const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
