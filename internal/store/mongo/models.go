package mongo

import (
	"time"

	"tourpack-service/internal/models"
)

type packageModel struct {
	ID             string    `bson:"_id"`
	GuideEmail     string    `bson:"guide_email"`
	Title          string    `bson:"title"`
	Description    string    `bson:"description"`
	Destination    string    `bson:"destination"`
	DurationDays   int       `bson:"duration_days"`
	PriceCents     int64     `bson:"price_cents"`
	AvailableSeats int       `bson:"available_seats"`
	BookingCount   int       `bson:"booking_count"`
	IsSeasonal     bool      `bson:"is_seasonal"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func toPackageModel(p *models.TourPackage) *packageModel {
	return &packageModel{
		ID:             p.ID,
		GuideEmail:     p.GuideEmail,
		Title:          p.Title,
		Description:    p.Description,
		Destination:    p.Destination,
		DurationDays:   p.DurationDays,
		PriceCents:     p.PriceCents,
		AvailableSeats: p.AvailableSeats,
		BookingCount:   p.BookingCount,
		IsSeasonal:     p.IsSeasonal,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPackageModel(m *packageModel) *models.TourPackage {
	return &models.TourPackage{
		ID:             m.ID,
		GuideEmail:     m.GuideEmail,
		Title:          m.Title,
		Description:    m.Description,
		Destination:    m.Destination,
		DurationDays:   m.DurationDays,
		PriceCents:     m.PriceCents,
		AvailableSeats: m.AvailableSeats,
		BookingCount:   m.BookingCount,
		IsSeasonal:     m.IsSeasonal,
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

// PaymentIntentID is omitted when empty so the sparse unique index ignores pending bookings.
type bookingModel struct {
	ID              string     `bson:"_id"`
	PackageID       string     `bson:"package_id"`
	GuideEmail      string     `bson:"guide_email"`
	BuyerEmail      string     `bson:"buyer_email"`
	SeatCount       int        `bson:"seat_count"`
	PaymentStatus   string     `bson:"payment_status"`
	Status          string     `bson:"status"`
	PaymentIntentID string     `bson:"payment_intent_id,omitempty"`
	AmountCents     int64      `bson:"amount_cents"`
	Currency        string     `bson:"currency"`
	DiscountCode    string     `bson:"discount_code"`
	PaidAt          *time.Time `bson:"paid_at,omitempty"`
	CreatedAt       time.Time  `bson:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"`
}

func toBookingModel(b *models.Booking) *bookingModel {
	return &bookingModel{
		ID:              b.ID,
		PackageID:       b.PackageID,
		GuideEmail:      b.GuideEmail,
		BuyerEmail:      b.BuyerEmail,
		SeatCount:       b.SeatCount,
		PaymentStatus:   b.PaymentStatus,
		Status:          b.Status,
		PaymentIntentID: b.PaymentIntentID,
		AmountCents:     b.AmountCents,
		Currency:        b.Currency,
		DiscountCode:    b.DiscountCode,
		PaidAt:          b.PaidAt,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func fromBookingModel(m *bookingModel) *models.Booking {
	return &models.Booking{
		ID:              m.ID,
		PackageID:       m.PackageID,
		GuideEmail:      m.GuideEmail,
		BuyerEmail:      m.BuyerEmail,
		SeatCount:       m.SeatCount,
		PaymentStatus:   m.PaymentStatus,
		Status:          m.Status,
		PaymentIntentID: m.PaymentIntentID,
		AmountCents:     m.AmountCents,
		Currency:        m.Currency,
		DiscountCode:    m.DiscountCode,
		PaidAt:          m.PaidAt,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

type discountModel struct {
	ID                 string     `bson:"_id"`
	OwnerEmail         string     `bson:"owner_email"`
	DiscountPercentage int        `bson:"discount_percentage"`
	Code               string     `bson:"code"`
	ValidUntil         time.Time  `bson:"valid_until"`
	SpinDate           time.Time  `bson:"spin_date"`
	Used               bool       `bson:"used"`
	UsedAt             *time.Time `bson:"used_at,omitempty"`
	ReservedIntentID   string     `bson:"reserved_intent_id"`
}

func toDiscountModel(d *models.DiscountRecord) *discountModel {
	return &discountModel{
		ID:                 d.ID,
		OwnerEmail:         d.OwnerEmail,
		DiscountPercentage: d.DiscountPercentage,
		Code:               d.Code,
		ValidUntil:         d.ValidUntil,
		SpinDate:           d.SpinDate,
		Used:               d.Used,
		UsedAt:             d.UsedAt,
		ReservedIntentID:   d.ReservedIntentID,
	}
}

func fromDiscountModel(m *discountModel) *models.DiscountRecord {
	return &models.DiscountRecord{
		ID:                 m.ID,
		OwnerEmail:         m.OwnerEmail,
		DiscountPercentage: m.DiscountPercentage,
		Code:               m.Code,
		ValidUntil:         m.ValidUntil.UTC(),
		SpinDate:           m.SpinDate.UTC(),
		Used:               m.Used,
		UsedAt:             m.UsedAt,
		ReservedIntentID:   m.ReservedIntentID,
	}
}

// spinGateModel holds the last spin time per owner. Conditional updates on
// this document serialize concurrent spins for the same owner.
type spinGateModel struct {
	OwnerEmail string    `bson:"_id"`
	LastSpinAt time.Time `bson:"last_spin_at"`
}

type processedEventModel struct {
	EventID     string    `bson:"_id"`
	EventType   string    `bson:"event_type"`
	ProcessedAt time.Time `bson:"processed_at"`
}
