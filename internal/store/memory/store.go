// Package memory is a mutex-guarded in-process store used by tests and the
// local "memory" database driver.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tourpack-service/internal/models"
	"tourpack-service/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	packages map[string]*models.TourPackage
	bookings map[string]*models.Booking

	// payment intent id -> booking id
	bookingsByIntent map[string]string

	// append-only spin ledger
	discounts []*models.DiscountRecord
	codes     map[string]struct{}

	processed map[string]string
}

func New() *Store {
	return &Store{
		packages:         make(map[string]*models.TourPackage),
		bookings:         make(map[string]*models.Booking),
		bookingsByIntent: make(map[string]string),
		discounts:        make([]*models.DiscountRecord, 0),
		codes:            make(map[string]struct{}),
		processed:        make(map[string]string),
	}
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Package Store implementation

func (s *Store) CreatePackage(_ context.Context, pkg *models.TourPackage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *pkg
	s.packages[pkg.ID] = &cp
	return nil
}

func (s *Store) GetPackage(_ context.Context, id string) (*models.TourPackage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.packages[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListPackagesByGuide(_ context.Context, guideEmail string) ([]models.TourPackage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.TourPackage{}
	for _, p := range s.packages {
		if p.GuideEmail == guideEmail {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdatePackage(_ context.Context, pkg *models.TourPackage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packages[pkg.ID]
	if !ok {
		return store.ErrNotFound
	}
	p.Title = pkg.Title
	p.Description = pkg.Description
	p.Destination = pkg.Destination
	p.DurationDays = pkg.DurationDays
	p.PriceCents = pkg.PriceCents
	p.IsSeasonal = pkg.IsSeasonal
	p.UpdatedAt = pkg.UpdatedAt
	return nil
}

func (s *Store) DeletePackage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.packages[id]; !ok {
		return store.ErrNotFound
	}
	for _, b := range s.bookings {
		if b.PackageID == id {
			return store.ErrPackageInUse
		}
	}
	delete(s.packages, id)
	return nil
}

// Booking Store implementation

func (s *Store) CreatePendingBooking(_ context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packages[booking.PackageID]
	if !ok {
		return store.ErrNotFound
	}
	p.BookingCount++

	cp := *booking
	s.bookings[booking.ID] = &cp
	return nil
}

func (s *Store) ConfirmBooking(_ context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packages[booking.PackageID]
	if !ok {
		return store.ErrNotFound
	}
	if booking.PaymentIntentID != "" {
		if _, dup := s.bookingsByIntent[booking.PaymentIntentID]; dup {
			return store.ErrDuplicatePayment
		}
	}
	if p.AvailableSeats < booking.SeatCount {
		return &store.InsufficientSeatsError{Available: p.AvailableSeats}
	}

	var discount *models.DiscountRecord
	if booking.DiscountCode != "" {
		discount = s.reservedDiscount(booking.DiscountCode, booking.BuyerEmail, booking.PaymentIntentID)
		if discount == nil {
			return store.ErrDiscountUnavailable
		}
	}

	p.AvailableSeats -= booking.SeatCount
	p.BookingCount++
	if discount != nil {
		usedAt := booking.UpdatedAt
		discount.Used = true
		discount.UsedAt = &usedAt
	}

	cp := *booking
	s.bookings[booking.ID] = &cp
	if booking.PaymentIntentID != "" {
		s.bookingsByIntent[booking.PaymentIntentID] = booking.ID
	}
	return nil
}

func (s *Store) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.bookings[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetBookingByPaymentIntent(_ context.Context, paymentIntentID string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.bookingsByIntent[paymentIntentID]; ok {
		cp := *s.bookings[id]
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListBookingsByBuyer(_ context.Context, buyerEmail string) ([]models.Booking, error) {
	return s.listBookings(func(b *models.Booking) bool { return b.BuyerEmail == buyerEmail }), nil
}

func (s *Store) ListBookingsByGuide(_ context.Context, guideEmail string) ([]models.Booking, error) {
	return s.listBookings(func(b *models.Booking) bool { return b.GuideEmail == guideEmail }), nil
}

func (s *Store) listBookings(match func(*models.Booking) bool) []models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Booking{}
	for _, b := range s.bookings {
		if match(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Store) TransitionBookingStatus(_ context.Context, id, from, to string, at time.Time) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if b.Status != from {
		return nil, store.ErrStatusConflict
	}
	b.Status = to
	b.UpdatedAt = at

	cp := *b
	return &cp, nil
}

// Discount Store implementation

func (s *Store) LatestSpin(_ context.Context, ownerEmail string) (*models.DiscountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.DiscountRecord
	for _, d := range s.discounts {
		if d.OwnerEmail == ownerEmail && (latest == nil || d.SpinDate.After(latest.SpinDate)) {
			latest = d
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *Store) InsertSpin(_ context.Context, rec *models.DiscountRecord, cooldownStart time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.discounts {
		if d.OwnerEmail == rec.OwnerEmail && d.SpinDate.After(cooldownStart) {
			return store.ErrSpinCooldown
		}
	}
	if _, dup := s.codes[rec.Code]; dup {
		return store.ErrDuplicateCode
	}

	cp := *rec
	s.discounts = append(s.discounts, &cp)
	s.codes[rec.Code] = struct{}{}
	return nil
}

func (s *Store) ListSpins(_ context.Context, ownerEmail string) ([]models.DiscountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.DiscountRecord{}
	for _, d := range s.discounts {
		if d.OwnerEmail == ownerEmail {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpinDate.After(out[j].SpinDate) })
	return out, nil
}

func (s *Store) GetDiscount(_ context.Context, code, ownerEmail string) (*models.DiscountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.discounts {
		if d.Code == code && d.OwnerEmail == ownerEmail {
			cp := *d
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) MarkDiscountUsed(_ context.Context, code, ownerEmail string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.discounts {
		if d.Code == code && d.OwnerEmail == ownerEmail && !d.Used {
			usedAt := at
			d.Used = true
			d.UsedAt = &usedAt
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ReserveDiscount(_ context.Context, code, ownerEmail, intentID, heldBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.discounts {
		if d.Code == code && d.OwnerEmail == ownerEmail && !d.Used && d.ReservedIntentID == heldBy {
			d.ReservedIntentID = intentID
			return nil
		}
	}
	return store.ErrNotFound
}

// reservedDiscount finds the unused record held for intentID. Callers hold mu.
func (s *Store) reservedDiscount(code, ownerEmail, intentID string) *models.DiscountRecord {
	for _, d := range s.discounts {
		if d.Code == code && d.OwnerEmail == ownerEmail && !d.Used && d.ReservedIntentID == intentID {
			return d
		}
	}
	return nil
}

// Event log implementation

func (s *Store) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.processed[eventID]
	return ok, nil
}

func (s *Store) MarkEventProcessed(_ context.Context, eventID, eventType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.processed[eventID]; !ok {
		s.processed[eventID] = eventType
	}
	return nil
}
