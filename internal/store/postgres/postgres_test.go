package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"tourpack-service/internal/models"
	"tourpack-service/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests run only when TEST_DATABASE_URL points at a disposable database.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires database")
	}

	s, err := NewStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedPackage(t *testing.T, s *Store, seats int) *models.TourPackage {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	pkg := &models.TourPackage{
		ID:             uuid.NewString(),
		GuideEmail:     "guide@example.com",
		Title:          "Sundarbans Explorer",
		DurationDays:   3,
		PriceCents:     25000,
		AvailableSeats: seats,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, s.CreatePackage(context.Background(), pkg))
	return pkg
}

func paidBooking(pkg *models.TourPackage, seats int) *models.Booking {
	now := time.Now().UTC()
	return &models.Booking{
		ID:              uuid.NewString(),
		PackageID:       pkg.ID,
		GuideEmail:      pkg.GuideEmail,
		BuyerEmail:      "buyer@example.com",
		SeatCount:       seats,
		PaymentStatus:   models.PaymentStatusPaid,
		Status:          models.BookingStatusConfirmed,
		PaymentIntentID: "pi_" + uuid.NewString(),
		AmountCents:     int64(seats) * pkg.PriceCents,
		PaidAt:          &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestPackageRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pkg := seedPackage(t, s, 5)

	got, err := s.GetPackage(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, pkg.Title, got.Title)
	assert.Equal(t, pkg.AvailableSeats, got.AvailableSeats)
	assert.True(t, pkg.CreatedAt.Equal(got.CreatedAt))

	_, err = s.GetPackage(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConfirmBookingConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n, k = 5, 2
	pkg := seedPackage(t, s, k*(n-1))

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.ConfirmBooking(ctx, paidBooking(pkg, k))
		}(i)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		var seatsErr *store.InsufficientSeatsError
		switch {
		case err == nil:
			ok++
		case assert.ErrorAs(t, err, &seatsErr):
			short++
		}
	}
	assert.Equal(t, n-1, ok)
	assert.Equal(t, 1, short)

	got, err := s.GetPackage(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableSeats)
	assert.Equal(t, n-1, got.BookingCount)
}

func TestConfirmBookingDuplicateIntent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pkg := seedPackage(t, s, 5)
	first := paidBooking(pkg, 1)
	require.NoError(t, s.ConfirmBooking(ctx, first))

	dup := paidBooking(pkg, 1)
	dup.PaymentIntentID = first.PaymentIntentID
	assert.ErrorIs(t, s.ConfirmBooking(ctx, dup), store.ErrDuplicatePayment)

	got, err := s.GetPackage(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.AvailableSeats, "rolled back decrement must not leak")
}

func TestInsertSpinCooldown(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := uuid.NewString() + "@example.com"
	now := time.Now().UTC()
	rec := &models.DiscountRecord{
		ID:                 uuid.NewString(),
		OwnerEmail:         owner,
		DiscountPercentage: 10,
		Code:               "SPIN" + uuid.NewString()[:6],
		SpinDate:           now,
		ValidUntil:         now.Add(7 * 24 * time.Hour),
	}
	require.NoError(t, s.InsertSpin(ctx, rec, now.Add(-48*time.Hour)))

	again := *rec
	again.ID = uuid.NewString()
	again.Code = "SPIN" + uuid.NewString()[:6]
	assert.ErrorIs(t, s.InsertSpin(ctx, &again, now.Add(-48*time.Hour)), store.ErrSpinCooldown)

	require.NoError(t, s.MarkDiscountUsed(ctx, rec.Code, owner, now))
	assert.ErrorIs(t, s.MarkDiscountUsed(ctx, rec.Code, owner, now), store.ErrNotFound)
}

func TestDeletePackageInUse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pkg := seedPackage(t, s, 5)
	require.NoError(t, s.ConfirmBooking(ctx, paidBooking(pkg, 1)))

	assert.ErrorIs(t, s.DeletePackage(ctx, pkg.ID), store.ErrPackageInUse)

	free := seedPackage(t, s, 5)
	assert.NoError(t, s.DeletePackage(ctx, free.ID))
	assert.ErrorIs(t, s.DeletePackage(ctx, free.ID), store.ErrNotFound)
}

func TestConfirmBookingRedeemsReservedDiscount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pkg := seedPackage(t, s, 5)
	now := time.Now().UTC()
	rec := &models.DiscountRecord{
		ID:                 uuid.NewString(),
		OwnerEmail:         uuid.NewString() + "@example.com",
		DiscountPercentage: 20,
		Code:               "SPIN" + uuid.NewString()[:6],
		SpinDate:           now,
		ValidUntil:         now.Add(24 * time.Hour),
	}
	require.NoError(t, s.InsertSpin(ctx, rec, now.Add(-48*time.Hour)))

	held := paidBooking(pkg, 1)
	held.BuyerEmail = rec.OwnerEmail
	held.DiscountCode = rec.Code
	require.NoError(t, s.ReserveDiscount(ctx, rec.Code, rec.OwnerEmail, held.PaymentIntentID, ""))

	other := paidBooking(pkg, 1)
	other.BuyerEmail = rec.OwnerEmail
	other.DiscountCode = rec.Code
	assert.ErrorIs(t, s.ConfirmBooking(ctx, other), store.ErrDiscountUnavailable)

	require.NoError(t, s.ConfirmBooking(ctx, held))

	got, err := s.GetDiscount(ctx, rec.Code, rec.OwnerEmail)
	require.NoError(t, err)
	assert.True(t, got.Used)
	assert.Equal(t, held.PaymentIntentID, got.ReservedIntentID)

	after, err := s.GetPackage(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, after.AvailableSeats, "rejected redemption must roll back its decrement")
}

func TestTransitionBookingStatusTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := paidBooking(seedPackage(t, s, 5), 1)
	require.NoError(t, s.ConfirmBooking(ctx, b))

	at := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	done, err := s.TransitionBookingStatus(ctx, b.ID, models.BookingStatusConfirmed, models.BookingStatusCompleted, at)
	require.NoError(t, err)
	assert.True(t, at.Equal(done.UpdatedAt))
}
