package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"tourpack-service/internal/clock"
	"tourpack-service/internal/models"
	"tourpack-service/internal/payment"
	"tourpack-service/internal/store/memory"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type recordingEvents struct {
	mu    sync.Mutex
	types []string
}

func (r *recordingEvents) record(t string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, t)
	return nil
}

func (r *recordingEvents) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

func (r *recordingEvents) PublishSpinIssued(_ context.Context, e *models.SpinIssuedEvent) error {
	return r.record(e.EventType)
}

func (r *recordingEvents) PublishDiscountRedeemed(_ context.Context, e *models.DiscountRedeemedEvent) error {
	return r.record(e.EventType)
}

func (r *recordingEvents) PublishBookingCreated(_ context.Context, e *models.BookingEvent) error {
	return r.record(e.EventType)
}

func (r *recordingEvents) PublishBookingConfirmed(_ context.Context, e *models.BookingEvent) error {
	return r.record(e.EventType)
}

func (r *recordingEvents) PublishBookingCompleted(_ context.Context, e *models.BookingEvent) error {
	return r.record(e.EventType)
}

type MockSpinCache struct {
	mock.Mock
}

func (m *MockSpinCache) GetLastSpin(ctx context.Context, ownerEmail string) (time.Time, bool, error) {
	args := m.Called(ctx, ownerEmail)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func (m *MockSpinCache) SetLastSpin(ctx context.Context, ownerEmail string, at time.Time, ttl time.Duration) error {
	args := m.Called(ctx, ownerEmail, at, ttl)
	return args.Error(0)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockLocker) ReleaseLock(ctx context.Context, key, token string) error {
	args := m.Called(ctx, key, token)
	return args.Error(0)
}

type testEnv struct {
	store   *memory.Store
	clock   *clock.MockClock
	gateway *payment.SimulatedGateway
	events  *recordingEvents

	spins     *SpinService
	discounts *DiscountService
	packages  *PackageService
	bookings  *BookingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := memory.New()
	clk := clock.NewMockClock(testNow)
	gw := payment.NewSimulatedGateway(false)
	ev := &recordingEvents{}

	discounts := NewDiscountService(st, st, ev, clk)
	return &testEnv{
		store:   st,
		clock:   clk,
		gateway: gw,
		events:  ev,
		spins: NewSpinService(st, nil, ev, clk, SpinConfig{
			Cooldown: 48 * time.Hour,
			Validity: 7 * 24 * time.Hour,
		}),
		discounts: discounts,
		packages:  NewPackageService(st, clk),
		bookings: NewBookingService(st, st, discounts, gw, nil, ev, clk, BookingConfig{
			Currency:       "usd",
			ConfirmLockTTL: 30 * time.Second,
		}),
	}
}

func (e *testEnv) createPackage(t *testing.T, guide string, seats int) *models.TourPackage {
	t.Helper()

	pkg, err := e.packages.Create(context.Background(), guide, &CreatePackageRequest{
		Title:          "Cox's Bazar Weekend",
		Destination:    "Cox's Bazar",
		DurationDays:   2,
		PriceCents:     10000,
		AvailableSeats: seats,
	})
	require.NoError(t, err)
	return pkg
}

// paidIntent registers a succeeded intent for buyer as if the card payment
// had already gone through.
func (e *testEnv) paidIntent(id, buyer string, pkg *models.TourPackage, seats int) {
	e.gateway.Put(&payment.PaymentIntent{
		ID:          id,
		Status:      payment.StatusSucceeded,
		AmountCents: pkg.PriceCents * int64(seats),
		Currency:    "usd",
		Metadata: map[string]string{
			payment.MetaPackageID:  pkg.ID,
			payment.MetaBuyerEmail: buyer,
		},
	})
}
