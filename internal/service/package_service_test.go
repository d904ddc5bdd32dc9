package service

import (
	"context"
	"testing"
	"time"

	"tourpack-service/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageCreateAndGet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pkg, err := env.packages.Create(ctx, "guide@example.com", &CreatePackageRequest{
		Title:          "  Sundarbans Safari ",
		Destination:    "Khulna",
		DurationDays:   3,
		PriceCents:     25000,
		AvailableSeats: 12,
		IsSeasonal:     true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, pkg.ID)
	assert.Equal(t, "Sundarbans Safari", pkg.Title)
	assert.Equal(t, 0, pkg.BookingCount)
	assert.Equal(t, testNow, pkg.CreatedAt)

	got, err := env.packages.Get(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, pkg, got)

	_, err = env.packages.Get(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}

func TestPackageCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreatePackageRequest
	}{
		{"blank title", CreatePackageRequest{Title: " ", DurationDays: 1, PriceCents: 100}},
		{"zero duration", CreatePackageRequest{Title: "t", DurationDays: 0, PriceCents: 100}},
		{"zero price", CreatePackageRequest{Title: "t", DurationDays: 1, PriceCents: 0}},
		{"negative seats", CreatePackageRequest{Title: "t", DurationDays: 1, PriceCents: 100, AvailableSeats: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			_, err := env.packages.Create(ctx, "guide@example.com", &req)
			assert.True(t, apperr.Is(err, apperr.ErrValidation))
		})
	}

	_, err := env.packages.Create(ctx, "", &CreatePackageRequest{Title: "t", DurationDays: 1, PriceCents: 100})
	assert.True(t, apperr.Is(err, apperr.ErrAuthentication))
}

func TestPackageUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pkg := env.createPackage(t, "guide@example.com", 8)

	env.clock.Add(time.Hour)
	price := int64(12000)
	title := "Cox's Bazar Long Weekend"
	updated, err := env.packages.Update(ctx, "guide@example.com", pkg.ID, &UpdatePackageRequest{
		Title:      &title,
		PriceCents: &price,
	})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, price, updated.PriceCents)
	assert.Equal(t, pkg.Destination, updated.Destination)
	assert.Equal(t, 8, updated.AvailableSeats)
	assert.Equal(t, testNow.Add(time.Hour), updated.UpdatedAt)

	got, err := env.packages.Get(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, price, got.PriceCents)

	_, err = env.packages.Update(ctx, "other@example.com", pkg.ID, &UpdatePackageRequest{Title: &title})
	assert.True(t, apperr.Is(err, apperr.ErrAuthorization))

	zero := 0
	_, err = env.packages.Update(ctx, "guide@example.com", pkg.ID, &UpdatePackageRequest{DurationDays: &zero})
	assert.True(t, apperr.Is(err, apperr.ErrValidation))
}

func TestPackageListAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.createPackage(t, "guide@example.com", 2)
	env.createPackage(t, "guide@example.com", 4)
	env.createPackage(t, "rival@example.com", 4)

	pkgs, err := env.packages.ListByGuide(ctx, "guide@example.com", "guide@example.com")
	require.NoError(t, err)
	assert.Len(t, pkgs, 2)

	_, err = env.packages.ListByGuide(ctx, "guide@example.com", "rival@example.com")
	assert.True(t, apperr.Is(err, apperr.ErrAuthorization))

	_, err = env.packages.ListByGuide(ctx, "", "guide@example.com")
	assert.True(t, apperr.Is(err, apperr.ErrAuthentication))

	err = env.packages.Delete(ctx, "rival@example.com", first.ID)
	assert.True(t, apperr.Is(err, apperr.ErrAuthorization))

	require.NoError(t, env.packages.Delete(ctx, "guide@example.com", first.ID))

	_, err = env.packages.Get(ctx, first.ID)
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))

	err = env.packages.Delete(ctx, "guide@example.com", first.ID)
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}

func TestPackageDeleteKeepsBookedPackages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	guide, buyer := "guide@example.com", "b@example.com"
	pkg := env.createPackage(t, guide, 3)

	_, err := env.bookings.CreatePendingBooking(ctx, buyer, &PendingBookingRequest{
		PackageID:  pkg.ID,
		BuyerEmail: buyer,
		SeatCount:  1,
	})
	require.NoError(t, err)

	err = env.packages.Delete(ctx, guide, pkg.ID)
	assert.True(t, apperr.Is(err, apperr.ErrConflict))

	got, err := env.packages.Get(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.BookingCount)
}
