package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tourpack-service/internal/models"
	"tourpack-service/internal/store"

	"github.com/jmoiron/sqlx"
)

const bookingColumns = `id, package_id, guide_email, buyer_email, seat_count, payment_status, status,
	COALESCE(payment_intent_id, '') AS payment_intent_id, amount_cents, currency, discount_code,
	paid_at, created_at, updated_at`

const insertBooking = `
	INSERT INTO bookings (id, package_id, guide_email, buyer_email, seat_count, payment_status, status,
		payment_intent_id, amount_cents, currency, discount_code, paid_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11, $12, $13, $14)`

func insertBookingTx(ctx context.Context, tx *sqlx.Tx, b *models.Booking) error {
	_, err := tx.ExecContext(ctx, insertBooking,
		b.ID, b.PackageID, b.GuideEmail, b.BuyerEmail, b.SeatCount, b.PaymentStatus, b.Status,
		b.PaymentIntentID, b.AmountCents, b.Currency, b.DiscountCode, b.PaidAt, b.CreatedAt, b.UpdatedAt)
	return err
}

// CreatePendingBooking inserts an unpaid booking and bumps the package booking count
func (s *Store) CreatePendingBooking(ctx context.Context, booking *models.Booking) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE tour_packages SET booking_count = booking_count + 1, updated_at = $1 WHERE id = $2",
			booking.UpdatedAt, booking.PackageID)
		if err != nil {
			return fmt.Errorf("failed to bump booking count: %w", err)
		}
		if err := expectRow(res); err != nil {
			return err
		}

		if err := insertBookingTx(ctx, tx, booking); err != nil {
			return fmt.Errorf("failed to insert booking: %w", err)
		}
		return nil
	})
}

// ConfirmBooking decrements seats under a guard and inserts the paid booking in one transaction
func (s *Store) ConfirmBooking(ctx context.Context, booking *models.Booking) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var remaining int
		err := tx.GetContext(ctx, &remaining, `
			UPDATE tour_packages
			SET available_seats = available_seats - $1, booking_count = booking_count + 1, updated_at = $3
			WHERE id = $2 AND available_seats >= $1
			RETURNING available_seats`,
			booking.SeatCount, booking.PackageID, booking.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			var available int
			err = tx.GetContext(ctx, &available,
				"SELECT available_seats FROM tour_packages WHERE id = $1", booking.PackageID)
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to read seats: %w", err)
			}
			return &store.InsufficientSeatsError{Available: available}
		}
		if err != nil {
			return fmt.Errorf("failed to decrement seats: %w", err)
		}

		if err := insertBookingTx(ctx, tx, booking); err != nil {
			if uniqueViolation(err, "uq_bookings_payment_intent") {
				return store.ErrDuplicatePayment
			}
			return fmt.Errorf("failed to insert booking: %w", err)
		}

		if booking.DiscountCode != "" {
			return redeemReservedTx(ctx, tx, booking)
		}
		return nil
	})
}

// GetBooking retrieves a booking by ID
func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.getBooking(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = $1", id)
}

// GetBookingByPaymentIntent retrieves the booking created for a payment intent
func (s *Store) GetBookingByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Booking, error) {
	return s.getBooking(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE payment_intent_id = $1", paymentIntentID)
}

func (s *Store) getBooking(ctx context.Context, query string, arg string) (*models.Booking, error) {
	var b models.Booking
	err := s.db.GetContext(ctx, &b, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBookingsByBuyer retrieves bookings for a buyer
func (s *Store) ListBookingsByBuyer(ctx context.Context, buyerEmail string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := s.db.SelectContext(ctx, &bookings,
		"SELECT "+bookingColumns+" FROM bookings WHERE buyer_email = $1 ORDER BY created_at DESC", buyerEmail)
	return bookings, err
}

// ListBookingsByGuide retrieves bookings on a guide's packages
func (s *Store) ListBookingsByGuide(ctx context.Context, guideEmail string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := s.db.SelectContext(ctx, &bookings,
		"SELECT "+bookingColumns+" FROM bookings WHERE guide_email = $1 ORDER BY created_at DESC", guideEmail)
	return bookings, err
}

// TransitionBookingStatus updates status only when it still equals from
func (s *Store) TransitionBookingStatus(ctx context.Context, id, from, to string, at time.Time) (*models.Booking, error) {
	var b models.Booking
	err := s.db.GetContext(ctx, &b, `
		UPDATE bookings SET status = $1, updated_at = $4
		WHERE id = $2 AND status = $3
		RETURNING `+bookingColumns,
		to, id, from, at)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetBooking(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, store.ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	return &b, nil
}
