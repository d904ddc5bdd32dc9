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

const discountColumns = `id, owner_email, discount_percentage, code, valid_until, spin_date, used, used_at,
	reserved_intent_id`

// LatestSpin retrieves the most recent spin for an owner
func (s *Store) LatestSpin(ctx context.Context, ownerEmail string) (*models.DiscountRecord, error) {
	var rec models.DiscountRecord
	err := s.db.GetContext(ctx, &rec,
		"SELECT "+discountColumns+" FROM discount_records WHERE owner_email = $1 ORDER BY spin_date DESC LIMIT 1",
		ownerEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertSpin appends a record while holding a per-owner advisory lock, so the
// cooldown check and the insert cannot interleave with another spin.
func (s *Store) InsertSpin(ctx context.Context, rec *models.DiscountRecord, cooldownStart time.Time) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", rec.OwnerEmail); err != nil {
			return fmt.Errorf("failed to lock owner: %w", err)
		}

		var recent bool
		err := tx.GetContext(ctx, &recent,
			"SELECT EXISTS(SELECT 1 FROM discount_records WHERE owner_email = $1 AND spin_date > $2)",
			rec.OwnerEmail, cooldownStart)
		if err != nil {
			return fmt.Errorf("failed to check cooldown: %w", err)
		}
		if recent {
			return store.ErrSpinCooldown
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO discount_records (id, owner_email, discount_percentage, code, valid_until, spin_date, used, used_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rec.ID, rec.OwnerEmail, rec.DiscountPercentage, rec.Code, rec.ValidUntil, rec.SpinDate, rec.Used, rec.UsedAt)
		if uniqueViolation(err, "uq_discount_records_code") {
			return store.ErrDuplicateCode
		}
		if err != nil {
			return fmt.Errorf("failed to insert spin: %w", err)
		}
		return nil
	})
}

// ListSpins retrieves every spin for an owner, newest first
func (s *Store) ListSpins(ctx context.Context, ownerEmail string) ([]models.DiscountRecord, error) {
	records := []models.DiscountRecord{}
	err := s.db.SelectContext(ctx, &records,
		"SELECT "+discountColumns+" FROM discount_records WHERE owner_email = $1 ORDER BY spin_date DESC",
		ownerEmail)
	return records, err
}

// GetDiscount looks a record up by its (code, owner) pair
func (s *Store) GetDiscount(ctx context.Context, code, ownerEmail string) (*models.DiscountRecord, error) {
	var rec models.DiscountRecord
	err := s.db.GetContext(ctx, &rec,
		"SELECT "+discountColumns+" FROM discount_records WHERE code = $1 AND owner_email = $2",
		code, ownerEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkDiscountUsed redeems an unused record
func (s *Store) MarkDiscountUsed(ctx context.Context, code, ownerEmail string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE discount_records SET used = TRUE, used_at = $1 WHERE code = $2 AND owner_email = $3 AND used = FALSE",
		at, code, ownerEmail)
	if err != nil {
		return fmt.Errorf("failed to mark discount used: %w", err)
	}
	return expectRow(res)
}

// ReserveDiscount moves the reservation from heldBy to intentID on an unused record
func (s *Store) ReserveDiscount(ctx context.Context, code, ownerEmail, intentID, heldBy string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE discount_records SET reserved_intent_id = $1
		WHERE code = $2 AND owner_email = $3 AND used = FALSE AND reserved_intent_id = $4`,
		intentID, code, ownerEmail, heldBy)
	if err != nil {
		return fmt.Errorf("failed to reserve discount: %w", err)
	}
	return expectRow(res)
}

// redeemReservedTx marks the booking's discount used, provided it is held for
// the booking's payment intent.
func redeemReservedTx(ctx context.Context, tx *sqlx.Tx, b *models.Booking) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE discount_records SET used = TRUE, used_at = $1
		WHERE code = $2 AND owner_email = $3 AND used = FALSE AND reserved_intent_id = $4`,
		b.UpdatedAt, b.DiscountCode, b.BuyerEmail, b.PaymentIntentID)
	if err != nil {
		return fmt.Errorf("failed to redeem discount: %w", err)
	}
	err = expectRow(res)
	if errors.Is(err, store.ErrNotFound) {
		return store.ErrDiscountUnavailable
	}
	return err
}
