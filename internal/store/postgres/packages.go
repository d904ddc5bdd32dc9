package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tourpack-service/internal/models"
	"tourpack-service/internal/store"
)

const packageColumns = `id, guide_email, title, description, destination, duration_days, price_cents,
	available_seats, booking_count, is_seasonal, created_at, updated_at`

// CreatePackage inserts a new tour package
func (s *Store) CreatePackage(ctx context.Context, pkg *models.TourPackage) error {
	query := `
		INSERT INTO tour_packages (id, guide_email, title, description, destination, duration_days,
			price_cents, available_seats, booking_count, is_seasonal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.db.ExecContext(ctx, query,
		pkg.ID, pkg.GuideEmail, pkg.Title, pkg.Description, pkg.Destination, pkg.DurationDays,
		pkg.PriceCents, pkg.AvailableSeats, pkg.BookingCount, pkg.IsSeasonal, pkg.CreatedAt, pkg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert package: %w", err)
	}
	return nil
}

// GetPackage retrieves a package by ID
func (s *Store) GetPackage(ctx context.Context, id string) (*models.TourPackage, error) {
	var pkg models.TourPackage
	err := s.db.GetContext(ctx, &pkg, "SELECT "+packageColumns+" FROM tour_packages WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// ListPackagesByGuide retrieves packages owned by a guide, newest first
func (s *Store) ListPackagesByGuide(ctx context.Context, guideEmail string) ([]models.TourPackage, error) {
	packages := []models.TourPackage{}
	err := s.db.SelectContext(ctx, &packages,
		"SELECT "+packageColumns+" FROM tour_packages WHERE guide_email = $1 ORDER BY created_at DESC", guideEmail)
	return packages, err
}

// UpdatePackage writes guide-editable fields only
func (s *Store) UpdatePackage(ctx context.Context, pkg *models.TourPackage) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tour_packages
		SET title = $1, description = $2, destination = $3, duration_days = $4,
			price_cents = $5, is_seasonal = $6, updated_at = $7
		WHERE id = $8`,
		pkg.Title, pkg.Description, pkg.Destination, pkg.DurationDays,
		pkg.PriceCents, pkg.IsSeasonal, pkg.UpdatedAt, pkg.ID)
	if err != nil {
		return fmt.Errorf("failed to update package: %w", err)
	}
	return expectRow(res)
}

// DeletePackage removes a package. Bookings hold a restricting foreign key on it.
func (s *Store) DeletePackage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tour_packages WHERE id = $1", id)
	if foreignKeyViolation(err, "bookings_package_id_fkey") {
		return store.ErrPackageInUse
	}
	if err != nil {
		return fmt.Errorf("failed to delete package: %w", err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
