package service

import (
	"context"
	"errors"
	"strings"

	"tourpack-service/internal/apperr"
	"tourpack-service/internal/clock"
	"tourpack-service/internal/models"
	"tourpack-service/internal/store"
	"tourpack-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreatePackageRequest struct {
	Title          string `json:"title" binding:"required"`
	Description    string `json:"description"`
	Destination    string `json:"destination"`
	DurationDays   int    `json:"duration_days"`
	PriceCents     int64  `json:"price_cents"`
	AvailableSeats int    `json:"available_seats"`
	IsSeasonal     bool   `json:"is_seasonal"`
}

// UpdatePackageRequest is a partial update; nil fields are left unchanged.
// Seat and booking counters are owned by the booking flow and cannot be patched.
type UpdatePackageRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Destination  *string `json:"destination"`
	DurationDays *int    `json:"duration_days"`
	PriceCents   *int64  `json:"price_cents"`
	IsSeasonal   *bool   `json:"is_seasonal"`
}

// PackageService manages guide-owned tour packages.
type PackageService struct {
	store  store.PackageStore
	clock  clock.Clock
	logger *zap.Logger
}

func NewPackageService(packages store.PackageStore, clk clock.Clock) *PackageService {
	return &PackageService{
		store:  packages,
		clock:  clk,
		logger: util.GetLogger(),
	}
}

func validatePackageFields(title string, durationDays int, priceCents int64) error {
	if strings.TrimSpace(title) == "" {
		return apperr.Validation("title is required")
	}
	if durationDays <= 0 {
		return apperr.Validation("duration_days must be positive")
	}
	if priceCents <= 0 {
		return apperr.Validation("price_cents must be positive")
	}
	return nil
}

// Create lists a new package owned by guide.
func (s *PackageService) Create(ctx context.Context, guide string, req *CreatePackageRequest) (*models.TourPackage, error) {
	ctx, span := util.StartSpan(ctx, "PackageService.Create")
	defer span.End()

	if guide == "" {
		return nil, apperr.Authentication("authentication required")
	}
	if err := validatePackageFields(req.Title, req.DurationDays, req.PriceCents); err != nil {
		return nil, err
	}
	if req.AvailableSeats < 0 {
		return nil, apperr.Validation("available_seats cannot be negative")
	}

	now := s.clock.Now()
	pkg := &models.TourPackage{
		ID:             uuid.New().String(),
		GuideEmail:     guide,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Destination:    req.Destination,
		DurationDays:   req.DurationDays,
		PriceCents:     req.PriceCents,
		AvailableSeats: req.AvailableSeats,
		IsSeasonal:     req.IsSeasonal,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.CreatePackage(ctx, pkg); err != nil {
		return nil, apperr.Upstream(err, "failed to create package")
	}

	s.logger.Info("Package created", zap.String("package_id", pkg.ID), zap.String("guide", guide))
	return pkg, nil
}

// Get returns a package by id. Packages are publicly readable.
func (s *PackageService) Get(ctx context.Context, id string) (*models.TourPackage, error) {
	pkg, err := s.store.GetPackage(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("package not found")
	}
	if err != nil {
		return nil, apperr.Upstream(err, "failed to load package")
	}
	return pkg, nil
}

// ListByGuide returns the caller's packages. Asking for another guide's
// packages is an authorization failure, not an empty list.
func (s *PackageService) ListByGuide(ctx context.Context, caller, guideEmail string) ([]models.TourPackage, error) {
	if err := requireSelf(caller, guideEmail); err != nil {
		return nil, err
	}
	pkgs, err := s.store.ListPackagesByGuide(ctx, caller)
	if err != nil {
		return nil, apperr.Upstream(err, "failed to list packages")
	}
	return pkgs, nil
}

// Update applies a partial update to a package owned by caller.
func (s *PackageService) Update(ctx context.Context, caller, id string, req *UpdatePackageRequest) (*models.TourPackage, error) {
	ctx, span := util.StartSpan(ctx, "PackageService.Update")
	defer span.End()

	pkg, err := s.ownedPackage(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		pkg.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		pkg.Description = *req.Description
	}
	if req.Destination != nil {
		pkg.Destination = *req.Destination
	}
	if req.DurationDays != nil {
		pkg.DurationDays = *req.DurationDays
	}
	if req.PriceCents != nil {
		pkg.PriceCents = *req.PriceCents
	}
	if req.IsSeasonal != nil {
		pkg.IsSeasonal = *req.IsSeasonal
	}
	if err := validatePackageFields(pkg.Title, pkg.DurationDays, pkg.PriceCents); err != nil {
		return nil, err
	}
	pkg.UpdatedAt = s.clock.Now()

	err = s.store.UpdatePackage(ctx, pkg)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("package not found")
	}
	if err != nil {
		return nil, apperr.Upstream(err, "failed to update package")
	}
	return pkg, nil
}

// Delete removes a package owned by caller. Packages with bookings are kept.
func (s *PackageService) Delete(ctx context.Context, caller, id string) error {
	if _, err := s.ownedPackage(ctx, caller, id); err != nil {
		return err
	}

	err := s.store.DeletePackage(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("package not found")
	case errors.Is(err, store.ErrPackageInUse):
		return apperr.Conflict("package has bookings and cannot be deleted")
	default:
		return apperr.Upstream(err, "failed to delete package")
	}

	s.logger.Info("Package deleted", zap.String("package_id", id), zap.String("guide", caller))
	return nil
}

func (s *PackageService) ownedPackage(ctx context.Context, caller, id string) (*models.TourPackage, error) {
	if caller == "" {
		return nil, apperr.Authentication("authentication required")
	}
	pkg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if pkg.GuideEmail != caller {
		return nil, apperr.Forbidden("only the package owner may modify it")
	}
	return pkg, nil
}

// requireSelf rejects requests that name an identity other than the caller.
func requireSelf(caller, requested string) error {
	if caller == "" {
		return apperr.Authentication("authentication required")
	}
	if !strings.EqualFold(strings.TrimSpace(requested), caller) {
		return apperr.Forbidden("email does not match authenticated user")
	}
	return nil
}
