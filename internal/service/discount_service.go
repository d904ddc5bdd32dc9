package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"tourpack-service/internal/apperr"
	"tourpack-service/internal/broker"
	"tourpack-service/internal/clock"
	"tourpack-service/internal/models"
	"tourpack-service/internal/store"
	"tourpack-service/internal/util"

	"go.uber.org/zap"
)

// Validation failure reasons returned to clients.
const (
	ReasonNotFound        = "not found"
	ReasonAlreadyUsed     = "already used"
	ReasonExpired         = "expired"
	ReasonPackageNotFound = "package not found"
)

// DiscountSummary is the client-safe view of a discount record.
type DiscountSummary struct {
	Code               string    `json:"code"`
	DiscountPercentage int       `json:"discount_percentage"`
	ValidUntil         time.Time `json:"valid_until"`
}

type ValidationResult struct {
	Valid    bool             `json:"valid"`
	Reason   string           `json:"reason,omitempty"`
	Discount *DiscountSummary `json:"discount,omitempty"`
}

// DiscountService validates and redeems spin discount codes.
type DiscountService struct {
	discounts store.DiscountStore
	packages  store.PackageStore
	events    EventPublisher
	clock     clock.Clock
	logger    *zap.Logger
}

// NewDiscountService creates a discount service. events may be nil.
func NewDiscountService(
	discounts store.DiscountStore,
	packages store.PackageStore,
	events EventPublisher,
	clk clock.Clock,
) *DiscountService {
	return &DiscountService{
		discounts: discounts,
		packages:  packages,
		events:    events,
		clock:     clk,
		logger:    util.GetLogger(),
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks whether owner may apply code to packageID. Invalid codes
// are a normal outcome and reported through the result, not an error.
func (s *DiscountService) Validate(ctx context.Context, owner, code, packageID string) (*ValidationResult, error) {
	ctx, span := util.StartSpan(ctx, "DiscountService.Validate")
	defer span.End()

	if owner == "" {
		return nil, apperr.Authentication("authentication required")
	}
	code = normalizeCode(code)
	if code == "" || packageID == "" {
		return nil, apperr.Validation("code and package_id are required")
	}

	rec, err := s.discounts.GetDiscount(ctx, code, owner)
	if errors.Is(err, store.ErrNotFound) {
		return s.invalid(ReasonNotFound), nil
	}
	if err != nil {
		return nil, apperr.Upstream(err, "failed to load discount")
	}

	if rec.Used {
		return s.invalid(ReasonAlreadyUsed), nil
	}
	if !rec.ValidUntil.After(s.clock.Now()) {
		return s.invalid(ReasonExpired), nil
	}

	if _, err := s.packages.GetPackage(ctx, packageID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.invalid(ReasonPackageNotFound), nil
		}
		return nil, apperr.Upstream(err, "failed to load package")
	}

	util.DiscountValidationsTotal.WithLabelValues("valid").Inc()
	return &ValidationResult{
		Valid: true,
		Discount: &DiscountSummary{
			Code:               rec.Code,
			DiscountPercentage: rec.DiscountPercentage,
			ValidUntil:         rec.ValidUntil,
		},
	}, nil
}

func (s *DiscountService) invalid(reason string) *ValidationResult {
	util.DiscountValidationsTotal.WithLabelValues(reason).Inc()
	return &ValidationResult{Valid: false, Reason: reason}
}

// MarkUsed redeems code for owner. It fails with NotFound unless an unused
// record exists for that pair.
func (s *DiscountService) MarkUsed(ctx context.Context, owner, code string) error {
	ctx, span := util.StartSpan(ctx, "DiscountService.MarkUsed")
	defer span.End()

	if owner == "" {
		return apperr.Authentication("authentication required")
	}
	code = normalizeCode(code)

	err := s.discounts.MarkDiscountUsed(ctx, code, owner, s.clock.Now())
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("discount code not found or already used")
	}
	if err != nil {
		return apperr.Upstream(err, "failed to mark discount used")
	}

	s.redeemed(ctx, owner, code)
	return nil
}

// Holder returns the payment intent code is reserved for, or "" when it is free.
func (s *DiscountService) Holder(ctx context.Context, owner, code string) (string, error) {
	rec, err := s.discounts.GetDiscount(ctx, normalizeCode(code), owner)
	if errors.Is(err, store.ErrNotFound) {
		return "", apperr.NotFound("discount code not found")
	}
	if err != nil {
		return "", apperr.Upstream(err, "failed to load discount")
	}
	return rec.ReservedIntentID, nil
}

// Reserve hands code to intentID, provided heldBy still holds it. Only the
// holding intent can redeem the code when its booking is confirmed.
func (s *DiscountService) Reserve(ctx context.Context, owner, code, intentID, heldBy string) error {
	err := s.discounts.ReserveDiscount(ctx, normalizeCode(code), owner, intentID, heldBy)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Conflict("discount code was claimed by another payment")
	}
	if err != nil {
		return apperr.Upstream(err, "failed to reserve discount")
	}
	return nil
}

// redeemed records a redemption that has already been stored.
func (s *DiscountService) redeemed(ctx context.Context, owner, code string) {
	util.DiscountsRedeemedTotal.Inc()
	s.logger.Info("Discount redeemed", zap.String("owner", owner), zap.String("code", code))

	if s.events != nil {
		event := &models.DiscountRedeemedEvent{
			BaseEvent:  broker.NewBaseEvent(models.EventTypeDiscountRedeemed),
			OwnerEmail: owner,
			Code:       code,
		}
		if err := s.events.PublishDiscountRedeemed(ctx, event); err != nil {
			s.logger.Error("Failed to publish DiscountRedeemed event", zap.Error(err))
		}
	}
}

// Apply reduces amountCents by percentage. The discount is truncated to whole cents.
func Apply(amountCents int64, percentage int) int64 {
	if percentage <= 0 {
		return amountCents
	}
	if percentage >= 100 {
		return 0
	}
	return amountCents - amountCents*int64(percentage)/100
}
