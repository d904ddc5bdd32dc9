package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	mathrand "math/rand"
	"strconv"
	"time"

	"tourpack-service/internal/apperr"
	"tourpack-service/internal/broker"
	"tourpack-service/internal/clock"
	"tourpack-service/internal/models"
	"tourpack-service/internal/store"
	"tourpack-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	codePrefix      = "SPIN"
	codeSuffixLen   = 6
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts = 5
)

type spinTier struct {
	Percentage int
	Weight     int
}

// Weights sum to 100.
var spinTiers = []spinTier{
	{Percentage: 5, Weight: 30},
	{Percentage: 10, Weight: 25},
	{Percentage: 15, Weight: 20},
	{Percentage: 20, Weight: 15},
	{Percentage: 25, Weight: 7},
	{Percentage: 50, Weight: 3},
}

// selectTier walks the tiers accumulating weight and returns the first tier
// whose cumulative weight reaches draw. A draw outside [0,100) falls back to
// the first tier.
func selectTier(draw float64) int {
	cumulative := 0
	for _, t := range spinTiers {
		cumulative += t.Weight
		if float64(cumulative) >= draw {
			return t.Percentage
		}
	}
	return spinTiers[0].Percentage
}

// generateCode returns SPIN followed by six uppercase alphanumerics.
func generateCode() (string, error) {
	buf := make([]byte, codeSuffixLen)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return codePrefix + string(buf), nil
}

type SpinConfig struct {
	Cooldown time.Duration
	Validity time.Duration
}

// SpinService issues discount codes, at most one per owner per cooldown window.
type SpinService struct {
	store    store.DiscountStore
	cache    SpinCache
	events   EventPublisher
	clock    clock.Clock
	cooldown time.Duration
	validity time.Duration
	logger   *zap.Logger

	draw    func() float64
	newCode func() (string, error)
}

// NewSpinService creates a spin service. cache and events may be nil.
func NewSpinService(
	discounts store.DiscountStore,
	cache SpinCache,
	events EventPublisher,
	clk clock.Clock,
	cfg SpinConfig,
) *SpinService {
	return &SpinService{
		store:    discounts,
		cache:    cache,
		events:   events,
		clock:    clk,
		cooldown: cfg.Cooldown,
		validity: cfg.Validity,
		logger:   util.GetLogger(),
		draw:     func() float64 { return mathrand.Float64() * 100 },
		newCode:  generateCode,
	}
}

// RequestSpin draws a tier and records a new discount for owner, or returns
// *apperr.CooldownError if the owner spun within the cooldown window.
func (s *SpinService) RequestSpin(ctx context.Context, owner string) (*models.DiscountRecord, error) {
	ctx, span := util.StartSpan(ctx, "SpinService.RequestSpin")
	defer span.End()

	if owner == "" {
		return nil, apperr.Authentication("authentication required")
	}

	now := s.clock.Now()
	if last, ok := s.cachedLastSpin(ctx, owner); ok {
		if err := s.cooldownError(last, now); err != nil {
			util.SpinsRejectedTotal.WithLabelValues("cooldown").Inc()
			return nil, err
		}
	}

	percentage := selectTier(s.draw())

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, apperr.Upstream(err, "failed to generate discount code")
		}

		rec := &models.DiscountRecord{
			ID:                 uuid.New().String(),
			OwnerEmail:         owner,
			DiscountPercentage: percentage,
			Code:               code,
			ValidUntil:         now.Add(s.validity),
			SpinDate:           now,
		}

		err = s.store.InsertSpin(ctx, rec, now.Add(-s.cooldown))
		switch {
		case err == nil:
			s.afterSpin(ctx, rec)
			return rec, nil

		case errors.Is(err, store.ErrDuplicateCode):
			s.logger.Warn("Discount code collision, regenerating",
				zap.String("owner", owner),
				zap.Int("attempt", attempt))
			continue

		case errors.Is(err, store.ErrSpinCooldown):
			util.SpinsRejectedTotal.WithLabelValues("cooldown").Inc()
			return nil, s.cooldownFromStore(ctx, owner, now)

		default:
			util.SpinsRejectedTotal.WithLabelValues("store_error").Inc()
			s.logger.Error("Failed to record spin", zap.String("owner", owner), zap.Error(err))
			return nil, apperr.Upstream(err, "failed to record spin")
		}
	}

	util.SpinsRejectedTotal.WithLabelValues("code_exhausted").Inc()
	return nil, apperr.Upstream(errors.New("discount code space exhausted"), "failed to record spin")
}

func (s *SpinService) afterSpin(ctx context.Context, rec *models.DiscountRecord) {
	util.SpinsIssuedTotal.WithLabelValues(strconv.Itoa(rec.DiscountPercentage)).Inc()
	s.logger.Info("Spin issued",
		zap.String("owner", rec.OwnerEmail),
		zap.Int("discount_percentage", rec.DiscountPercentage),
		zap.Time("valid_until", rec.ValidUntil))

	if s.cache != nil {
		if err := s.cache.SetLastSpin(ctx, rec.OwnerEmail, rec.SpinDate, s.cooldown); err != nil {
			s.logger.Warn("Failed to cache spin time", zap.String("owner", rec.OwnerEmail), zap.Error(err))
		}
	}

	if s.events != nil {
		event := &models.SpinIssuedEvent{
			BaseEvent:          broker.NewBaseEvent(models.EventTypeSpinIssued),
			OwnerEmail:         rec.OwnerEmail,
			DiscountPercentage: rec.DiscountPercentage,
			ValidUntil:         rec.ValidUntil,
		}
		if err := s.events.PublishSpinIssued(ctx, event); err != nil {
			s.logger.Error("Failed to publish SpinIssued event", zap.Error(err))
		}
	}
}

func (s *SpinService) cachedLastSpin(ctx context.Context, owner string) (time.Time, bool) {
	if s.cache == nil {
		return time.Time{}, false
	}
	last, ok, err := s.cache.GetLastSpin(ctx, owner)
	if err != nil {
		util.SpinCacheLookupsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("Spin cache lookup failed, falling back to store", zap.Error(err))
		return time.Time{}, false
	}
	if !ok {
		util.SpinCacheLookupsTotal.WithLabelValues("miss").Inc()
		return time.Time{}, false
	}
	util.SpinCacheLookupsTotal.WithLabelValues("hit").Inc()
	return last, true
}

// cooldownError returns nil once at least the cooldown has passed since last.
func (s *SpinService) cooldownError(last, now time.Time) error {
	next := last.Add(s.cooldown)
	if !now.Before(next) {
		return nil
	}
	return &apperr.CooldownError{Remaining: next.Sub(now), NextSpinAt: next}
}

func (s *SpinService) cooldownFromStore(ctx context.Context, owner string, now time.Time) error {
	last, err := s.store.LatestSpin(ctx, owner)
	if err != nil {
		return apperr.Upstream(err, "failed to load latest spin")
	}
	if cerr := s.cooldownError(last.SpinDate, now); cerr != nil {
		return cerr
	}
	// a concurrent spin landed between our clock read and the insert
	return &apperr.CooldownError{Remaining: s.cooldown, NextSpinAt: now.Add(s.cooldown)}
}

// Eligibility describes whether owner may spin now.
type Eligibility struct {
	Eligible       bool                   `json:"eligible"`
	HoursRemaining int                    `json:"hours_remaining"`
	NextSpinAt     *time.Time             `json:"next_spin_at,omitempty"`
	LastSpin       *models.DiscountRecord `json:"last_spin,omitempty"`
}

// Eligibility reports the cooldown state for owner from the store.
func (s *SpinService) Eligibility(ctx context.Context, owner string) (*Eligibility, error) {
	ctx, span := util.StartSpan(ctx, "SpinService.Eligibility")
	defer span.End()

	if owner == "" {
		return nil, apperr.Authentication("authentication required")
	}

	last, err := s.store.LatestSpin(ctx, owner)
	if errors.Is(err, store.ErrNotFound) {
		return &Eligibility{Eligible: true}, nil
	}
	if err != nil {
		return nil, apperr.Upstream(err, "failed to load latest spin")
	}

	out := &Eligibility{Eligible: true, LastSpin: last}
	var cerr *apperr.CooldownError
	if errors.As(s.cooldownError(last.SpinDate, s.clock.Now()), &cerr) {
		next := cerr.NextSpinAt
		out.Eligible = false
		out.HoursRemaining = cerr.HoursRemaining()
		out.NextSpinAt = &next
	}
	return out, nil
}

// History returns every spin recorded for owner, newest first.
func (s *SpinService) History(ctx context.Context, owner string) ([]models.DiscountRecord, error) {
	if owner == "" {
		return nil, apperr.Authentication("authentication required")
	}
	records, err := s.store.ListSpins(ctx, owner)
	if err != nil {
		return nil, apperr.Upstream(err, "failed to list spins")
	}
	return records, nil
}
