package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"tourpack-service/internal/apperr"
	"tourpack-service/internal/broker"
	"tourpack-service/internal/clock"
	"tourpack-service/internal/models"
	"tourpack-service/internal/payment"
	"tourpack-service/internal/store"
	"tourpack-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentIntentRequest struct {
	PackageID    string `json:"package_id" binding:"required"`
	SeatCount    int    `json:"seat_count" binding:"required,min=1"`
	DiscountCode string `json:"discount_code"`
}

type PaymentIntentResponse struct {
	ClientSecret       string `json:"client_secret"`
	PaymentIntentID    string `json:"payment_intent_id"`
	AmountCents        int64  `json:"amount_cents"`
	Currency           string `json:"currency"`
	DiscountPercentage int    `json:"discount_percentage"`
}

type ConfirmBookingRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
	PackageID       string `json:"package_id" binding:"required"`
	SeatCount       int    `json:"seat_count" binding:"required,min=1"`
	DiscountCode    string `json:"discount_code"`
}

type PendingBookingRequest struct {
	PackageID  string `json:"package_id" binding:"required"`
	BuyerEmail string `json:"buyer_email" binding:"required"`
	SeatCount  int    `json:"seat_count" binding:"required,min=1"`
}

type BookingConfig struct {
	Currency       string
	ConfirmLockTTL time.Duration
}

// BookingService coordinates payment, inventory and booking records.
type BookingService struct {
	packages  store.PackageStore
	bookings  store.BookingStore
	discounts *DiscountService
	gateway   payment.Gateway
	locker    Locker
	events    EventPublisher
	clock     clock.Clock
	currency  string
	lockTTL   time.Duration
	logger    *zap.Logger
}

// NewBookingService creates a booking service. locker and events may be nil.
func NewBookingService(
	packages store.PackageStore,
	bookings store.BookingStore,
	discounts *DiscountService,
	gateway payment.Gateway,
	locker Locker,
	events EventPublisher,
	clk clock.Clock,
	cfg BookingConfig,
) *BookingService {
	return &BookingService{
		packages:  packages,
		bookings:  bookings,
		discounts: discounts,
		gateway:   gateway,
		locker:    locker,
		events:    events,
		clock:     clk,
		currency:  cfg.Currency,
		lockTTL:   cfg.ConfirmLockTTL,
		logger:    util.GetLogger(),
	}
}

func (s *BookingService) loadPackage(ctx context.Context, id string) (*models.TourPackage, error) {
	pkg, err := s.packages.GetPackage(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("package not found")
	}
	if err != nil {
		return nil, apperr.Upstream(err, "failed to load package")
	}
	return pkg, nil
}

// CreatePaymentIntent prices a booking server side, applies an optional
// discount and opens a payment intent with the gateway.
func (s *BookingService) CreatePaymentIntent(ctx context.Context, buyer string, req *PaymentIntentRequest) (*PaymentIntentResponse, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.CreatePaymentIntent")
	defer span.End()

	if buyer == "" {
		return nil, apperr.Authentication("authentication required")
	}
	if req.SeatCount <= 0 {
		return nil, apperr.Validation("seat_count must be positive")
	}

	pkg, err := s.loadPackage(ctx, req.PackageID)
	if err != nil {
		return nil, err
	}
	if req.SeatCount > pkg.AvailableSeats {
		return nil, &apperr.InsufficientInventoryError{Requested: req.SeatCount, Available: pkg.AvailableSeats}
	}

	amount := pkg.PriceCents * int64(req.SeatCount)
	percentage := 0
	code := normalizeCode(req.DiscountCode)
	if code != "" {
		res, err := s.discounts.Validate(ctx, buyer, code, pkg.ID)
		if err != nil {
			return nil, err
		}
		if !res.Valid {
			return nil, apperr.Validationf("discount code %s", res.Reason)
		}
		percentage = res.Discount.DiscountPercentage
		amount = Apply(amount, percentage)
	}

	start := time.Now()
	intent, err := s.gateway.CreateIntent(ctx, payment.CreateIntentRequest{
		AmountCents: amount,
		Currency:    s.currency,
		Metadata: map[string]string{
			payment.MetaPackageID:    pkg.ID,
			payment.MetaBuyerEmail:   buyer,
			payment.MetaSeatCount:    strconv.Itoa(req.SeatCount),
			payment.MetaDiscountCode: code,
		},
	})
	util.PaymentGatewayLatency.WithLabelValues("create_intent").Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("Failed to create payment intent", zap.String("package_id", pkg.ID), zap.Error(err))
		return nil, apperr.Upstream(err, "failed to create payment intent")
	}

	if code != "" {
		if err := s.reserveDiscount(ctx, buyer, code, intent.ID); err != nil {
			if _, cerr := s.gateway.CancelIntent(context.WithoutCancel(ctx), intent.ID); cerr != nil {
				s.logger.Warn("Failed to cancel unreserved payment intent",
					zap.String("payment_intent_id", intent.ID), zap.Error(cerr))
			}
			return nil, err
		}
	}

	util.PaymentIntentsCreatedTotal.Inc()
	s.logger.Info("Payment intent created",
		zap.String("payment_intent_id", intent.ID),
		zap.String("package_id", pkg.ID),
		zap.Int64("amount_cents", amount),
		zap.Int("discount_percentage", percentage))

	return &PaymentIntentResponse{
		ClientSecret:       intent.ClientSecret,
		PaymentIntentID:    intent.ID,
		AmountCents:        amount,
		Currency:           s.currency,
		DiscountPercentage: percentage,
	}, nil
}

// reserveDiscount hands code to intentID. A code already held by another
// intent moves only once that intent is canceled at the gateway, so at most
// one intent priced with the code can ever be paid.
func (s *BookingService) reserveDiscount(ctx context.Context, buyer, code, intentID string) error {
	heldBy, err := s.discounts.Holder(ctx, buyer, code)
	if err != nil {
		return err
	}
	if heldBy != "" {
		if err := s.releaseIntent(ctx, heldBy); err != nil {
			return err
		}
	}
	return s.discounts.Reserve(ctx, buyer, code, intentID, heldBy)
}

// releaseIntent cancels a previous intent holding a discount code.
func (s *BookingService) releaseIntent(ctx context.Context, id string) error {
	prev, err := s.gateway.RetrieveIntent(ctx, id)
	if err != nil {
		return apperr.Upstream(err, "failed to check payment holding discount code")
	}
	switch prev.Status {
	case payment.StatusCanceled:
		return nil
	case payment.StatusSucceeded:
		return apperr.Validationf("discount code %s", ReasonAlreadyUsed)
	}

	if _, err := s.gateway.CancelIntent(ctx, id); err != nil {
		s.logger.Warn("Failed to cancel payment intent holding discount",
			zap.String("payment_intent_id", id), zap.Error(err))
		return apperr.Conflict("discount code is held by a payment in progress")
	}
	s.logger.Info("Canceled payment intent to move its discount code", zap.String("payment_intent_id", id))
	return nil
}

// ConfirmBooking turns a succeeded payment intent into a confirmed booking.
// It is idempotent on the payment intent id: replays return the booking
// created by the first successful call.
func (s *BookingService) ConfirmBooking(ctx context.Context, buyer string, req *ConfirmBookingRequest) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.ConfirmBooking")
	defer span.End()

	if buyer == "" {
		return nil, apperr.Authentication("authentication required")
	}
	if req.SeatCount <= 0 {
		return nil, apperr.Validation("seat_count must be positive")
	}

	start := time.Now()
	defer func() {
		util.BookingConfirmLatency.Observe(time.Since(start).Seconds())
	}()

	if existing, err := s.existingBooking(ctx, buyer, req.PaymentIntentID); existing != nil || err != nil {
		return existing, err
	}

	if s.locker != nil {
		lockKey := "confirm:" + req.PaymentIntentID
		token, ok, err := s.locker.AcquireLock(ctx, lockKey, s.lockTTL)
		switch {
		case err != nil:
			// the unique payment intent index still prevents duplicates
			s.logger.Warn("Confirm lock unavailable", zap.String("payment_intent_id", req.PaymentIntentID), zap.Error(err))
		case !ok:
			util.BookingsFailedTotal.WithLabelValues("in_progress").Inc()
			return nil, apperr.Conflict("payment confirmation already in progress")
		default:
			defer func() {
				if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), lockKey, token); err != nil {
					s.logger.Warn("Failed to release confirm lock", zap.String("key", lockKey), zap.Error(err))
				}
			}()
			if existing, err := s.existingBooking(ctx, buyer, req.PaymentIntentID); existing != nil || err != nil {
				return existing, err
			}
		}
	}

	gatewayStart := time.Now()
	intent, err := s.gateway.RetrieveIntent(ctx, req.PaymentIntentID)
	util.PaymentGatewayLatency.WithLabelValues("retrieve_intent").Observe(time.Since(gatewayStart).Seconds())
	if err != nil {
		util.BookingsFailedTotal.WithLabelValues("gateway_error").Inc()
		s.logger.Error("Failed to retrieve payment intent", zap.String("payment_intent_id", req.PaymentIntentID), zap.Error(err))
		return nil, apperr.Upstream(err, "failed to retrieve payment intent")
	}
	if intent.Status != payment.StatusSucceeded {
		util.BookingsFailedTotal.WithLabelValues("payment_not_succeeded").Inc()
		return nil, apperr.PaymentNotSucceeded(intent.Status)
	}
	if err := checkIntentMetadata(intent, buyer, req); err != nil {
		util.BookingsFailedTotal.WithLabelValues("intent_mismatch").Inc()
		return nil, err
	}

	pkg, err := s.loadPackage(ctx, req.PackageID)
	if err != nil {
		return nil, err
	}
	if req.SeatCount > pkg.AvailableSeats {
		util.BookingsFailedTotal.WithLabelValues("insufficient_seats").Inc()
		return nil, &apperr.InsufficientInventoryError{Requested: req.SeatCount, Available: pkg.AvailableSeats}
	}

	code := intent.Metadata[payment.MetaDiscountCode]
	if _, tagged := intent.Metadata[payment.MetaPackageID]; !tagged {
		code = normalizeCode(req.DiscountCode)
	}

	now := s.clock.Now()
	booking := &models.Booking{
		ID:              uuid.New().String(),
		PackageID:       pkg.ID,
		GuideEmail:      pkg.GuideEmail,
		BuyerEmail:      buyer,
		SeatCount:       req.SeatCount,
		PaymentStatus:   models.PaymentStatusPaid,
		Status:          models.BookingStatusConfirmed,
		PaymentIntentID: intent.ID,
		AmountCents:     intent.AmountCents,
		Currency:        intent.Currency,
		DiscountCode:    code,
		PaidAt:          &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.bookings.ConfirmBooking(ctx, booking)
	if errors.Is(err, store.ErrDiscountUnavailable) {
		// paid intents still get their seats
		s.logger.Warn("Discount not reserved for this payment, booking without it",
			zap.String("payment_intent_id", intent.ID),
			zap.String("code", code))
		booking.DiscountCode = ""
		err = s.bookings.ConfirmBooking(ctx, booking)
	}
	var seatsErr *store.InsufficientSeatsError
	switch {
	case err == nil:
	case errors.As(err, &seatsErr):
		util.BookingsFailedTotal.WithLabelValues("insufficient_seats").Inc()
		return nil, &apperr.InsufficientInventoryError{Requested: req.SeatCount, Available: seatsErr.Available}
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("package not found")
	case errors.Is(err, store.ErrDuplicatePayment):
		existing, err := s.existingBooking(ctx, buyer, req.PaymentIntentID)
		if existing == nil && err == nil {
			err = apperr.Conflict("payment already used for another booking")
		}
		return existing, err
	default:
		util.BookingsFailedTotal.WithLabelValues("store_error").Inc()
		s.logger.Error("Failed to confirm booking", zap.String("payment_intent_id", intent.ID), zap.Error(err))
		return nil, apperr.Upstream(err, "failed to confirm booking")
	}

	util.BookingsCreatedTotal.WithLabelValues(models.BookingStatusConfirmed).Inc()
	util.SeatsBookedTotal.Add(float64(booking.SeatCount))
	s.logger.Info("Booking confirmed",
		zap.String("booking_id", booking.ID),
		zap.String("package_id", booking.PackageID),
		zap.Int("seat_count", booking.SeatCount),
		zap.String("payment_intent_id", booking.PaymentIntentID))

	if booking.DiscountCode != "" {
		s.discounts.redeemed(ctx, buyer, booking.DiscountCode)
	}

	s.publish(ctx, models.EventTypeBookingConfirmed, booking)
	return booking, nil
}

// existingBooking returns the booking already recorded for a payment intent,
// or nil if there is none.
func (s *BookingService) existingBooking(ctx context.Context, buyer, paymentIntentID string) (*models.Booking, error) {
	existing, err := s.bookings.GetBookingByPaymentIntent(ctx, paymentIntentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Upstream(err, "failed to check existing booking")
	}
	if existing.BuyerEmail != buyer {
		return nil, apperr.Forbidden("payment intent belongs to another buyer")
	}
	s.logger.Info("Duplicate confirmation, returning existing booking",
		zap.String("payment_intent_id", paymentIntentID),
		zap.String("booking_id", existing.ID))
	return existing, nil
}

func checkIntentMetadata(intent *payment.PaymentIntent, buyer string, req *ConfirmBookingRequest) error {
	if v := intent.Metadata[payment.MetaBuyerEmail]; v != "" && v != buyer {
		return apperr.Forbidden("payment intent belongs to another buyer")
	}
	if v := intent.Metadata[payment.MetaPackageID]; v != "" && v != req.PackageID {
		return apperr.Validation("payment intent was created for a different package")
	}
	if v := intent.Metadata[payment.MetaSeatCount]; v != "" && v != strconv.Itoa(req.SeatCount) {
		return apperr.Validation("payment intent was created for a different seat count")
	}
	return nil
}

// CreatePendingBooking records an unpaid booking for the caller. Seats are
// not reserved; only the package booking count moves.
func (s *BookingService) CreatePendingBooking(ctx context.Context, caller string, req *PendingBookingRequest) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.CreatePendingBooking")
	defer span.End()

	if err := requireSelf(caller, req.BuyerEmail); err != nil {
		return nil, err
	}
	if req.SeatCount <= 0 {
		return nil, apperr.Validation("seat_count must be positive")
	}

	pkg, err := s.loadPackage(ctx, req.PackageID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	booking := &models.Booking{
		ID:            uuid.New().String(),
		PackageID:     pkg.ID,
		GuideEmail:    pkg.GuideEmail,
		BuyerEmail:    caller,
		SeatCount:     req.SeatCount,
		PaymentStatus: models.PaymentStatusUnpaid,
		Status:        models.BookingStatusPending,
		AmountCents:   pkg.PriceCents * int64(req.SeatCount),
		Currency:      s.currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.bookings.CreatePendingBooking(ctx, booking)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("package not found")
	}
	if err != nil {
		return nil, apperr.Upstream(err, "failed to create booking")
	}

	util.BookingsCreatedTotal.WithLabelValues(models.BookingStatusPending).Inc()
	s.logger.Info("Pending booking created", zap.String("booking_id", booking.ID), zap.String("package_id", pkg.ID))

	s.publish(ctx, models.EventTypeBookingCreated, booking)
	return booking, nil
}

// CompleteBooking moves a confirmed booking to completed. Only the guide who
// owns the package may do this.
func (s *BookingService) CompleteBooking(ctx context.Context, caller, id string) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.CompleteBooking")
	defer span.End()

	if caller == "" {
		return nil, apperr.Authentication("authentication required")
	}

	booking, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.GuideEmail != caller {
		return nil, apperr.Forbidden("only the package guide may complete this booking")
	}
	if booking.Status != models.BookingStatusConfirmed {
		return nil, apperr.Validationf("booking is %s, only confirmed bookings can be completed", booking.Status)
	}

	updated, err := s.bookings.TransitionBookingStatus(ctx, id,
		models.BookingStatusConfirmed, models.BookingStatusCompleted, s.clock.Now())
	switch {
	case err == nil:
	case errors.Is(err, store.ErrStatusConflict):
		return nil, apperr.Validation("booking is no longer confirmed")
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("booking not found")
	default:
		return nil, apperr.Upstream(err, "failed to complete booking")
	}

	util.BookingsCompletedTotal.Inc()
	s.logger.Info("Booking completed", zap.String("booking_id", id), zap.String("guide", caller))

	s.publish(ctx, models.EventTypeBookingCompleted, updated)
	return updated, nil
}

// GetBooking returns a booking visible to its buyer or the package guide.
func (s *BookingService) GetBooking(ctx context.Context, caller, id string) (*models.Booking, error) {
	if caller == "" {
		return nil, apperr.Authentication("authentication required")
	}
	booking, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.BuyerEmail != caller && booking.GuideEmail != caller {
		return nil, apperr.Forbidden("not allowed to view this booking")
	}
	return booking, nil
}

// ListBuyerBookings returns bookings made by the caller.
func (s *BookingService) ListBuyerBookings(ctx context.Context, caller, email string) ([]models.Booking, error) {
	if err := requireSelf(caller, email); err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListBookingsByBuyer(ctx, caller)
	if err != nil {
		return nil, apperr.Upstream(err, "failed to list bookings")
	}
	return bookings, nil
}

// ListGuideBookings returns bookings on the caller's packages.
func (s *BookingService) ListGuideBookings(ctx context.Context, caller, email string) ([]models.Booking, error) {
	if err := requireSelf(caller, email); err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListBookingsByGuide(ctx, caller)
	if err != nil {
		return nil, apperr.Upstream(err, "failed to list bookings")
	}
	return bookings, nil
}

func (s *BookingService) loadBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.bookings.GetBooking(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("booking not found")
	}
	if err != nil {
		return nil, apperr.Upstream(err, "failed to load booking")
	}
	return booking, nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *models.Booking) {
	if s.events == nil {
		return
	}

	event := &models.BookingEvent{
		BaseEvent:   broker.NewBaseEvent(eventType),
		BookingID:   b.ID,
		PackageID:   b.PackageID,
		GuideEmail:  b.GuideEmail,
		BuyerEmail:  b.BuyerEmail,
		SeatCount:   b.SeatCount,
		AmountCents: b.AmountCents,
		Status:      b.Status,
	}

	var err error
	switch eventType {
	case models.EventTypeBookingCreated:
		err = s.events.PublishBookingCreated(ctx, event)
	case models.EventTypeBookingConfirmed:
		err = s.events.PublishBookingConfirmed(ctx, event)
	case models.EventTypeBookingCompleted:
		err = s.events.PublishBookingCompleted(ctx, event)
	}
	if err != nil {
		s.logger.Error("Failed to publish booking event",
			zap.String("event_type", eventType),
			zap.String("booking_id", b.ID),
			zap.Error(err))
	}
}
