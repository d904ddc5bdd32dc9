package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"tourpack-service/internal/models"
	"tourpack-service/internal/store"
)

// ==================== Booking Store ====================

func (s *Store) CreatePendingBooking(ctx context.Context, booking *models.Booking) error {
	return s.withTransaction(ctx, func(ctx context.Context) error {
		res, err := s.col(colPackages).UpdateOne(ctx,
			bson.M{"_id": booking.PackageID},
			bson.M{
				"$inc": bson.M{"booking_count": 1},
				"$set": bson.M{"updated_at": booking.UpdatedAt},
			})
		if err != nil {
			return fmt.Errorf("tourpack/mongo: bump booking count: %w", err)
		}
		if res.MatchedCount == 0 {
			return store.ErrNotFound
		}

		if _, err := s.col(colBookings).InsertOne(ctx, toBookingModel(booking)); err != nil {
			return fmt.Errorf("tourpack/mongo: create booking: %w", err)
		}
		return nil
	})
}

func (s *Store) ConfirmBooking(ctx context.Context, booking *models.Booking) error {
	return s.withTransaction(ctx, func(ctx context.Context) error {
		res, err := s.col(colPackages).UpdateOne(ctx,
			bson.M{
				"_id":             booking.PackageID,
				"available_seats": bson.M{"$gte": booking.SeatCount},
			},
			bson.M{
				"$inc": bson.M{"available_seats": -booking.SeatCount, "booking_count": 1},
				"$set": bson.M{"updated_at": booking.UpdatedAt},
			})
		if err != nil {
			return fmt.Errorf("tourpack/mongo: decrement seats: %w", err)
		}
		if res.MatchedCount == 0 {
			var m packageModel
			err := s.col(colPackages).FindOne(ctx, bson.M{"_id": booking.PackageID}).Decode(&m)
			if isNoDocuments(err) {
				return store.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("tourpack/mongo: read seats: %w", err)
			}
			return &store.InsufficientSeatsError{Available: m.AvailableSeats}
		}

		if _, err := s.col(colBookings).InsertOne(ctx, toBookingModel(booking)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return store.ErrDuplicatePayment
			}
			return fmt.Errorf("tourpack/mongo: create booking: %w", err)
		}

		if booking.DiscountCode != "" {
			return s.redeemReserved(ctx, booking)
		}
		return nil
	})
}

// redeemReserved marks the booking's discount used when it is held for the
// booking's payment intent. Must run inside the confirm transaction.
func (s *Store) redeemReserved(ctx context.Context, b *models.Booking) error {
	res, err := s.col(colDiscounts).UpdateOne(ctx,
		bson.M{
			"code":               b.DiscountCode,
			"owner_email":        b.BuyerEmail,
			"used":               false,
			"reserved_intent_id": b.PaymentIntentID,
		},
		bson.M{"$set": bson.M{"used": true, "used_at": b.UpdatedAt}})
	if err != nil {
		return fmt.Errorf("tourpack/mongo: redeem discount: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrDiscountUnavailable
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.findBooking(ctx, bson.M{"_id": id})
}

func (s *Store) GetBookingByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Booking, error) {
	return s.findBooking(ctx, bson.M{"payment_intent_id": paymentIntentID})
}

func (s *Store) findBooking(ctx context.Context, filter bson.M) (*models.Booking, error) {
	var m bookingModel
	err := s.col(colBookings).FindOne(ctx, filter).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("tourpack/mongo: get booking: %w", err)
	}
	return fromBookingModel(&m), nil
}

func (s *Store) ListBookingsByBuyer(ctx context.Context, buyerEmail string) ([]models.Booking, error) {
	return s.listBookings(ctx, bson.M{"buyer_email": buyerEmail})
}

func (s *Store) ListBookingsByGuide(ctx context.Context, guideEmail string) ([]models.Booking, error) {
	return s.listBookings(ctx, bson.M{"guide_email": guideEmail})
}

func (s *Store) listBookings(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	cur, err := s.col(colBookings).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("tourpack/mongo: list bookings: %w", err)
	}

	var ms []bookingModel
	if err := cur.All(ctx, &ms); err != nil {
		return nil, fmt.Errorf("tourpack/mongo: list bookings: %w", err)
	}

	result := make([]models.Booking, len(ms))
	for i := range ms {
		result[i] = *fromBookingModel(&ms[i])
	}
	return result, nil
}

func (s *Store) TransitionBookingStatus(ctx context.Context, id, from, to string, at time.Time) (*models.Booking, error) {
	var m bookingModel
	err := s.col(colBookings).FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if isNoDocuments(err) {
		if _, getErr := s.GetBooking(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, store.ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("tourpack/mongo: update booking status: %w", err)
	}
	return fromBookingModel(&m), nil
}
