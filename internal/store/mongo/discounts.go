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

// ==================== Discount Store ====================

func (s *Store) LatestSpin(ctx context.Context, ownerEmail string) (*models.DiscountRecord, error) {
	var m discountModel
	err := s.col(colDiscounts).FindOne(ctx,
		bson.M{"owner_email": ownerEmail},
		options.FindOne().SetSort(bson.D{{Key: "spin_date", Value: -1}}),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("tourpack/mongo: latest spin: %w", err)
	}
	return fromDiscountModel(&m), nil
}

// InsertSpin advances the owner's gate document and appends the record in one
// transaction. The gate only moves when its last spin is at or before
// cooldownStart; a missing gate is created, and losing that insert race means
// another spin got there first.
func (s *Store) InsertSpin(ctx context.Context, rec *models.DiscountRecord, cooldownStart time.Time) error {
	return s.withTransaction(ctx, func(ctx context.Context) error {
		res, err := s.col(colSpinGates).UpdateOne(ctx,
			bson.M{"_id": rec.OwnerEmail, "last_spin_at": bson.M{"$lte": cooldownStart}},
			bson.M{"$set": bson.M{"last_spin_at": rec.SpinDate}})
		if err != nil {
			return fmt.Errorf("tourpack/mongo: advance spin gate: %w", err)
		}
		if res.MatchedCount == 0 {
			_, err := s.col(colSpinGates).InsertOne(ctx, &spinGateModel{
				OwnerEmail: rec.OwnerEmail,
				LastSpinAt: rec.SpinDate,
			})
			if mongo.IsDuplicateKeyError(err) {
				return store.ErrSpinCooldown
			}
			if err != nil {
				return fmt.Errorf("tourpack/mongo: create spin gate: %w", err)
			}
		}

		if _, err := s.col(colDiscounts).InsertOne(ctx, toDiscountModel(rec)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return store.ErrDuplicateCode
			}
			return fmt.Errorf("tourpack/mongo: insert spin: %w", err)
		}
		return nil
	})
}

func (s *Store) ListSpins(ctx context.Context, ownerEmail string) ([]models.DiscountRecord, error) {
	cur, err := s.col(colDiscounts).Find(ctx,
		bson.M{"owner_email": ownerEmail},
		options.Find().SetSort(bson.D{{Key: "spin_date", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("tourpack/mongo: list spins: %w", err)
	}

	var ms []discountModel
	if err := cur.All(ctx, &ms); err != nil {
		return nil, fmt.Errorf("tourpack/mongo: list spins: %w", err)
	}

	result := make([]models.DiscountRecord, len(ms))
	for i := range ms {
		result[i] = *fromDiscountModel(&ms[i])
	}
	return result, nil
}

func (s *Store) GetDiscount(ctx context.Context, code, ownerEmail string) (*models.DiscountRecord, error) {
	var m discountModel
	err := s.col(colDiscounts).FindOne(ctx, bson.M{"code": code, "owner_email": ownerEmail}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("tourpack/mongo: get discount: %w", err)
	}
	return fromDiscountModel(&m), nil
}

func (s *Store) MarkDiscountUsed(ctx context.Context, code, ownerEmail string, at time.Time) error {
	res, err := s.col(colDiscounts).UpdateOne(ctx,
		bson.M{"code": code, "owner_email": ownerEmail, "used": false},
		bson.M{"$set": bson.M{"used": true, "used_at": at}})
	if err != nil {
		return fmt.Errorf("tourpack/mongo: mark discount used: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ReserveDiscount(ctx context.Context, code, ownerEmail, intentID, heldBy string) error {
	res, err := s.col(colDiscounts).UpdateOne(ctx,
		bson.M{"code": code, "owner_email": ownerEmail, "used": false, "reserved_intent_id": heldBy},
		bson.M{"$set": bson.M{"reserved_intent_id": intentID}})
	if err != nil {
		return fmt.Errorf("tourpack/mongo: reserve discount: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
