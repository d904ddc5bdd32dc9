package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"tourpack-service/internal/models"
	"tourpack-service/internal/store"
)

// ==================== Package Store ====================

func (s *Store) CreatePackage(ctx context.Context, pkg *models.TourPackage) error {
	if _, err := s.col(colPackages).InsertOne(ctx, toPackageModel(pkg)); err != nil {
		return fmt.Errorf("tourpack/mongo: create package: %w", err)
	}
	return nil
}

func (s *Store) GetPackage(ctx context.Context, id string) (*models.TourPackage, error) {
	var m packageModel
	err := s.col(colPackages).FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("tourpack/mongo: get package: %w", err)
	}
	return fromPackageModel(&m), nil
}

func (s *Store) ListPackagesByGuide(ctx context.Context, guideEmail string) ([]models.TourPackage, error) {
	cur, err := s.col(colPackages).Find(ctx,
		bson.M{"guide_email": guideEmail},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("tourpack/mongo: list packages: %w", err)
	}

	var ms []packageModel
	if err := cur.All(ctx, &ms); err != nil {
		return nil, fmt.Errorf("tourpack/mongo: list packages: %w", err)
	}

	result := make([]models.TourPackage, len(ms))
	for i := range ms {
		result[i] = *fromPackageModel(&ms[i])
	}
	return result, nil
}

func (s *Store) UpdatePackage(ctx context.Context, pkg *models.TourPackage) error {
	res, err := s.col(colPackages).UpdateOne(ctx,
		bson.M{"_id": pkg.ID},
		bson.M{"$set": bson.M{
			"title":         pkg.Title,
			"description":   pkg.Description,
			"destination":   pkg.Destination,
			"duration_days": pkg.DurationDays,
			"price_cents":   pkg.PriceCents,
			"is_seasonal":   pkg.IsSeasonal,
			"updated_at":    pkg.UpdatedAt,
		}})
	if err != nil {
		return fmt.Errorf("tourpack/mongo: update package: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeletePackage removes a package with no bookings. Booking writes touch the
// package document too, so a concurrent booking aborts this transaction.
func (s *Store) DeletePackage(ctx context.Context, id string) error {
	return s.withTransaction(ctx, func(ctx context.Context) error {
		n, err := s.col(colBookings).CountDocuments(ctx, bson.M{"package_id": id}, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("tourpack/mongo: count package bookings: %w", err)
		}

		res, err := s.col(colPackages).DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("tourpack/mongo: delete package: %w", err)
		}
		if res.DeletedCount == 0 {
			return store.ErrNotFound
		}
		if n > 0 {
			return store.ErrPackageInUse
		}
		return nil
	})
}
