// Package mongo implements store.Store on MongoDB. Multi-document writes run
// in transactions, so the server must be a replica set or sharded cluster.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"tourpack-service/internal/store"
)

// Collection name constants.
const (
	colPackages  = "tour_packages"
	colBookings  = "bookings"
	colDiscounts = "discount_records"
	colSpinGates = "spin_gates"
	colEvents    = "processed_events"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and selects the named database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("tourpack/mongo: connect: %w", err)
	}
	s := &Store{client: client, db: client.Database(database)}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("tourpack/mongo: ping: %w", err)
	}
	return s, nil
}

// Migrate creates indexes for all collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("tourpack/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// withTransaction runs fn inside a session transaction. Errors returned by fn
// abort the transaction and are passed through unchanged.
func (s *Store) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("tourpack/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// ==================== Event Log ====================

func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.col(colEvents).CountDocuments(ctx, bson.M{"_id": eventID})
	if err != nil {
		return false, fmt.Errorf("tourpack/mongo: check event: %w", err)
	}
	return n > 0, nil
}

func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.col(colEvents).InsertOne(ctx, &processedEventModel{
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now().UTC(),
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("tourpack/mongo: mark event: %w", err)
	}
	return nil
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for each collection.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colPackages: {
			{Keys: bson.D{{Key: "guide_email", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colBookings: {
			{
				Keys:    bson.D{{Key: "payment_intent_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
			{Keys: bson.D{{Key: "buyer_email", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "guide_email", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "package_id", Value: 1}}},
		},
		colDiscounts: {
			{
				Keys:    bson.D{{Key: "code", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "owner_email", Value: 1}, {Key: "spin_date", Value: -1}}},
		},
	}
}
