// Package mongostore is a MongoDB mfa.Store.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/restauth/pkg/mfa"
	"github.com/dmitrymomot/restauth/pkg/totp"
)

const DefaultCollection = "mfa_authenticators"

// Store keeps one document per (user_id, type) in a collection.
type Store struct {
	coll *mongo.Collection
}

// New returns a Store over collection. Call EnsureIndexes once at startup.
func New(db *mongo.Database, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{coll: db.Collection(collection)}
}

// EnsureIndexes creates the unique (user_id, type) index. Safe to call on every start.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "type", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("user_type_unique"),
	})
	return err
}

func byKey(userID string, t mfa.FactorType) bson.D {
	return bson.D{{Key: "user_id", Value: userID}, {Key: "type", Value: string(t)}}
}

func (s *Store) Get(ctx context.Context, userID string, t mfa.FactorType) (*mfa.Authenticator, error) {
	var a mfa.Authenticator
	err := s.coll.FindOne(ctx, byKey(userID, t)).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, mfa.ErrAuthenticatorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) Insert(ctx context.Context, a *mfa.Authenticator) error {
	_, err := s.coll.InsertOne(ctx, a)
	if mongo.IsDuplicateKeyError(err) {
		return mfa.ErrAuthenticatorExists
	}
	return err
}

func (s *Store) Upsert(ctx context.Context, a *mfa.Authenticator) error {
	_, err := s.coll.ReplaceOne(ctx, byKey(a.UserID, a.Type), a, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) Touch(ctx context.Context, userID string, t mfa.FactorType, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx, byKey(userID, t), bson.D{
		{Key: "$set", Value: bson.D{{Key: "last_used_at", Value: at}}},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mfa.ErrAuthenticatorNotFound
	}
	return nil
}

func (s *Store) ConsumeRecoveryCode(ctx context.Context, userID, seed string, index int, at time.Time) (bool, error) {
	bit := totp.RecoveryCodeBit(index)
	filter := append(byKey(userID, mfa.FactorRecoveryCodes),
		bson.E{Key: "data.seed", Value: seed},
		bson.E{Key: "data.used_mask", Value: bson.D{{Key: "$bitsAllClear", Value: bit}}},
	)
	update := bson.D{
		{Key: "$bit", Value: bson.D{{Key: "data.used_mask", Value: bson.D{{Key: "or", Value: bit}}}}},
		{Key: "$set", Value: bson.D{{Key: "last_used_at", Value: at}}},
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s *Store) Delete(ctx context.Context, userID string, types ...mfa.FactorType) error {
	names := make(bson.A, 0, len(mfa.AllFactors))
	for _, t := range mfa.FactorsOrAll(types) {
		names = append(names, string(t))
	}
	_, err := s.coll.DeleteMany(ctx, bson.D{
		{Key: "user_id", Value: userID},
		{Key: "type", Value: bson.D{{Key: "$in", Value: names}}},
	})
	return err
}
