package mongo

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/storefront-api/internal/domain/auth"
)

type apiKeyDoc struct {
	ID      primitive.ObjectID `bson:"_id"`
	KeyHash string             `bson:"keyHash"`
	Name    string             `bson:"name"`
	UserID  primitive.ObjectID `bson:"userId"`
	Scopes  []string           `bson:"scopes"`
	Active  bool               `bson:"active"`
}

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository provides API key lookups backed by MongoDB.
type APIKeyRepository struct {
	coll *mongo.Collection
}

// NewAPIKeyRepository returns an APIKeyRepository on the apiKeys collection.
func NewAPIKeyRepository(db *mongo.Database) *APIKeyRepository {
	return &APIKeyRepository{coll: db.Collection(apiKeysCollection)}
}

// FindByHash looks up an active API key by its HMAC-SHA256 hash.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	var doc apiKeyDoc
	filter := bson.D{{Key: "keyHash", Value: hash}, {Key: "active", Value: true}}
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("api key not found: %w", err)
		}
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}
	return &auth.APIKeyInfo{
		ID:      doc.ID.Hex(),
		KeyHash: doc.KeyHash,
		Name:    doc.Name,
		UserID:  doc.UserID.Hex(),
		Scopes:  doc.Scopes,
	}, nil
}

// Upsert registers info, reactivating a key with the same hash.
func (r *APIKeyRepository) Upsert(ctx context.Context, info *auth.APIKeyInfo) error {
	oid, err := ensureID(&info.ID)
	if err != nil {
		return err
	}
	userID, err := objectID(info.UserID)
	if err != nil {
		return fmt.Errorf("api key owner %q: %w", info.UserID, err)
	}
	scopes := info.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "name", Value: info.Name},
			{Key: "userId", Value: userID},
			{Key: "scopes", Value: scopes},
			{Key: "active", Value: true},
		}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "_id", Value: oid}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc apiKeyDoc
	err = r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "keyHash", Value: info.KeyHash}}, update, opts).Decode(&doc)
	if err != nil {
		return fmt.Errorf("upserting api key %q: %w", info.Name, err)
	}
	info.ID = doc.ID.Hex()
	return nil
}
