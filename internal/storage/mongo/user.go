package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/storefront-api/internal/domain/user"
)

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Role      string             `bson:"role"`
	CreatedAt time.Time          `bson:"createdAt"`
}

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by MongoDB.
type UserRepository struct {
	coll *mongo.Collection
}

// NewUserRepository returns a UserRepository on the users collection.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

// GetByID returns a single user.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, user.ErrNotFound
	}

	var doc userDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}
	return &user.User{
		ID:        doc.ID.Hex(),
		Name:      doc.Name,
		Email:     doc.Email,
		Role:      user.Role(doc.Role),
		CreatedAt: doc.CreatedAt.UTC(),
	}, nil
}

// Create upserts u by email. An existing account keeps its id, which is
// copied back into u.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	oid, err := ensureID(&u.ID)
	if err != nil {
		return err
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now()
	}

	update := bson.D{
		{Key: "$set", Value: bson.D{{Key: "name", Value: u.Name}, {Key: "role", Value: string(u.Role)}}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "_id", Value: oid}, {Key: "createdAt", Value: u.CreatedAt}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc userDoc
	err = r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "email", Value: u.Email}}, update, opts).Decode(&doc)
	if err != nil {
		return fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	u.ID = doc.ID.Hex()
	u.CreatedAt = doc.CreatedAt.UTC()
	return nil
}
