// Package mongo implements the domain repositories on MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	productsCollection = "products"
	usersCollection    = "users"
	cartsCollection    = "carts"
	ordersCollection   = "orders"
	apiKeysCollection  = "apiKeys"
)

// errInvalidID marks ids that are not ObjectID hex strings. Such ids can never
// match a stored document.
var errInvalidID = errors.New("invalid object id")

// Store owns the client and database handle.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri, verifies the primary is reachable and selects database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	s := &Store{client: client, db: client.Database(database)}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Ping checks that the primary answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("pinging mongo: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Database returns the selected database.
func (s *Store) Database() *mongo.Database { return s.db }

// EnsureIndexes creates the indexes the repositories rely on, including the
// text index used by catalog search. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		productsCollection: {
			{
				Keys:    bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}},
				Options: options.Index().SetName("products_text"),
			},
			{Keys: bson.D{{Key: "vendorId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "price", Value: 1}}},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		cartsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		apiKeysCollection: {
			{Keys: bson.D{{Key: "keyHash", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, models := range specs {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// Repositories groups every repository backed by one database.
type Repositories struct {
	Products *ProductRepository
	Users    *UserRepository
	Carts    *CartRepository
	Orders   *OrderRepository
	APIKeys  *APIKeyRepository
}

// NewRepositories builds all repositories on the store's database.
func (s *Store) NewRepositories() *Repositories {
	return &Repositories{
		Products: NewProductRepository(s.db),
		Users:    NewUserRepository(s.db),
		Carts:    NewCartRepository(s.db),
		Orders:   NewOrderRepository(s.db),
		APIKeys:  NewAPIKeyRepository(s.db),
	}
}

func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errInvalidID
	}
	return oid, nil
}

// ensureID assigns a fresh ObjectID to an empty id and parses it.
func ensureID(id *string) (primitive.ObjectID, error) {
	if *id == "" {
		oid := primitive.NewObjectID()
		*id = oid.Hex()
		return oid, nil
	}
	return objectID(*id)
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("converting %s to decimal128: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("converting decimal128 %s: %w", v, err)
	}
	return d, nil
}
