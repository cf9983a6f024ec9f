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

	"github.com/xenking/storefront-api/internal/domain/cart"
)

type cartItemDoc struct {
	ProductID primitive.ObjectID   `bson:"product"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
	Name      string               `bson:"name,omitempty"`
	Image     string               `bson:"image,omitempty"`
}

type cartDoc struct {
	ID        primitive.ObjectID   `bson:"_id"`
	UserID    primitive.ObjectID   `bson:"userId"`
	Items     []cartItemDoc        `bson:"items"`
	Total     primitive.Decimal128 `bson:"total"`
	UpdatedAt time.Time            `bson:"updatedAt"`
}

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by MongoDB.
type CartRepository struct {
	coll *mongo.Collection
}

// NewCartRepository returns a CartRepository on the carts collection.
func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{coll: db.Collection(cartsCollection)}
}

// GetByUser returns the cart owned by userID.
func (r *CartRepository) GetByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	oid, err := objectID(userID)
	if err != nil {
		return nil, cart.ErrNotFound
	}

	var doc cartDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "userId", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart for user %q: %w", userID, err)
	}

	total, err := fromDecimal128(doc.Total)
	if err != nil {
		return nil, err
	}
	c := &cart.Cart{
		ID:        doc.ID.Hex(),
		UserID:    doc.UserID.Hex(),
		Items:     make([]cart.Item, 0, len(doc.Items)),
		Total:     total,
		UpdatedAt: doc.UpdatedAt.UTC(),
	}
	for _, it := range doc.Items {
		price, err := fromDecimal128(it.Price)
		if err != nil {
			return nil, err
		}
		c.Items = append(c.Items, cart.Item{
			ProductID: it.ProductID.Hex(),
			Quantity:  it.Quantity,
			Price:     price,
			Name:      it.Name,
			Image:     it.Image,
		})
	}
	return c, nil
}

// Save upserts c by owner after recomputing its derived fields.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	id, err := ensureID(&c.ID)
	if err != nil {
		return err
	}
	userID, err := objectID(c.UserID)
	if err != nil {
		return fmt.Errorf("cart owner %q: %w", c.UserID, err)
	}
	c.PrepareForPersist(now())

	items := make([]cartItemDoc, 0, len(c.Items))
	for _, it := range c.Items {
		productID, err := objectID(it.ProductID)
		if err != nil {
			return fmt.Errorf("cart product %q: %w", it.ProductID, err)
		}
		price, err := toDecimal128(it.Price)
		if err != nil {
			return err
		}
		items = append(items, cartItemDoc{
			ProductID: productID,
			Quantity:  it.Quantity,
			Price:     price,
			Name:      it.Name,
			Image:     it.Image,
		})
	}
	total, err := toDecimal128(c.Total)
	if err != nil {
		return err
	}

	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "items", Value: items},
			{Key: "total", Value: total},
			{Key: "updatedAt", Value: c.UpdatedAt},
		}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "_id", Value: id}}},
	}
	_, err = r.coll.UpdateOne(ctx, bson.D{{Key: "userId", Value: userID}}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("saving cart for user %q: %w", c.UserID, err)
	}
	return nil
}
