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

	"github.com/xenking/storefront-api/internal/domain/product"
)

type productDoc struct {
	ID          primitive.ObjectID   `bson:"_id"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	Stock       int                  `bson:"stock"`
	Category    string               `bson:"category"`
	VendorID    primitive.ObjectID   `bson:"vendorId"`
	Images      []string             `bson:"images"`
	Featured    bool                 `bson:"featured"`
	Rating      float64              `bson:"rating"`
	NumReviews  int                  `bson:"numReviews"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func newProductDoc(p *product.Product) (*productDoc, error) {
	id, err := objectID(p.ID)
	if err != nil {
		return nil, err
	}
	vendorID, err := objectID(p.VendorID)
	if err != nil {
		return nil, fmt.Errorf("vendor id %q: %w", p.VendorID, err)
	}
	price, err := toDecimal128(p.Price)
	if err != nil {
		return nil, err
	}
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return &productDoc{
		ID:          id,
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
		Stock:       p.Stock,
		Category:    string(p.Category),
		VendorID:    vendorID,
		Images:      images,
		Featured:    p.Featured,
		Rating:      p.Rating,
		NumReviews:  p.NumReviews,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func (d *productDoc) product() (product.Product, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return product.Product{}, err
	}
	return product.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		Stock:       d.Stock,
		Category:    product.Category(d.Category),
		VendorID:    d.VendorID.Hex(),
		Images:      d.Images,
		Featured:    d.Featured,
		Rating:      d.Rating,
		NumReviews:  d.NumReviews,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by MongoDB.
type ProductRepository struct {
	coll *mongo.Collection
}

// NewProductRepository returns a ProductRepository on the products collection.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(productsCollection)}
}

// GetByID returns a single product.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, product.ErrNotFound
	}

	var doc productDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	p, err := doc.product()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Find returns the products matching f in the given order and window.
func (r *ProductRepository) Find(ctx context.Context, f product.Filter, sort []product.SortField, w product.Window) ([]product.Product, error) {
	filter, err := productFilter(f)
	if errors.Is(err, errInvalidID) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(productSort(sort)).
		SetSkip(int64(w.Skip)).
		SetLimit(int64(w.Limit))
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("finding products: %w", err)
	}

	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding products: %w", err)
	}
	out := make([]product.Product, 0, len(docs))
	for i := range docs {
		p, err := docs[i].product()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Count returns the number of products matching f.
func (r *ProductRepository) Count(ctx context.Context, f product.Filter) (int64, error) {
	filter, err := productFilter(f)
	if errors.Is(err, errInvalidID) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return n, nil
}

// Create inserts p, assigning its id.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	if _, err := ensureID(&p.ID); err != nil {
		return err
	}
	p.PrepareForPersist(now())

	doc, err := newProductDoc(p)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	return nil
}

// Update replaces the stored document of p.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	p.PrepareForPersist(now())

	doc, err := newProductDoc(p)
	if errors.Is(err, errInvalidID) {
		return product.ErrNotFound
	}
	if err != nil {
		return err
	}

	res, err := r.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: doc.ID}}, doc)
	if err != nil {
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	if res.MatchedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes the product with the given id.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return product.ErrNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}
