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

	"github.com/xenking/storefront-api/internal/domain/order"
)

type orderItemDoc struct {
	ProductID primitive.ObjectID   `bson:"product"`
	Name      string               `bson:"name"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
	Image     string               `bson:"image,omitempty"`
}

type addressDoc struct {
	Street  string `bson:"street"`
	City    string `bson:"city"`
	State   string `bson:"state"`
	ZipCode string `bson:"zipCode"`
	Country string `bson:"country"`
}

type paymentDoc struct {
	Method        string `bson:"method"`
	TransactionID string `bson:"transactionId,omitempty"`
	Status        string `bson:"status"`
}

type orderDoc struct {
	ID              primitive.ObjectID   `bson:"_id"`
	UserID          primitive.ObjectID   `bson:"userId"`
	Items           []orderItemDoc       `bson:"items"`
	ShippingAddress addressDoc           `bson:"shippingAddress"`
	PaymentInfo     paymentDoc           `bson:"paymentInfo"`
	Status          string               `bson:"status"`
	TotalAmount     primitive.Decimal128 `bson:"totalAmount"`
	Tax             primitive.Decimal128 `bson:"tax"`
	ShippingFee     primitive.Decimal128 `bson:"shippingFee"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
	DeliveredAt     *time.Time           `bson:"deliveredAt,omitempty"`
}

func newOrderDoc(o *order.Order) (*orderDoc, error) {
	id, err := objectID(o.ID)
	if err != nil {
		return nil, err
	}
	userID, err := objectID(o.UserID)
	if err != nil {
		return nil, fmt.Errorf("order owner %q: %w", o.UserID, err)
	}

	doc := &orderDoc{
		ID:              id,
		UserID:          userID,
		Items:           make([]orderItemDoc, 0, len(o.Items)),
		ShippingAddress: addressDoc(o.ShippingAddress),
		PaymentInfo: paymentDoc{
			Method:        string(o.PaymentInfo.Method),
			TransactionID: o.PaymentInfo.TransactionID,
			Status:        string(o.PaymentInfo.Status),
		},
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		DeliveredAt: o.DeliveredAt,
	}
	for _, it := range o.Items {
		productID, err := objectID(it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("order product %q: %w", it.ProductID, err)
		}
		price, err := toDecimal128(it.Price)
		if err != nil {
			return nil, err
		}
		doc.Items = append(doc.Items, orderItemDoc{
			ProductID: productID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     price,
			Image:     it.Image,
		})
	}
	if doc.TotalAmount, err = toDecimal128(o.TotalAmount); err != nil {
		return nil, err
	}
	if doc.Tax, err = toDecimal128(o.Tax); err != nil {
		return nil, err
	}
	if doc.ShippingFee, err = toDecimal128(o.ShippingFee); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *orderDoc) order() (order.Order, error) {
	o := order.Order{
		ID:              d.ID.Hex(),
		UserID:          d.UserID.Hex(),
		Items:           make([]order.Item, 0, len(d.Items)),
		ShippingAddress: order.Address(d.ShippingAddress),
		PaymentInfo: order.PaymentInfo{
			Method:        order.PaymentMethod(d.PaymentInfo.Method),
			TransactionID: d.PaymentInfo.TransactionID,
			Status:        order.PaymentStatus(d.PaymentInfo.Status),
		},
		Status:    order.Status(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	if d.DeliveredAt != nil {
		t := d.DeliveredAt.UTC()
		o.DeliveredAt = &t
	}
	for _, it := range d.Items {
		price, err := fromDecimal128(it.Price)
		if err != nil {
			return o, err
		}
		o.Items = append(o.Items, order.Item{
			ProductID: it.ProductID.Hex(),
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     price,
			Image:     it.Image,
		})
	}

	var err error
	if o.TotalAmount, err = fromDecimal128(d.TotalAmount); err != nil {
		return o, err
	}
	if o.Tax, err = fromDecimal128(d.Tax); err != nil {
		return o, err
	}
	if o.ShippingFee, err = fromDecimal128(d.ShippingFee); err != nil {
		return o, err
	}
	return o, nil
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by MongoDB.
type OrderRepository struct {
	coll *mongo.Collection
}

// NewOrderRepository returns an OrderRepository on the orders collection.
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{coll: db.Collection(ordersCollection)}
}

// Create inserts o, assigning its id.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if _, err := ensureID(&o.ID); err != nil {
		return err
	}
	o.PrepareForPersist(now())

	doc, err := newOrderDoc(o)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, order.ErrNotFound
	}

	var doc orderDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := doc.order()
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByUser returns a window of the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, skip, limit int) ([]order.Order, error) {
	oid, err := objectID(userID)
	if err != nil {
		return nil, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.D{{Key: "userId", Value: oid}}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing orders of user %q: %w", userID, err)
	}

	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding orders: %w", err)
	}
	out := make([]order.Order, 0, len(docs))
	for i := range docs {
		o, err := docs[i].order()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// CountByUser returns how many orders the user has placed.
func (r *OrderRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	oid, err := objectID(userID)
	if err != nil {
		return 0, nil
	}
	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "userId", Value: oid}})
	if err != nil {
		return 0, fmt.Errorf("counting orders of user %q: %w", userID, err)
	}
	return n, nil
}

// Update writes the status fields of o.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	oid, err := objectID(o.ID)
	if err != nil {
		return order.ErrNotFound
	}
	o.PrepareForPersist(now())

	set := bson.D{
		{Key: "status", Value: string(o.Status)},
		{Key: "paymentInfo.status", Value: string(o.PaymentInfo.Status)},
		{Key: "paymentInfo.transactionId", Value: o.PaymentInfo.TransactionID},
		{Key: "updatedAt", Value: o.UpdatedAt},
	}
	if o.DeliveredAt != nil {
		set = append(set, bson.E{Key: "deliveredAt", Value: *o.DeliveredAt})
	}

	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if res.MatchedCount == 0 {
		return order.ErrNotFound
	}
	return nil
}
