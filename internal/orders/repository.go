package orders

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

// MongoStore persists orders and their append-only status history.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// InTransaction runs fn inside one Mongo transaction. fn receives the
// session-bound context and must use it for every store call it makes.
func (s *MongoStore) InTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

func (s *MongoStore) FindRestaurant(ctx context.Context, id primitive.ObjectID) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := s.db.Collection("restaurants").FindOne(ctx, bson.M{"_id": id}).Decode(&restaurant)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (s *MongoStore) FindMenuItem(ctx context.Context, id primitive.ObjectID) (*models.MenuItem, error) {
	var item models.MenuItem
	err := s.db.Collection("menu_items").FindOne(ctx, bson.M{
		"_id":       id,
		"isDeleted": bson.M{"$ne": true},
	}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ReserveStock decrements the item's stock only while enough remains,
// reporting whether the decrement won.
func (s *MongoStore) ReserveStock(ctx context.Context, id primitive.ObjectID, quantity int) (bool, error) {
	res, err := s.db.Collection("menu_items").UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": quantity}},
		bson.M{"$inc": bson.M{"stock": -quantity}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// InsertOrder persists the order and fills in its generated id.
func (s *MongoStore) InsertOrder(ctx context.Context, order *models.Order) error {
	res, err := s.db.Collection("orders").InsertOne(ctx, order)
	if err != nil {
		return err
	}
	order.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoStore) IncrementCouponUsage(ctx context.Context, couponID primitive.ObjectID) error {
	_, err := s.db.Collection("coupons").UpdateOne(ctx,
		bson.M{"_id": couponID},
		bson.M{"$inc": bson.M{"currentUsage": 1}},
	)
	return err
}

func (s *MongoStore) FindByID(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := s.db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus applies from -> to only while the order still reads
// from, and appends the history row when it wins. The conditional
// filter is what serializes racing transitions and cancellations.
func (s *MongoStore) UpdateStatus(ctx context.Context, orderID primitive.ObjectID, from, to string) (bool, error) {
	res, err := s.db.Collection("orders").UpdateOne(ctx,
		bson.M{"_id": orderID, "status": from},
		bson.M{"$set": bson.M{"status": to}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, nil
	}

	return true, s.AppendHistory(ctx, orderID, to)
}

// AppendHistory adds one status row. Rows are never updated or removed.
func (s *MongoStore) AppendHistory(ctx context.Context, orderID primitive.ObjectID, status string) error {
	_, err := s.db.Collection("order_status_history").InsertOne(ctx, models.OrderStatusHistory{
		OrderID:   orderID,
		Status:    status,
		CreatedAt: time.Now(),
	})
	return err
}

func (s *MongoStore) MarkRefunded(ctx context.Context, orderID primitive.ObjectID) error {
	_, err := s.db.Collection("orders").UpdateOne(ctx,
		bson.M{"_id": orderID},
		bson.M{"$set": bson.M{"paymentStatus": models.PaymentStatusRefunded}},
	)
	return err
}

// ConfirmPayment stores the gateway reference and marks the payment
// collected.
func (s *MongoStore) ConfirmPayment(ctx context.Context, orderID primitive.ObjectID, paymentRef string) error {
	_, err := s.db.Collection("orders").UpdateOne(ctx,
		bson.M{"_id": orderID},
		bson.M{"$set": bson.M{"paymentStatus": models.PaymentStatusPaid, "paymentRef": paymentRef}},
	)
	return err
}

// SetPaymentRef stores the gateway reference created for an online
// order, verbatim.
func (s *MongoStore) SetPaymentRef(ctx context.Context, orderID primitive.ObjectID, paymentRef string) error {
	_, err := s.db.Collection("orders").UpdateOne(ctx,
		bson.M{"_id": orderID},
		bson.M{"$set": bson.M{"paymentRef": paymentRef}},
	)
	return err
}

// ListByCustomer returns the customer's orders, newest first, with an
// optional status filter.
func (s *MongoStore) ListByCustomer(ctx context.Context, customerID primitive.ObjectID, status string, page, limit int64) ([]models.Order, error) {
	filter := bson.M{"customerId": customerID}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := s.db.Collection("orders").Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListHistory returns the order's status rows in creation order.
func (s *MongoStore) ListHistory(ctx context.Context, orderID primitive.ObjectID) ([]models.OrderStatusHistory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := s.db.Collection("order_status_history").Find(ctx, bson.M{"orderId": orderID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	history := []models.OrderStatusHistory{}
	if err := cursor.All(ctx, &history); err != nil {
		return nil, err
	}
	return history, nil
}
