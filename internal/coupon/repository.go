package coupon

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
)

// MongoRepository reads coupons from the coupons collection.
type MongoRepository struct {
	db *mongo.Database
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{db: db}
}

func (r *MongoRepository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := r.db.Collection("coupons").FindOne(ctx, bson.M{"code": code}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *MongoRepository) ListValid(ctx context.Context, restaurantID *primitive.ObjectID, now time.Time) ([]models.Coupon, error) {
	scope := []bson.M{{"restaurantId": bson.M{"$exists": false}}, {"restaurantId": nil}}
	if restaurantID != nil {
		scope = append(scope, bson.M{"restaurantId": *restaurantID})
	}

	filter := bson.M{
		"isActive":  true,
		"validTill": bson.M{"$gt": now},
		"$or":       scope,
	}

	cursor, err := r.db.Collection("coupons").Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var coupons []models.Coupon
	if err := cursor.All(ctx, &coupons); err != nil {
		return nil, err
	}
	return coupons, nil
}
