package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("orders").Indexes()

	orderNumberIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "orderNumber", Value: 1}},
		Options: options.Index().
			SetName("orderNumber_unique").
			SetUnique(true),
	}
	customerIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("customerId_createdAt"),
	}

	log.Println("EnsureOrderIndexes: creating order indexes")
	_, err := indexes.CreateMany(ctx, []mongo.IndexModel{orderNumberIndex, customerIndex})
	if err != nil {
		log.Println("EnsureOrderIndexes: order index error:", err)
		return err
	}

	historyIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "orderId", Value: 1}, {Key: "createdAt", Value: 1}},
		Options: options.Index().SetName("orderId_createdAt"),
	}
	_, err = db.Collection("order_status_history").Indexes().CreateOne(ctx, historyIndex)
	if err != nil {
		log.Println("EnsureOrderIndexes: history index error:", err)
		return err
	}
	log.Println("EnsureOrderIndexes: order indexes created")
	return nil
}

func EnsureCouponIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("coupons").Indexes()

	codeIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "code", Value: 1}},
		Options: options.Index().
			SetName("code_unique").
			SetUnique(true),
	}

	log.Println("EnsureCouponIndexes: creating code_unique index")
	_, err := indexes.CreateOne(ctx, codeIndex)
	if err != nil {
		log.Println("EnsureCouponIndexes: code index error:", err)
		return err
	}
	log.Println("EnsureCouponIndexes: code_unique index created")
	return nil
}

func EnsureMenuItemIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	restaurantIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "restaurantId", Value: 1}},
		Options: options.Index().SetName("restaurantId_index"),
	}

	log.Println("EnsureMenuItemIndexes: creating restaurantId_index index")
	_, err := db.Collection("menu_items").Indexes().CreateOne(ctx, restaurantIndex)
	if err != nil {
		log.Println("EnsureMenuItemIndexes: restaurantId index error:", err)
		return err
	}
	log.Println("EnsureMenuItemIndexes: restaurantId_index index created")
	return nil
}

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}

	log.Println("EnsureUserIndexes: creating email_unique index")
	_, err := db.Collection("users").Indexes().CreateOne(ctx, emailIndex)
	if err != nil {
		log.Println("EnsureUserIndexes: email index error:", err)
		return err
	}

	tokenIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "tokenHash", Value: 1}},
		Options: options.Index().
			SetName("tokenHash_unique").
			SetUnique(true),
	}
	_, err = db.Collection("refresh_tokens").Indexes().CreateOne(ctx, tokenIndex)
	if err != nil {
		log.Println("EnsureUserIndexes: refresh token index error:", err)
		return err
	}
	log.Println("EnsureUserIndexes: user indexes created")
	return nil
}
