package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

// CartCache holds the per-customer cart documents in Redis under a TTL.
// Documents are versioned JSON; an entry written by an incompatible
// schema is treated as a miss rather than decoded on faith.
type CartCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartCache(client *redis.Client, ttl time.Duration) *CartCache {
	return &CartCache{client: client, ttl: ttl}
}

func cartKey(customerID primitive.ObjectID) string {
	return "cart:" + customerID.Hex()
}

// Get returns the cached cart, or (nil, nil) when no usable document
// exists.
func (c *CartCache) Get(ctx context.Context, customerID primitive.ObjectID) (*models.Cart, error) {
	value, err := c.client.Get(ctx, cartKey(customerID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(value), &cart); err != nil {
		log.Println("[CACHE] [ERROR] cart document unreadable, discarding:", err)
		return nil, nil
	}
	if cart.SchemaVersion != models.CartSchemaVersion {
		log.Printf("[CACHE] [INFO] cart schema version %d != %d, discarding", cart.SchemaVersion, models.CartSchemaVersion)
		return nil, nil
	}
	return &cart, nil
}

// Set writes the cart and resets its TTL.
func (c *CartCache) Set(ctx context.Context, cart *models.Cart) error {
	cart.SchemaVersion = models.CartSchemaVersion
	payload, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cartKey(cart.CustomerID), payload, c.ttl).Err()
}

// Del removes the cart outright. Deleting an absent key is not an error.
func (c *CartCache) Del(ctx context.Context, customerID primitive.ObjectID) error {
	return c.client.Del(ctx, cartKey(customerID)).Err()
}
