package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"backend/internal/apperror"
)

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func ensureDBConnection(ctx context.Context, db *mongo.Database) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Client().Ping(checkCtx, readpref.Primary())
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// respondServiceError maps domain errors to their HTTP status. Anything
// outside the taxonomy is an internal error and stays opaque to the
// client.
func respondServiceError(c *gin.Context, route string, err error) {
	if err == context.DeadlineExceeded {
		respondWithError(c, http.StatusServiceUnavailable, route, "operation timed out, please retry")
		return
	}
	if appErr, ok := apperror.As(err); ok {
		body := gin.H{"error": appErr.Message}
		if appErr.Field != "" {
			body["field"] = appErr.Field
		}
		log.Printf("[%s] returning error %d: %s", route, appErr.HTTPStatus(), appErr.Message)
		c.AbortWithStatusJSON(appErr.HTTPStatus(), body)
		return
	}
	log.Printf("[%s] internal error: %v", route, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// customerIDFromContext pulls the authenticated customer id the auth
// middleware injected. The identity is produced once at the boundary
// and handed to services by parameter, never read from global state.
func customerIDFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	value, ok := c.Get("userId")
	if !ok {
		return primitive.ObjectID{}, false
	}
	customerID, ok := value.(primitive.ObjectID)
	return customerID, ok
}
