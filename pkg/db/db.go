package db

import (
	"context"
	"fmt"

	"companion-notes/pkg/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Client wraps the MongoDB client holding the session history archive
type Client struct {
	mongoClient *mongo.Client
	database    *mongo.Database
	collection  *mongo.Collection
}

// NewClient creates a new database client
func NewClient(connectionString, databaseName, collectionName string) *Client {
	clientOptions := options.Client().ApplyURI(connectionString)
	mongoClient, err := mongo.Connect(context.Background(), clientOptions)
	if err != nil {
		// Return client with nil - error will be caught during Connect()
		return &Client{}
	}

	database := mongoClient.Database(databaseName)
	collection := database.Collection(collectionName)

	return &Client{
		mongoClient: mongoClient,
		database:    database,
		collection:  collection,
	}
}

// Connect establishes connection to MongoDB
func (c *Client) Connect(ctx context.Context) error {
	if c.mongoClient == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	return c.mongoClient.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(ctx)
}

// SaveSessionHistory upserts a finished session, keyed by session ID.
func (c *Client) SaveSessionHistory(ctx context.Context, h *domain.SessionHistory) error {
	if c.collection == nil {
		return fmt.Errorf("collection not initialized")
	}
	if h.SessionID == "" {
		return fmt.Errorf("session id is required")
	}

	filter := bson.M{"session_id": h.SessionID}
	update := bson.M{"$set": h}
	opts := options.Update().SetUpsert(true)

	_, err := c.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// ListSessionHistory returns the sessions of a user with a companion, most
// recently ended first. limit <= 0 returns all of them.
func (c *Client) ListSessionHistory(ctx context.Context, userID, companionID string, limit int64) ([]domain.SessionHistory, error) {
	if c.collection == nil {
		return nil, fmt.Errorf("collection not initialized")
	}

	filter := bson.M{"user_id": userID}
	if companionID != "" {
		filter["companion_id"] = companionID
	}

	opts := options.Find().SetSort(bson.D{{Key: "ended_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := c.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query session history: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []domain.SessionHistory
	for cursor.Next(ctx) {
		var h domain.SessionHistory
		if err := cursor.Decode(&h); err != nil {
			continue // Skip invalid documents
		}
		sessions = append(sessions, h)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return sessions, nil
}

// GetAllSessionHistory reads the whole archive. Used by replication.
func (c *Client) GetAllSessionHistory(ctx context.Context) ([]domain.SessionHistory, error) {
	if c.collection == nil {
		return nil, fmt.Errorf("collection not initialized")
	}

	cursor, err := c.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to query session history: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []domain.SessionHistory
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("decode session history: %w", err)
	}
	return sessions, nil
}
