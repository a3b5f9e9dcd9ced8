package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	usersColl        = "users"
	chatMessagesColl = "chat_messages"
	convStateColl    = "conversation_state"
)

// Open connects to MongoDB and returns a handle to the application database.
func Open(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client.Database(dbName), nil
}

// EnsureIndexes creates the indexes the query paths rely on. Idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	userIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "google_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
	if _, err := db.Collection(usersColl).Indexes().CreateMany(ctx, userIdx); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	msgIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "metadata.crisis", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "metadata.analysis.label", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
	if _, err := db.Collection(chatMessagesColl).Indexes().CreateMany(ctx, msgIdx); err != nil {
		return fmt.Errorf("chat_messages indexes: %w", err)
	}

	stateIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := db.Collection(convStateColl).Indexes().CreateMany(ctx, stateIdx); err != nil {
		return fmt.Errorf("conversation_state indexes: %w", err)
	}

	return nil
}
