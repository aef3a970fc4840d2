package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colMessages          = "messages"
	colGroups            = "groups"
	colGroupMembers      = "group_members"
	colPrivateReadStatus = "private_read_status"
	colGroupReadStatus   = "group_read_status"
	colCalls             = "calls"
)

// Connect dials MongoDB and pings it before returning.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client.Database(database), nil
}

// EnsureIndexes creates the indexes the query layer relies on. Safe to call
// on every startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	_, err := db.Collection(colGroupMembers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return err
	}
	_, err = db.Collection(colPrivateReadStatus).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "other_user_id", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return err
	}
	_, err = db.Collection(colGroupReadStatus).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "group_id", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return err
	}
	_, err = db.Collection(colMessages).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "recipient_id", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	if err != nil {
		return err
	}
	_, err = db.Collection(colCalls).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "caller_id", Value: 1}, {Key: "started_at", Value: -1}}},
		{Keys: bson.D{{Key: "callee_id", Value: 1}, {Key: "started_at", Value: -1}}},
	})
	return err
}
