package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voxsynq/realtime/internal/apperr"
	"github.com/voxsynq/realtime/internal/model"
)

type mongoCalls struct {
	col *mongo.Collection
}

func NewCallStore(db *mongo.Database) CallStore {
	return &mongoCalls{col: db.Collection(colCalls)}
}

func (s *mongoCalls) Insert(ctx context.Context, c *model.CallSession) (*model.CallSession, error) {
	if c.StartAt.IsZero() {
		c.StartAt = time.Now().UTC()
	}
	res, err := s.col.InsertOne(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = res.InsertedID.(primitive.ObjectID)
	return c, nil
}

func (s *mongoCalls) End(ctx context.Context, callID string, status model.CallStatus, endedAt time.Time) (*model.CallSession, error) {
	oid, err := primitive.ObjectIDFromHex(callID)
	if err != nil {
		return nil, apperr.NotFound("call not found: " + callID)
	}
	var c model.CallSession
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": status, "ended_at": endedAt}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("call not found: " + callID)
		}
		return nil, err
	}
	return &c, nil
}

func (s *mongoCalls) HistoryFor(ctx context.Context, userID string) ([]*model.CallSession, error) {
	cur, err := s.col.Find(ctx,
		bson.M{"$or": []bson.M{{"caller_id": userID}, {"callee_id": userID}}},
		options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*model.CallSession
	for cur.Next(ctx) {
		var c model.CallSession
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}
