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

type mongoMessages struct {
	col *mongo.Collection
}

func NewMessageStore(db *mongo.Database) MessageStore {
	return &mongoMessages{col: db.Collection(colMessages)}
}

func (s *mongoMessages) Insert(ctx context.Context, m *model.Message) (*model.Message, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	res, err := s.col.InsertOne(ctx, m)
	if err != nil {
		return nil, err
	}
	m.ID = res.InsertedID.(primitive.ObjectID)
	return m, nil
}

func (s *mongoMessages) GetByID(ctx context.Context, id string) (*model.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("message not found: " + id)
	}
	var m model.Message
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("message not found: " + id)
		}
		return nil, err
	}
	return &m, nil
}

func privatePairFilter(userA, userB string) bson.M {
	return bson.M{
		"group_id": bson.M{"$exists": false},
		"$or": []bson.M{
			{"sender_id": userA, "recipient_id": userB},
			{"sender_id": userB, "recipient_id": userA},
		},
	}
}

func (s *mongoMessages) History(ctx context.Context, userA, userB string) ([]*model.Message, error) {
	cur, err := s.col.Find(ctx, privatePairFilter(userA, userB),
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return decodeMessages(ctx, cur)
}

func (s *mongoMessages) GroupHistory(ctx context.Context, groupID string) ([]*model.Message, error) {
	cur, err := s.col.Find(ctx, bson.M{"group_id": groupID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return decodeMessages(ctx, cur)
}

// LatestPerConversation groups the user's private messages by unordered
// counterpart pair and keeps the newest per pair. Ties on equal timestamps
// resolve in undefined order.
func (s *mongoMessages) LatestPerConversation(ctx context.Context, userID string) ([]*model.Message, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"group_id": bson.M{"$exists": false},
			"$or":      []bson.M{{"sender_id": userID}, {"recipient_id": userID}},
		}}},
		{{Key: "$addFields", Value: bson.M{
			"pair": bson.M{"$cond": bson.A{
				bson.M{"$lt": bson.A{"$sender_id", "$recipient_id"}},
				bson.A{"$sender_id", "$recipient_id"},
				bson.A{"$recipient_id", "$sender_id"},
			}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: -1}}}},
		{{Key: "$group", Value: bson.M{"_id": "$pair", "doc": bson.M{"$first": "$$ROOT"}}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$doc"}}},
		{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: -1}}}},
	}
	cur, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	return decodeMessages(ctx, cur)
}

func (s *mongoMessages) CountPrivateUnread(ctx context.Context, viewerID, otherID string, after time.Time) (int64, error) {
	filter := privatePairFilter(viewerID, otherID)
	filter["timestamp"] = bson.M{"$gt": after}
	filter["sender_id"] = bson.M{"$ne": viewerID}
	return s.col.CountDocuments(ctx, filter)
}

func (s *mongoMessages) CountGroupUnread(ctx context.Context, viewerID, groupID string, after time.Time) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{
		"group_id":  groupID,
		"timestamp": bson.M{"$gt": after},
		"sender_id": bson.M{"$ne": viewerID},
	})
}

func decodeMessages(ctx context.Context, cur *mongo.Cursor) ([]*model.Message, error) {
	defer cur.Close(ctx)
	var out []*model.Message
	for cur.Next(ctx) {
		var m model.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, cur.Err()
}
