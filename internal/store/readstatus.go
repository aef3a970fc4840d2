package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voxsynq/realtime/internal/model"
)

type mongoReadStatus struct {
	private *mongo.Collection
	group   *mongo.Collection
}

func NewReadStatusStore(db *mongo.Database) ReadStatusStore {
	return &mongoReadStatus{
		private: db.Collection(colPrivateReadStatus),
		group:   db.Collection(colGroupReadStatus),
	}
}

// advance is a $max upsert: the stored watermark only ever moves forward, and
// the comparison happens server-side so concurrent calls for the same key
// serialize without any lock of ours.
func advance(ctx context.Context, col *mongo.Collection, filter bson.M, ts int64) (int64, error) {
	var row struct {
		LastReadTimestamp int64 `bson:"last_read_ts"`
	}
	err := col.FindOneAndUpdate(ctx, filter,
		bson.M{"$max": bson.M{"last_read_ts": ts}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&row)
	if err != nil {
		return 0, err
	}
	return row.LastReadTimestamp, nil
}

func get(ctx context.Context, col *mongo.Collection, filter bson.M) (int64, error) {
	var row struct {
		LastReadTimestamp int64 `bson:"last_read_ts"`
	}
	err := col.FindOne(ctx, filter).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.LastReadTimestamp, nil
}

func (s *mongoReadStatus) AdvancePrivate(ctx context.Context, userID, otherUserID string, ts int64) (int64, error) {
	return advance(ctx, s.private, bson.M{"user_id": userID, "other_user_id": otherUserID}, ts)
}

func (s *mongoReadStatus) GetPrivate(ctx context.Context, userID, otherUserID string) (int64, error) {
	return get(ctx, s.private, bson.M{"user_id": userID, "other_user_id": otherUserID})
}

func (s *mongoReadStatus) AdvanceGroup(ctx context.Context, userID, groupID string, ts int64) (int64, error) {
	return advance(ctx, s.group, bson.M{"user_id": userID, "group_id": groupID}, ts)
}

func (s *mongoReadStatus) GetGroup(ctx context.Context, userID, groupID string) (int64, error) {
	return get(ctx, s.group, bson.M{"user_id": userID, "group_id": groupID})
}

func (s *mongoReadStatus) GroupWatermarks(ctx context.Context, groupID string) (map[string]int64, error) {
	cur, err := s.group.Find(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make(map[string]int64)
	for cur.Next(ctx) {
		var row model.GroupReadStatus
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.UserID] = row.LastReadTimestamp
	}
	return out, cur.Err()
}
