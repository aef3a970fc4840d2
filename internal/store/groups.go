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

type mongoGroups struct {
	groups  *mongo.Collection
	members *mongo.Collection
}

func NewGroupStore(db *mongo.Database) GroupStore {
	return &mongoGroups{
		groups:  db.Collection(colGroups),
		members: db.Collection(colGroupMembers),
	}
}

func (s *mongoGroups) Create(ctx context.Context, g *model.Group) (*model.Group, error) {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	res, err := s.groups.InsertOne(ctx, g)
	if err != nil {
		return nil, err
	}
	g.ID = res.InsertedID.(primitive.ObjectID)
	return g, nil
}

func (s *mongoGroups) Get(ctx context.Context, groupID string) (*model.Group, error) {
	oid, err := primitive.ObjectIDFromHex(groupID)
	if err != nil {
		return nil, apperr.NotFound("group not found: " + groupID)
	}
	var g model.Group
	if err := s.groups.FindOne(ctx, bson.M{"_id": oid}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("group not found: " + groupID)
		}
		return nil, err
	}
	return &g, nil
}

func (s *mongoGroups) Update(ctx context.Context, groupID, name, imageURL string) error {
	oid, err := primitive.ObjectIDFromHex(groupID)
	if err != nil {
		return apperr.NotFound("group not found: " + groupID)
	}
	set := bson.M{}
	if name != "" {
		set["name"] = name
	}
	if imageURL != "" {
		set["image_url"] = imageURL
	}
	if len(set) == 0 {
		return nil
	}
	res, err := s.groups.UpdateByID(ctx, oid, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("group not found: " + groupID)
	}
	return nil
}

func (s *mongoGroups) Delete(ctx context.Context, groupID string) error {
	oid, err := primitive.ObjectIDFromHex(groupID)
	if err != nil {
		return apperr.NotFound("group not found: " + groupID)
	}
	if _, err := s.members.DeleteMany(ctx, bson.M{"group_id": groupID}); err != nil {
		return err
	}
	res, err := s.groups.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("group not found: " + groupID)
	}
	return nil
}

func (s *mongoGroups) AddMember(ctx context.Context, groupID, userID string) error {
	// upsert keyed on the unique (group_id, user_id) index makes this a no-op
	// when the membership already exists
	_, err := s.members.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		bson.M{"$setOnInsert": bson.M{"added_at": time.Now().UTC()}},
		options.Update().SetUpsert(true))
	return err
}

func (s *mongoGroups) RemoveMember(ctx context.Context, groupID, userID string) error {
	_, err := s.members.DeleteOne(ctx, bson.M{"group_id": groupID, "user_id": userID})
	return err
}

func (s *mongoGroups) Members(ctx context.Context, groupID string) ([]string, error) {
	cur, err := s.members.Find(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []string
	for cur.Next(ctx) {
		var gm model.GroupMember
		if err := cur.Decode(&gm); err != nil {
			return nil, err
		}
		out = append(out, gm.UserID)
	}
	return out, cur.Err()
}

func (s *mongoGroups) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	n, err := s.members.CountDocuments(ctx, bson.M{"group_id": groupID, "user_id": userID})
	return n > 0, err
}

func (s *mongoGroups) GroupsFor(ctx context.Context, userID string) ([]*model.Group, error) {
	cur, err := s.members.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var gm model.GroupMember
		if err := cur.Decode(&gm); err != nil {
			return nil, err
		}
		oid, err := primitive.ObjectIDFromHex(gm.GroupID)
		if err != nil {
			continue
		}
		ids = append(ids, oid)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	gcur, err := s.groups.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer gcur.Close(ctx)
	var out []*model.Group
	for gcur.Next(ctx) {
		var g model.Group
		if err := gcur.Decode(&g); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	return out, gcur.Err()
}
