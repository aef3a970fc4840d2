// Package group creates and mutates groups and enforces the sole-admin
// model: the creator is permanently the only identity allowed to change a
// group.
package group

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/voxsynq/realtime/internal/apperr"
	"github.com/voxsynq/realtime/internal/hub"
	"github.com/voxsynq/realtime/internal/identity"
	"github.com/voxsynq/realtime/internal/model"
	"github.com/voxsynq/realtime/internal/store"
)

type Publisher interface {
	Publish(topic string, env hub.Envelope)
}

type Service struct {
	groups store.GroupStore
	ids    identity.Resolver
	pub    Publisher
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewService(groups store.GroupStore, ids identity.Resolver, pub Publisher, log *zap.SugaredLogger) *Service {
	return &Service{
		groups: groups,
		ids:    ids,
		pub:    pub,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create persists the group and its membership rows. The member set is
// de-duplicated and always includes the creator. The returned group carries
// the enriched member list.
func (s *Service) Create(ctx context.Context, creatorID, name, imageURL string, memberIDs []string) (*model.Group, error) {
	if name == "" {
		return nil, apperr.InvalidArg("group name required")
	}
	if _, err := s.ids.Resolve(ctx, creatorID); err != nil {
		return nil, err
	}

	g, err := s.groups.Create(ctx, &model.Group{
		Name:      name,
		ImageURL:  imageURL,
		CreatedBy: creatorID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{creatorID: true}
	unique := []string{creatorID}
	for _, id := range memberIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	for _, uid := range unique {
		if err := s.groups.AddMember(ctx, g.ID.Hex(), uid); err != nil {
			return nil, err
		}
	}
	g.Members = s.enrich(ctx, unique, creatorID)
	return g, nil
}

// Get returns the group with its enriched member list.
func (s *Service) Get(ctx context.Context, groupID string) (*model.Group, error) {
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	memberIDs, err := s.groups.Members(ctx, groupID)
	if err != nil {
		return nil, err
	}
	g.Members = s.enrich(ctx, memberIDs, g.CreatedBy)
	return g, nil
}

// GroupsFor lists every group the user belongs to, members included.
func (s *Service) GroupsFor(ctx context.Context, userID string) ([]*model.Group, error) {
	groups, err := s.groups.GroupsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		memberIDs, err := s.groups.Members(ctx, g.ID.Hex())
		if err != nil {
			return nil, err
		}
		g.Members = s.enrich(ctx, memberIDs, g.CreatedBy)
	}
	return groups, nil
}

// Members returns the enriched member list with the admin flagged.
func (s *Service) Members(ctx context.Context, groupID string) ([]model.Member, error) {
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	memberIDs, err := s.groups.Members(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, memberIDs, g.CreatedBy), nil
}

// Update applies non-empty fields only, then pushes the updated snapshot to
// the group topic. Admin only.
func (s *Service) Update(ctx context.Context, groupID, requesterID, name, imageURL string) (*model.Group, error) {
	if err := s.requireAdmin(ctx, groupID, requesterID); err != nil {
		return nil, err
	}
	if err := s.groups.Update(ctx, groupID, name, imageURL); err != nil {
		return nil, err
	}
	g, err := s.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	s.pub.Publish(hub.GroupTopic(groupID), hub.Envelope{Type: hub.TypeGroupUpdated, Payload: g})
	return g, nil
}

// Delete removes the group and cascades membership rows. Message history for
// the group is retained. Admin only.
func (s *Service) Delete(ctx context.Context, groupID, requesterID string) error {
	if err := s.requireAdmin(ctx, groupID, requesterID); err != nil {
		return err
	}
	return s.groups.Delete(ctx, groupID)
}

// AddMember is idempotent: adding an existing member is a no-op. Admin only.
func (s *Service) AddMember(ctx context.Context, groupID, userID, requesterID string) error {
	if err := s.requireAdmin(ctx, groupID, requesterID); err != nil {
		return err
	}
	if _, err := s.ids.Resolve(ctx, userID); err != nil {
		return err
	}
	return s.groups.AddMember(ctx, groupID, userID)
}

// RemoveMember rejects removal of the creator: a group never loses its sole
// admin. Admin only.
func (s *Service) RemoveMember(ctx context.Context, groupID, userID, requesterID string) error {
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if g.CreatedBy != requesterID {
		return apperr.Forbidden("only the group admin can remove members")
	}
	if userID == g.CreatedBy {
		return apperr.Forbidden("the group creator cannot be removed")
	}
	return s.groups.RemoveMember(ctx, groupID, userID)
}

func (s *Service) requireAdmin(ctx context.Context, groupID, userID string) error {
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if g.CreatedBy != userID {
		return apperr.Forbidden("only the group admin can do this")
	}
	return nil
}

func (s *Service) enrich(ctx context.Context, memberIDs []string, adminID string) []model.Member {
	out := make([]model.Member, 0, len(memberIDs))
	for _, uid := range memberIDs {
		p, err := s.ids.Resolve(ctx, uid)
		if err != nil {
			p = identity.Placeholder(uid)
		}
		out = append(out, model.Member{Profile: *p, IsAdmin: uid == adminID})
	}
	return out
}
