package group

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/voxsynq/realtime/internal/apperr"
	"github.com/voxsynq/realtime/internal/hub"
	"github.com/voxsynq/realtime/internal/model"
)

type memGroups struct {
	mu      sync.Mutex
	groups  map[string]*model.Group
	members map[string]map[string]bool
}

func newMemGroups() *memGroups {
	return &memGroups{groups: map[string]*model.Group{}, members: map[string]map[string]bool{}}
}

func (m *memGroups) Create(_ context.Context, g *model.Group) (*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = primitive.NewObjectID()
	stored := *g
	m.groups[g.ID.Hex()] = &stored
	m.members[g.ID.Hex()] = map[string]bool{}
	return g, nil
}

func (m *memGroups) Get(_ context.Context, id string) (*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return nil, apperr.NotFound("group not found: " + id)
	}
	cp := *g
	return &cp, nil
}

func (m *memGroups) Update(_ context.Context, id, name, imageURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return apperr.NotFound("group not found: " + id)
	}
	if name != "" {
		g.Name = name
	}
	if imageURL != "" {
		g.ImageURL = imageURL
	}
	return nil
}

func (m *memGroups) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[id]; !ok {
		return apperr.NotFound("group not found: " + id)
	}
	delete(m.groups, id)
	delete(m.members, id)
	return nil
}

func (m *memGroups) AddMember(_ context.Context, groupID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[groupID][userID] = true
	return nil
}

func (m *memGroups) RemoveMember(_ context.Context, groupID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members[groupID], userID)
	return nil
}

func (m *memGroups) Members(_ context.Context, groupID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for uid := range m.members[groupID] {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memGroups) IsMember(_ context.Context, groupID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[groupID][userID], nil
}

func (m *memGroups) GroupsFor(_ context.Context, userID string) ([]*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Group
	for gid, set := range m.members {
		if set[userID] {
			cp := *m.groups[gid]
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memResolver struct{ known map[string]bool }

func (r *memResolver) Resolve(_ context.Context, id string) (*model.Profile, error) {
	if !r.known[id] {
		return nil, apperr.NotFound("user not found: " + id)
	}
	return &model.Profile{ID: id, Username: "user-" + id}, nil
}

type recPub struct {
	mu     sync.Mutex
	topics []string
	envs   []hub.Envelope
}

func (p *recPub) Publish(topic string, env hub.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.envs = append(p.envs, env)
}

func newTestService(users ...string) (*Service, *memGroups, *recPub) {
	known := map[string]bool{}
	for _, id := range users {
		known[id] = true
	}
	g := newMemGroups()
	pub := &recPub{}
	svc := NewService(g, &memResolver{known: known}, pub, zap.NewNop().Sugar())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, g, pub
}

func TestCreateIncludesCreatorAndDedups(t *testing.T) {
	svc, _, _ := newTestService("1", "2", "3")

	g, err := svc.Create(context.Background(), "1", "team", "", []string{"2", "2", "3", "1", ""})
	require.NoError(t, err)
	require.Len(t, g.Members, 3)

	var ids []string
	for _, m := range g.Members {
		ids = append(ids, m.ID)
		assert.Equal(t, m.ID == "1", m.IsAdmin)
	}
	assert.ElementsMatch(t, []string{"1", "2", "3"}, ids)
	assert.Equal(t, "1", g.CreatedBy)
}

func TestCreateRequiresName(t *testing.T) {
	svc, _, _ := newTestService("1")

	_, err := svc.Create(context.Background(), "1", "", "", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestUpdateIsAdminOnlyAndPartial(t *testing.T) {
	svc, _, pub := newTestService("1", "2")
	ctx := context.Background()
	g, err := svc.Create(ctx, "1", "team", "old.png", []string{"2"})
	require.NoError(t, err)
	gid := g.ID.Hex()

	_, err = svc.Update(ctx, gid, "2", "renamed", "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodePermissionDenied, apperr.CodeOf(err))

	updated, err := svc.Update(ctx, gid, "1", "renamed", "")
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "old.png", updated.ImageURL, "empty field left alone")

	require.NotEmpty(t, pub.topics)
	assert.Equal(t, hub.GroupTopic(gid), pub.topics[len(pub.topics)-1])
	assert.Equal(t, hub.TypeGroupUpdated, pub.envs[len(pub.envs)-1].Type)
}

func TestAddMemberIsIdempotent(t *testing.T) {
	svc, store, _ := newTestService("1", "2")
	ctx := context.Background()
	g, err := svc.Create(ctx, "1", "team", "", nil)
	require.NoError(t, err)
	gid := g.ID.Hex()

	require.NoError(t, svc.AddMember(ctx, gid, "2", "1"))
	require.NoError(t, svc.AddMember(ctx, gid, "2", "1"))

	members, err := store.Members(ctx, gid)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, members)
}

func TestAddMemberRejectsUnknownUser(t *testing.T) {
	svc, _, _ := newTestService("1")
	ctx := context.Background()
	g, err := svc.Create(ctx, "1", "team", "", nil)
	require.NoError(t, err)

	err = svc.AddMember(ctx, g.ID.Hex(), "404", "1")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestRemoveMemberProtectsCreator(t *testing.T) {
	svc, store, _ := newTestService("1", "2")
	ctx := context.Background()
	g, err := svc.Create(ctx, "1", "team", "", []string{"2"})
	require.NoError(t, err)
	gid := g.ID.Hex()

	err = svc.RemoveMember(ctx, gid, "1", "1")
	require.Error(t, err)
	assert.Equal(t, apperr.CodePermissionDenied, apperr.CodeOf(err))

	err = svc.RemoveMember(ctx, gid, "2", "2")
	require.Error(t, err, "non-admin cannot remove")

	require.NoError(t, svc.RemoveMember(ctx, gid, "2", "1"))
	members, err := store.Members(ctx, gid)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, members)
}

func TestDeleteCascadesMembership(t *testing.T) {
	svc, store, _ := newTestService("1", "2")
	ctx := context.Background()
	g, err := svc.Create(ctx, "1", "team", "", []string{"2"})
	require.NoError(t, err)
	gid := g.ID.Hex()

	err = svc.Delete(ctx, gid, "2")
	require.Error(t, err)
	assert.Equal(t, apperr.CodePermissionDenied, apperr.CodeOf(err))

	require.NoError(t, svc.Delete(ctx, gid, "1"))
	_, err = store.Get(ctx, gid)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	groups, err := store.GroupsFor(ctx, "2")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestMembersFlagsAdmin(t *testing.T) {
	svc, _, _ := newTestService("1", "2")
	ctx := context.Background()
	g, err := svc.Create(ctx, "1", "team", "", []string{"2"})
	require.NoError(t, err)

	members, err := svc.Members(ctx, g.ID.Hex())
	require.NoError(t, err)
	require.Len(t, members, 2)
	for _, m := range members {
		assert.Equal(t, m.ID == "1", m.IsAdmin)
	}
}

func TestEnrichmentDegradesToPlaceholder(t *testing.T) {
	svc, store, _ := newTestService("1")
	ctx := context.Background()
	g, err := svc.Create(ctx, "1", "team", "", nil)
	require.NoError(t, err)
	gid := g.ID.Hex()
	// membership added behind the service's back, identity no longer resolvable
	require.NoError(t, store.AddMember(ctx, gid, "ghost"))

	members, err := svc.Members(ctx, gid)
	require.NoError(t, err)
	require.Len(t, members, 2)
	for _, m := range members {
		if m.ID == "ghost" {
			assert.Equal(t, "unknown", m.Username)
		}
	}
}
