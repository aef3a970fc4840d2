// Package store is the durable conversation store: messages, groups,
// membership, read watermarks and the call ledger, backed by MongoDB.
package store

import (
	"context"
	"time"

	"github.com/voxsynq/realtime/internal/model"
)

type MessageStore interface {
	Insert(ctx context.Context, m *model.Message) (*model.Message, error)
	GetByID(ctx context.Context, id string) (*model.Message, error)
	// History returns the private thread between two users, both directions,
	// ordered by timestamp ascending.
	History(ctx context.Context, userA, userB string) ([]*model.Message, error)
	// GroupHistory is ordered newest first.
	GroupHistory(ctx context.Context, groupID string) ([]*model.Message, error)
	// LatestPerConversation returns, for every counterpart the user has
	// exchanged private messages with, the single most recent message.
	LatestPerConversation(ctx context.Context, userID string) ([]*model.Message, error)
	// Unread counters: messages strictly after the watermark whose sender is
	// not the viewer.
	CountPrivateUnread(ctx context.Context, viewerID, otherID string, after time.Time) (int64, error)
	CountGroupUnread(ctx context.Context, viewerID, groupID string, after time.Time) (int64, error)
}

type GroupStore interface {
	Create(ctx context.Context, g *model.Group) (*model.Group, error)
	Get(ctx context.Context, groupID string) (*model.Group, error)
	// Update applies only non-empty fields.
	Update(ctx context.Context, groupID, name, imageURL string) error
	// Delete removes the group and cascades membership rows. Message history
	// is untouched.
	Delete(ctx context.Context, groupID string) error
	// AddMember is idempotent.
	AddMember(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	Members(ctx context.Context, groupID string) ([]string, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	GroupsFor(ctx context.Context, userID string) ([]*model.Group, error)
}

type ReadStatusStore interface {
	// AdvancePrivate moves the (viewer, counterpart) watermark forward to ts
	// if ts is greater than the stored value, and returns the value now
	// stored. The advance is atomic per key.
	AdvancePrivate(ctx context.Context, userID, otherUserID string, ts int64) (int64, error)
	GetPrivate(ctx context.Context, userID, otherUserID string) (int64, error)
	AdvanceGroup(ctx context.Context, userID, groupID string, ts int64) (int64, error)
	GetGroup(ctx context.Context, userID, groupID string) (int64, error)
	GroupWatermarks(ctx context.Context, groupID string) (map[string]int64, error)
}

type CallStore interface {
	Insert(ctx context.Context, c *model.CallSession) (*model.CallSession, error)
	// End stamps the terminal status and end time. Last write wins.
	End(ctx context.Context, callID string, status model.CallStatus, endedAt time.Time) (*model.CallSession, error)
	HistoryFor(ctx context.Context, userID string) ([]*model.CallSession, error)
}
