package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/voxsynq/realtime/internal/hub"
	"github.com/voxsynq/realtime/internal/store"
)

// ReadUpdate is the watermark payload pushed after a successful advance, so
// clients recompute "seen" indicators without polling.
type ReadUpdate struct {
	UserID            string `json:"userId"`
	OtherUserID       string `json:"otherUserId,omitempty"`
	GroupID           string `json:"groupId,omitempty"`
	LastReadTimestamp int64  `json:"lastReadTimestamp"`
}

// Tracker maintains the "read up to" watermarks. Watermarks are epoch-millis
// values that only ever advance; a stale mark is a silent no-op.
type Tracker struct {
	reads    store.ReadStatusStore
	messages store.MessageStore
	groups   store.GroupStore
	pub      Publisher
	log      *zap.SugaredLogger
}

func NewTracker(reads store.ReadStatusStore, messages store.MessageStore, groups store.GroupStore, pub Publisher, log *zap.SugaredLogger) *Tracker {
	return &Tracker{reads: reads, messages: messages, groups: groups, pub: pub, log: log}
}

// MarkReadPrivate advances the (viewer, counterpart) watermark and pushes the
// stored value to both parties.
func (t *Tracker) MarkReadPrivate(ctx context.Context, viewerID, otherUserID string, ts int64) (int64, error) {
	stored, err := t.reads.AdvancePrivate(ctx, viewerID, otherUserID, ts)
	if err != nil {
		return 0, err
	}
	update := ReadUpdate{UserID: viewerID, OtherUserID: otherUserID, LastReadTimestamp: stored}
	env := hub.Envelope{Type: hub.TypeReadPrivate, Payload: update}
	t.pub.Publish(hub.UserTopic(viewerID), env)
	t.pub.Publish(hub.UserTopic(otherUserID), env)
	return stored, nil
}

// MarkReadGroup advances the (viewer, group) watermark and pushes the stored
// value to the group topic.
func (t *Tracker) MarkReadGroup(ctx context.Context, viewerID, groupID string, ts int64) (int64, error) {
	if _, err := t.groups.Get(ctx, groupID); err != nil {
		return 0, err
	}
	stored, err := t.reads.AdvanceGroup(ctx, viewerID, groupID, ts)
	if err != nil {
		return 0, err
	}
	update := ReadUpdate{UserID: viewerID, GroupID: groupID, LastReadTimestamp: stored}
	t.pub.Publish(hub.GroupTopic(groupID), hub.Envelope{Type: hub.TypeReadGroup, Payload: update})
	return stored, nil
}

// UnreadPrivate counts messages from the counterpart strictly newer than the
// viewer's watermark. A user's own messages never count as unread.
func (t *Tracker) UnreadPrivate(ctx context.Context, viewerID, otherUserID string) (int64, error) {
	wm, err := t.reads.GetPrivate(ctx, viewerID, otherUserID)
	if err != nil {
		return 0, err
	}
	return t.messages.CountPrivateUnread(ctx, viewerID, otherUserID, time.UnixMilli(wm).UTC())
}

func (t *Tracker) UnreadGroup(ctx context.Context, viewerID, groupID string) (int64, error) {
	wm, err := t.reads.GetGroup(ctx, viewerID, groupID)
	if err != nil {
		return 0, err
	}
	return t.messages.CountGroupUnread(ctx, viewerID, groupID, time.UnixMilli(wm).UTC())
}

// PrivateReadStatus returns how far the counterpart has read the viewer's
// messages (the swapped direction), which is what "seen" ticks render.
func (t *Tracker) PrivateReadStatus(ctx context.Context, viewerID, otherUserID string) (int64, error) {
	return t.reads.GetPrivate(ctx, otherUserID, viewerID)
}

// GroupWatermarks returns the per-member watermark map for group read
// receipts.
func (t *Tracker) GroupWatermarks(ctx context.Context, groupID string) (map[string]int64, error) {
	if _, err := t.groups.Get(ctx, groupID); err != nil {
		return nil, err
	}
	return t.reads.GroupWatermarks(ctx, groupID)
}
