// Package model holds the persistent and wire types of the realtime core.
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Profile is the externally-owned identity projection. The core stores only
// foreign references to it; fields beyond ID are display enrichment.
type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Member is a group member as rendered to clients.
type Member struct {
	Profile
	IsAdmin bool `json:"isAdmin"`
}

// Message is immutable once created. Exactly one of RecipientID and GroupID is
// set: a message has a recipient XOR a group, never both, never neither.
type Message struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SenderID            string             `bson:"sender_id" json:"senderId"`
	RecipientID         string             `bson:"recipient_id,omitempty" json:"recipientId,omitempty"`
	GroupID             string             `bson:"group_id,omitempty" json:"groupId,omitempty"`
	Content             string             `bson:"content,omitempty" json:"content,omitempty"`
	ImageURL            string             `bson:"image_url,omitempty" json:"imageUrl,omitempty"`
	AudioURL            string             `bson:"audio_url,omitempty" json:"audioUrl,omitempty"`
	AudioDurationMillis int64              `bson:"audio_duration_ms,omitempty" json:"audioDurationMillis,omitempty"`
	ReplyTo             string             `bson:"reply_to,omitempty" json:"replyTo,omitempty"`
	Timestamp           time.Time          `bson:"timestamp" json:"timestamp"`

	// Display enrichment, never persisted.
	SenderUsername  string   `bson:"-" json:"senderUsername,omitempty"`
	SenderAvatarURL string   `bson:"-" json:"senderAvatarUrl,omitempty"`
	ReplyToMessage  *Message `bson:"-" json:"replyToMessage,omitempty"`
}

// HasContent reports whether the message carries anything deliverable.
func (m *Message) HasContent() bool {
	return m.Content != "" || m.ImageURL != "" || m.AudioURL != ""
}

// Group is owned by the service and mutated only through the membership
// manager. CreatedBy is permanently the sole admin.
type Group struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	ImageURL  string             `bson:"image_url,omitempty" json:"imageUrl,omitempty"`
	CreatedBy string             `bson:"created_by" json:"createdById"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`

	Members []Member `bson:"-" json:"members,omitempty"`
}

type GroupMember struct {
	GroupID string    `bson:"group_id" json:"groupId"`
	UserID  string    `bson:"user_id" json:"userId"`
	AddedAt time.Time `bson:"added_at" json:"addedAt"`
}

// PrivateReadStatus tracks the watermark of one ordered (viewer, counterpart)
// pair. Each direction is an independent row. LastReadTimestamp is epoch
// milliseconds and only ever advances.
type PrivateReadStatus struct {
	UserID            string `bson:"user_id" json:"userId"`
	OtherUserID       string `bson:"other_user_id" json:"otherUserId"`
	LastReadTimestamp int64  `bson:"last_read_ts" json:"lastReadTimestamp"`
}

type GroupReadStatus struct {
	UserID            string `bson:"user_id" json:"userId"`
	GroupID           string `bson:"group_id" json:"groupId"`
	LastReadTimestamp int64  `bson:"last_read_ts" json:"lastReadTimestamp"`
}

type CallStatus string

const (
	CallOngoing  CallStatus = "ONGOING"
	CallEnded    CallStatus = "ENDED"
	CallRejected CallStatus = "REJECTED"
	CallMissed   CallStatus = "MISSED"
)

// Terminal reports whether s may close out a call session.
func (s CallStatus) Terminal() bool {
	return s == CallEnded || s == CallRejected || s == CallMissed
}

type CallType string

const (
	CallAudio CallType = "AUDIO"
	CallVideo CallType = "VIDEO"
)

// CallSession is the durable ledger entry for one call attempt. It is created
// at call start and mutated exactly once at call end, never deleted.
type CallSession struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CallerID string             `bson:"caller_id" json:"callerId"`
	CalleeID string             `bson:"callee_id" json:"calleeId"`
	StartAt  time.Time          `bson:"started_at" json:"startedAt"`
	EndAt    *time.Time         `bson:"ended_at,omitempty" json:"endedAt,omitempty"`
	Status   CallStatus         `bson:"status" json:"status"`
	Type     CallType           `bson:"type" json:"type"`

	// Display enrichment, never persisted.
	Caller *Profile `bson:"-" json:"caller,omitempty"`
	Callee *Profile `bson:"-" json:"callee,omitempty"`
}
