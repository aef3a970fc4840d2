// Package chat is the message router and read-status tracker: it persists
// chat messages, fans them out to live destinations, and maintains per-user
// read watermarks.
package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/voxsynq/realtime/internal/apperr"
	"github.com/voxsynq/realtime/internal/hub"
	"github.com/voxsynq/realtime/internal/identity"
	"github.com/voxsynq/realtime/internal/model"
	"github.com/voxsynq/realtime/internal/notify"
	"github.com/voxsynq/realtime/internal/store"
)

// Publisher is the slice of the hub the router needs: push to a topic, and
// ask whether an identity is currently connected.
type Publisher interface {
	Publish(topic string, env hub.Envelope)
	Connected(userID string) bool
}

// SendRequest is the client-supplied part of a message. The sender identity
// is never taken from the payload; it comes from the authenticated boundary.
type SendRequest struct {
	Content             string `json:"content"`
	ImageURL            string `json:"imageUrl"`
	AudioURL            string `json:"audioUrl"`
	AudioDurationMillis int64  `json:"audioDurationMillis"`
	ReplyTo             string `json:"replyTo"`
}

type Service struct {
	messages store.MessageStore
	groups   store.GroupStore
	ids      identity.Resolver
	pub      Publisher
	notif    notify.Notifier
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewService(messages store.MessageStore, groups store.GroupStore, ids identity.Resolver, pub Publisher, notif notify.Notifier, log *zap.SugaredLogger) *Service {
	return &Service{
		messages: messages,
		groups:   groups,
		ids:      ids,
		pub:      pub,
		notif:    notif,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SendPrivate persists a direct message and pushes the stored form to both
// the recipient's and the sender's user topics. The sender push keeps other
// devices of the same account in sync; it is deliberate, not an echo bug.
func (s *Service) SendPrivate(ctx context.Context, senderID, recipientID string, req SendRequest) (*model.Message, error) {
	if senderID == recipientID {
		return nil, apperr.InvalidArg("cannot message yourself")
	}
	sender, err := s.ids.Resolve(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ids.Resolve(ctx, recipientID); err != nil {
		return nil, err
	}

	m := &model.Message{
		SenderID:            senderID,
		RecipientID:         recipientID,
		Content:             req.Content,
		ImageURL:            req.ImageURL,
		AudioURL:            req.AudioURL,
		AudioDurationMillis: req.AudioDurationMillis,
		ReplyTo:             req.ReplyTo,
		Timestamp:           s.now(),
	}
	if !m.HasContent() {
		return nil, apperr.InvalidArg("empty message")
	}
	m, err = s.messages.Insert(ctx, m)
	if err != nil {
		return nil, err
	}
	m.SenderUsername = sender.Username
	m.SenderAvatarURL = sender.AvatarURL

	env := hub.Envelope{Type: hub.TypeMessage, Payload: m}
	s.pub.Publish(hub.UserTopic(recipientID), env)
	s.pub.Publish(hub.UserTopic(senderID), env)

	if !s.pub.Connected(recipientID) {
		s.notif.MessageReceived(ctx, recipientID, m)
	}
	return m, nil
}

// SendGroup persists a group message and pushes it to every member's user
// topic, sender included. Membership is re-read at send time so a concurrent
// add or remove is reflected immediately.
func (s *Service) SendGroup(ctx context.Context, senderID, groupID string, req SendRequest) (*model.Message, error) {
	if _, err := s.groups.Get(ctx, groupID); err != nil {
		return nil, err
	}
	member, err := s.groups.IsMember(ctx, groupID, senderID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperr.Forbidden("not a member of this group")
	}
	sender, err := s.ids.Resolve(ctx, senderID)
	if err != nil {
		return nil, err
	}

	m := &model.Message{
		SenderID:            senderID,
		GroupID:             groupID,
		Content:             req.Content,
		ImageURL:            req.ImageURL,
		AudioURL:            req.AudioURL,
		AudioDurationMillis: req.AudioDurationMillis,
		Timestamp:           s.now(),
	}
	if !m.HasContent() {
		return nil, apperr.InvalidArg("empty message")
	}
	m, err = s.messages.Insert(ctx, m)
	if err != nil {
		return nil, err
	}
	m.SenderUsername = sender.Username
	m.SenderAvatarURL = sender.AvatarURL

	members, err := s.groups.Members(ctx, groupID)
	if err != nil {
		// persisted but undelivered; members will see it on next history fetch
		s.log.Warnw("group fan-out membership read failed", "group", groupID, "err", err)
		return m, nil
	}
	env := hub.Envelope{Type: hub.TypeMessage, Payload: m}
	for _, uid := range members {
		s.pub.Publish(hub.UserTopic(uid), env)
		if uid != senderID && !s.pub.Connected(uid) {
			s.notif.MessageReceived(ctx, uid, m)
		}
	}
	return m, nil
}

// History returns the private thread between two users ordered by timestamp.
// Reply references are resolved and attached for display.
func (s *Service) History(ctx context.Context, userID, otherUserID string) ([]*model.Message, error) {
	msgs, err := s.messages.History(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}
	s.attachReplies(ctx, msgs)
	s.enrichSenders(ctx, msgs)
	return msgs, nil
}

// GroupHistory is ordered newest first.
func (s *Service) GroupHistory(ctx context.Context, groupID string) ([]*model.Message, error) {
	if _, err := s.groups.Get(ctx, groupID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.GroupHistory(ctx, groupID)
	if err != nil {
		return nil, err
	}
	s.enrichSenders(ctx, msgs)
	return msgs, nil
}

// Conversations returns the most recent message per counterpart, for the
// conversation-list view. Order between equal timestamps is undefined.
func (s *Service) Conversations(ctx context.Context, userID string) ([]*model.Message, error) {
	msgs, err := s.messages.LatestPerConversation(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.enrichSenders(ctx, msgs)
	return msgs, nil
}

func (s *Service) attachReplies(ctx context.Context, msgs []*model.Message) {
	byID := make(map[string]*model.Message, len(msgs))
	for _, m := range msgs {
		byID[m.ID.Hex()] = m
	}
	for _, m := range msgs {
		if m.ReplyTo == "" {
			continue
		}
		if ref, ok := byID[m.ReplyTo]; ok {
			m.ReplyToMessage = ref
			continue
		}
		ref, err := s.messages.GetByID(ctx, m.ReplyTo)
		if err != nil {
			// dangling reference, leave unresolved
			continue
		}
		m.ReplyToMessage = ref
	}
}

// enrichSenders fills display fields from the identity service. Lookup
// failures degrade to a placeholder, never to an error.
func (s *Service) enrichSenders(ctx context.Context, msgs []*model.Message) {
	profiles := make(map[string]*model.Profile)
	for _, m := range msgs {
		p, ok := profiles[m.SenderID]
		if !ok {
			var err error
			p, err = s.ids.Resolve(ctx, m.SenderID)
			if err != nil {
				p = identity.Placeholder(m.SenderID)
			}
			profiles[m.SenderID] = p
		}
		m.SenderUsername = p.Username
		m.SenderAvatarURL = p.AvatarURL
	}
}
