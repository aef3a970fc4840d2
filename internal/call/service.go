// Package call relays ephemeral signaling between two identities and keeps
// the durable call-session ledger. The relay is stateless; the ledger is
// append-mostly with exactly one terminal update per session.
package call

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
	calls store.CallStore
	ids   identity.Resolver
	pub   Publisher
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewService(calls store.CallStore, ids identity.Resolver, pub Publisher, log *zap.SugaredLogger) *Service {
	return &Service{
		calls: calls,
		ids:   ids,
		pub:   pub,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Relay forwards the signal to the target identity's call topic. No call
// state is validated and nothing is persisted; if the target has no
// registered connection the signal is dropped. At most once, best effort.
func (s *Service) Relay(sig Signal) {
	s.pub.Publish(hub.CallTopic(sig.To()), hub.Envelope{Type: hub.TypeCallSignal, Payload: encode(sig)})
}

// Start records the call attempt. Record creation is independent of whether
// any signaling is ever delivered.
func (s *Service) Start(ctx context.Context, callerID, calleeID string, typ model.CallType) (*model.CallSession, error) {
	if typ != model.CallAudio && typ != model.CallVideo {
		return nil, apperr.InvalidArg("invalid call type: " + string(typ))
	}
	if _, err := s.ids.Resolve(ctx, callerID); err != nil {
		return nil, err
	}
	if _, err := s.ids.Resolve(ctx, calleeID); err != nil {
		return nil, err
	}
	return s.calls.Insert(ctx, &model.CallSession{
		CallerID: callerID,
		CalleeID: calleeID,
		StartAt:  s.now(),
		Status:   model.CallOngoing,
		Type:     typ,
	})
}

// End stamps the terminal status and end time. Re-ending an already-ended
// call is accepted; the last write wins.
func (s *Service) End(ctx context.Context, callID string, status model.CallStatus) (*model.CallSession, error) {
	if !status.Terminal() {
		return nil, apperr.InvalidArg("invalid terminal status: " + string(status))
	}
	return s.calls.End(ctx, callID, status, s.now())
}

// HistoryFor lists sessions where the identity is caller or callee, enriched
// with both parties' profiles.
func (s *Service) HistoryFor(ctx context.Context, userID string) ([]*model.CallSession, error) {
	sessions, err := s.calls.HistoryFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	profiles := make(map[string]*model.Profile)
	resolve := func(id string) *model.Profile {
		if p, ok := profiles[id]; ok {
			return p
		}
		p, err := s.ids.Resolve(ctx, id)
		if err != nil {
			p = identity.Placeholder(id)
		}
		profiles[id] = p
		return p
	}
	for _, c := range sessions {
		c.Caller = resolve(c.CallerID)
		c.Callee = resolve(c.CalleeID)
	}
	return sessions, nil
}
