// Package notify emits notification-create requests. Delivery is
// fire-and-forget: failures are logged and never surface to the operation
// that triggered them.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/voxsynq/realtime/internal/model"
)

type Notifier interface {
	MessageReceived(ctx context.Context, userID string, msg *model.Message)
}

type event struct {
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	MessageID string    `json:"messageId"`
	SenderID  string    `json:"senderId"`
	GroupID   string    `json:"groupId,omitempty"`
	Preview   string    `json:"preview,omitempty"`
	At        time.Time `json:"at"`
}

type KafkaNotifier struct {
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

func NewKafkaNotifier(brokers []string, topic string, log *zap.SugaredLogger) *KafkaNotifier {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &KafkaNotifier{writer: w, log: log}
}

func (n *KafkaNotifier) MessageReceived(ctx context.Context, userID string, msg *model.Message) {
	ev := event{
		UserID:    userID,
		Type:      "message",
		MessageID: msg.ID.Hex(),
		SenderID:  msg.SenderID,
		GroupID:   msg.GroupID,
		Preview:   preview(msg),
		At:        time.Now().UTC(),
	}
	b, err := json.Marshal(ev)
	if err != nil {
		n.log.Errorw("marshal notification", "err", err)
		return
	}
	if err := n.writer.WriteMessages(ctx, kafka.Message{Key: []byte(userID), Value: b}); err != nil {
		n.log.Warnw("notification publish failed", "user", userID, "err", err)
	}
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

func preview(m *model.Message) string {
	switch {
	case m.Content != "":
		if len(m.Content) > 120 {
			return m.Content[:120]
		}
		return m.Content
	case m.ImageURL != "":
		return "[image]"
	case m.AudioURL != "":
		return "[voice message]"
	}
	return ""
}

// Noop satisfies Notifier when no broker is configured (local runs, tests).
type Noop struct{}

func (Noop) MessageReceived(context.Context, string, *model.Message) {}
