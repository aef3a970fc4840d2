// Package hub is the session registry: it binds authenticated identities to
// live connections and fans published payloads out to logical topics.
//
// A single in-process hub is the broker for one deployment. Running more than
// one instance would need an external bus behind the same Publish interface;
// that is a scaling boundary, not part of the core contract.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	pushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_hub_pushes_total",
		Help: "Payloads delivered to connected subscribers.",
	}, []string{"type"})
	pushDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_hub_push_drops_total",
		Help: "Payloads dropped because the subscriber send buffer was full.",
	}, []string{"type"})
)

// Envelope is the framing for every websocket push.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Push envelope types.
const (
	TypeMessage      = "message"
	TypeReadPrivate  = "read.private"
	TypeReadGroup    = "read.group"
	TypeGroupUpdated = "group.updated"
	TypeCallSignal   = "call.signal"
)

// Topic naming. One user topic and one call topic per identity, one topic per
// group for metadata and read-state pushes.
func UserTopic(userID string) string   { return "user:" + userID }
func CallTopic(userID string) string   { return "call:" + userID }
func GroupTopic(groupID string) string { return "group:" + groupID }

// Client is one live connection. The hub owns the lifecycle of the send
// channel: it is closed on Unregister and never written to afterwards.
type Client struct {
	UserID string
	send   chan []byte

	closeOnce sync.Once
}

func NewClient(userID string, buffer int) *Client {
	return &Client{UserID: userID, send: make(chan []byte, buffer)}
}

// Outbound is the stream the connection's write pump drains.
func (c *Client) Outbound() <-chan []byte { return c.send }

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Client]struct{} // topic -> subscribers
	topics map[*Client][]string            // reverse index for unregister
	users  map[string]map[*Client]struct{} // identity -> live connections
	log    *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Client]struct{}),
		topics: make(map[*Client][]string),
		users:  make(map[string]map[*Client]struct{}),
		log:    log,
	}
}

// Register binds a client to its derived topics. Called once per successful
// handshake, after credential verification.
func (h *Hub) Register(c *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.topics[c] = topics
	for _, t := range topics {
		if h.subs[t] == nil {
			h.subs[t] = make(map[*Client]struct{})
		}
		h.subs[t][c] = struct{}{}
	}
	if h.users[c.UserID] == nil {
		h.users[c.UserID] = make(map[*Client]struct{})
	}
	h.users[c.UserID][c] = struct{}{}
}

// Unregister removes the client and closes its send channel. Idempotent.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	topics, ok := h.topics[c]
	if ok {
		delete(h.topics, c)
		for _, t := range topics {
			if set := h.subs[t]; set != nil {
				delete(set, c)
				if len(set) == 0 {
					delete(h.subs, t)
				}
			}
		}
		if set := h.users[c.UserID]; set != nil {
			delete(set, c)
			if len(set) == 0 {
				delete(h.users, c.UserID)
			}
		}
	}
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

// Connected reports whether the identity has at least one live connection.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// Publish fans env out to every subscriber of topic. Delivery is at most
// once: an absent topic delivers nothing, and a slow consumer's payload is
// dropped rather than blocking the caller.
func (h *Hub) Publish(topic string, env Envelope) {
	b, err := json.Marshal(env)
	if err != nil {
		h.log.Errorw("marshal push", "topic", topic, "err", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.subs[topic] {
		select {
		case c.send <- b:
			pushesTotal.WithLabelValues(env.Type).Inc()
		default:
			pushDropsTotal.WithLabelValues(env.Type).Inc()
			h.log.Warnw("push dropped, slow consumer", "topic", topic, "user", c.UserID)
		}
	}
}
