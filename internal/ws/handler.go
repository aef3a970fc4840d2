// Package ws is the connection edge: it performs the authenticated
// handshake, registers the connection in the hub under its derived topics,
// and dispatches inbound frames to the router and the signaling relay.
package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voxsynq/realtime/internal/auth"
	"github.com/voxsynq/realtime/internal/call"
	"github.com/voxsynq/realtime/internal/chat"
	"github.com/voxsynq/realtime/internal/hub"
	"github.com/voxsynq/realtime/internal/presence"
	"github.com/voxsynq/realtime/internal/store"
)

// Inbound frame types.
const (
	typePrivateMessage = "chat.privateMessage"
	typeGroupSend      = "chat.group.send"
	typeCallSignal     = "call.signal"
)

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type privatePayload struct {
	RecipientID string `json:"recipientId"`
	chat.SendRequest
}

type groupPayload struct {
	GroupID string `json:"groupId"`
	chat.SendRequest
}

type Config struct {
	PingInterval  time.Duration
	WriteDeadline time.Duration
	MaxMsgSize    int64
	SendBuffer    int
}

type Handler struct {
	verifier *auth.Verifier
	hub      *hub.Hub
	chat     *chat.Service
	calls    *call.Service
	groups   store.GroupStore
	presence *presence.Store
	cfg      Config
	log      *zap.SugaredLogger
}

func NewHandler(verifier *auth.Verifier, h *hub.Hub, chatSvc *chat.Service, callSvc *call.Service, groups store.GroupStore, pres *presence.Store, cfg Config, log *zap.SugaredLogger) *Handler {
	return &Handler{
		verifier: verifier,
		hub:      h,
		chat:     chatSvc,
		calls:    callSvc,
		groups:   groups,
		presence: pres,
		cfg:      cfg,
		log:      log,
	}
}

// Serve handles one upgraded connection: /ws?token=<jwt>. A rejected
// credential closes the socket before anything is registered.
func (h *Handler) Serve(conn *websocket.Conn) {
	id, err := h.verifier.Verify(conn.Query("token"))
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	socketID := uuid.New().String()
	log := h.log.With("user", id.UserID, "socket", socketID)

	// topics are derived once per handshake: the canonical user topics plus
	// one topic per group the identity currently belongs to
	ctx := context.Background()
	topics := []string{hub.UserTopic(id.UserID), hub.CallTopic(id.UserID)}
	groups, err := h.groups.GroupsFor(ctx, id.UserID)
	if err != nil {
		log.Warnw("membership read at handshake failed", "err", err)
	}
	for _, g := range groups {
		topics = append(topics, hub.GroupTopic(g.ID.Hex()))
	}

	client := hub.NewClient(id.UserID, h.cfg.SendBuffer)
	h.hub.Register(client, topics)
	if err := h.presence.SetOnline(ctx, id.UserID); err != nil {
		log.Warnw("presence set failed", "err", err)
	}
	log.Infow("connection registered", "topics", len(topics))

	go h.writePump(conn, client, log)
	h.readLoop(ctx, conn, id, log)

	h.hub.Unregister(client)
	if !h.hub.Connected(id.UserID) {
		if err := h.presence.SetOffline(ctx, id.UserID); err != nil {
			log.Warnw("presence clear failed", "err", err)
		}
	}
	log.Infow("connection closed")
}

// readLoop processes inbound frames strictly in arrival order for this
// connection.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, id auth.Identity, log *zap.SugaredLogger) {
	conn.SetReadLimit(h.cfg.MaxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
	})

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			log.Debugw("malformed frame", "err", err)
			continue
		}
		switch in.Type {
		case typePrivateMessage:
			var p privatePayload
			if err := json.Unmarshal(in.Payload, &p); err != nil {
				continue
			}
			// sender identity comes from the handshake, never the payload
			if _, err := h.chat.SendPrivate(ctx, id.UserID, p.RecipientID, p.SendRequest); err != nil {
				log.Warnw("private send failed", "recipient", p.RecipientID, "err", err)
			}
		case typeGroupSend:
			var p groupPayload
			if err := json.Unmarshal(in.Payload, &p); err != nil {
				continue
			}
			if _, err := h.chat.SendGroup(ctx, id.UserID, p.GroupID, p.SendRequest); err != nil {
				log.Warnw("group send failed", "group", p.GroupID, "err", err)
			}
		case typeCallSignal:
			sig, err := call.Decode(in.Payload)
			if err != nil {
				log.Debugw("bad signal", "err", err)
				continue
			}
			if sig.From() != id.UserID {
				log.Warnw("signal sender mismatch, dropped", "claimed", sig.From())
				continue
			}
			h.calls.Relay(sig)
		default:
			// unknown frame types are ignored
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, client *hub.Client, log *zap.SugaredLogger) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case b, ok := <-client.Outbound():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteDeadline))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Debugw("write failed", "err", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteDeadline))
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
