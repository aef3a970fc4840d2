package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/voxsynq/realtime/internal/apperr"
	"github.com/voxsynq/realtime/internal/chat"
)

type messageHandlers struct {
	chat    *chat.Service
	tracker *chat.Tracker
}

func (h *messageHandlers) register(r fiber.Router) {
	r.Post("/messages/private", h.sendPrivate)
	r.Get("/messages/conversations", h.conversations)
	r.Get("/messages/history/:otherUserId", h.history)
	r.Post("/messages/group/:groupId", h.sendGroup)
	r.Get("/messages/group/:groupId", h.groupHistory)
	r.Put("/messages/private/:otherUserId/read", h.markReadPrivate)
	r.Get("/messages/private/:otherUserId/unread-count", h.unreadPrivate)
	r.Get("/messages/private/:otherUserId/read-status", h.readStatusPrivate)
}

func (h *messageHandlers) sendPrivate(c *fiber.Ctx) error {
	var req struct {
		RecipientID string `json:"recipientId"`
		chat.SendRequest
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.InvalidArg("invalid body"))
	}
	msg, err := h.chat.SendPrivate(c.Context(), identityFrom(c).UserID, req.RecipientID, req.SendRequest)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *messageHandlers) conversations(c *fiber.Ctx) error {
	msgs, err := h.chat.Conversations(c.Context(), identityFrom(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(msgs)
}

func (h *messageHandlers) history(c *fiber.Ctx) error {
	msgs, err := h.chat.History(c.Context(), identityFrom(c).UserID, c.Params("otherUserId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(msgs)
}

func (h *messageHandlers) sendGroup(c *fiber.Ctx) error {
	var req chat.SendRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.InvalidArg("invalid body"))
	}
	msg, err := h.chat.SendGroup(c.Context(), identityFrom(c).UserID, c.Params("groupId"), req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *messageHandlers) groupHistory(c *fiber.Ctx) error {
	msgs, err := h.chat.GroupHistory(c.Context(), c.Params("groupId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(msgs)
}

func parseTimestamp(c *fiber.Ctx) (int64, error) {
	ts, err := strconv.ParseInt(c.Query("timestamp"), 10, 64)
	if err != nil {
		return 0, apperr.InvalidArg("timestamp query parameter required")
	}
	return ts, nil
}

func (h *messageHandlers) markReadPrivate(c *fiber.Ctx) error {
	ts, err := parseTimestamp(c)
	if err != nil {
		return fail(c, err)
	}
	stored, err := h.tracker.MarkReadPrivate(c.Context(), identityFrom(c).UserID, c.Params("otherUserId"), ts)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"lastReadTimestamp": stored})
}

func (h *messageHandlers) unreadPrivate(c *fiber.Ctx) error {
	n, err := h.tracker.UnreadPrivate(c.Context(), identityFrom(c).UserID, c.Params("otherUserId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(n)
}

func (h *messageHandlers) readStatusPrivate(c *fiber.Ctx) error {
	ts, err := h.tracker.PrivateReadStatus(c.Context(), identityFrom(c).UserID, c.Params("otherUserId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"lastReadTimestamp": ts})
}
