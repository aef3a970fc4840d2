package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voxsynq/realtime/internal/apperr"
	"github.com/voxsynq/realtime/internal/call"
	"github.com/voxsynq/realtime/internal/model"
	"github.com/voxsynq/realtime/internal/presence"
)

type callHandlers struct {
	calls    *call.Service
	presence *presence.Store
}

func (h *callHandlers) register(r fiber.Router) {
	r.Post("/calls/start", h.start)
	r.Post("/calls/end", h.end)
	r.Get("/calls/history", h.history)
	r.Get("/users/:id/presence", h.userPresence)
}

func (h *callHandlers) start(c *fiber.Ctx) error {
	var req struct {
		CalleeID string `json:"calleeId"`
		Type     string `json:"type"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.InvalidArg("invalid body"))
	}
	session, err := h.calls.Start(c.Context(), identityFrom(c).UserID, req.CalleeID, model.CallType(req.Type))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

func (h *callHandlers) end(c *fiber.Ctx) error {
	var req struct {
		CallID string `json:"callId"`
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.InvalidArg("invalid body"))
	}
	session, err := h.calls.End(c.Context(), req.CallID, model.CallStatus(req.Status))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(session)
}

func (h *callHandlers) history(c *fiber.Ctx) error {
	sessions, err := h.calls.HistoryFor(c.Context(), identityFrom(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sessions)
}

func (h *callHandlers) userPresence(c *fiber.Ctx) error {
	online, err := h.presence.IsOnline(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"online": online})
}
