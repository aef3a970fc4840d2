package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voxsynq/realtime/internal/apperr"
	"github.com/voxsynq/realtime/internal/chat"
	"github.com/voxsynq/realtime/internal/group"
)

type groupHandlers struct {
	groups  *group.Service
	tracker *chat.Tracker
}

func (h *groupHandlers) register(r fiber.Router) {
	r.Post("/groups", h.create)
	r.Get("/groups", h.list)
	r.Get("/groups/:id", h.get)
	r.Put("/groups/:id", h.update)
	r.Delete("/groups/:id", h.del)
	r.Get("/groups/:id/members", h.members)
	r.Post("/groups/:id/add-member/:userId", h.addMember)
	r.Delete("/groups/:id/remove-member/:userId", h.removeMember)
	r.Put("/groups/:id/read", h.markRead)
	r.Get("/groups/:id/unread-count", h.unread)
	r.Get("/groups/:id/read-status", h.readStatus)
}

func (h *groupHandlers) create(c *fiber.Ctx) error {
	var req struct {
		Name      string   `json:"name"`
		ImageURL  string   `json:"imageUrl"`
		MemberIDs []string `json:"memberIds"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.InvalidArg("invalid body"))
	}
	g, err := h.groups.Create(c.Context(), identityFrom(c).UserID, req.Name, req.ImageURL, req.MemberIDs)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(g)
}

func (h *groupHandlers) list(c *fiber.Ctx) error {
	groups, err := h.groups.GroupsFor(c.Context(), identityFrom(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(groups)
}

func (h *groupHandlers) get(c *fiber.Ctx) error {
	g, err := h.groups.Get(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(g)
}

func (h *groupHandlers) update(c *fiber.Ctx) error {
	var req struct {
		Name     string `json:"name"`
		ImageURL string `json:"imageUrl"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.InvalidArg("invalid body"))
	}
	g, err := h.groups.Update(c.Context(), c.Params("id"), identityFrom(c).UserID, req.Name, req.ImageURL)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(g)
}

func (h *groupHandlers) del(c *fiber.Ctx) error {
	if err := h.groups.Delete(c.Context(), c.Params("id"), identityFrom(c).UserID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *groupHandlers) members(c *fiber.Ctx) error {
	members, err := h.groups.Members(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(members)
}

func (h *groupHandlers) addMember(c *fiber.Ctx) error {
	err := h.groups.AddMember(c.Context(), c.Params("id"), c.Params("userId"), identityFrom(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *groupHandlers) removeMember(c *fiber.Ctx) error {
	err := h.groups.RemoveMember(c.Context(), c.Params("id"), c.Params("userId"), identityFrom(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *groupHandlers) markRead(c *fiber.Ctx) error {
	ts, err := parseTimestamp(c)
	if err != nil {
		return fail(c, err)
	}
	stored, err := h.tracker.MarkReadGroup(c.Context(), identityFrom(c).UserID, c.Params("id"), ts)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"lastReadTimestamp": stored})
}

func (h *groupHandlers) unread(c *fiber.Ctx) error {
	n, err := h.tracker.UnreadGroup(c.Context(), identityFrom(c).UserID, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(n)
}

func (h *groupHandlers) readStatus(c *fiber.Ctx) error {
	wm, err := h.tracker.GroupWatermarks(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(wm)
}
