// Package api wires the REST surface and the websocket upgrade endpoint
// onto a fiber app.
package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/voxsynq/realtime/internal/auth"
	"github.com/voxsynq/realtime/internal/call"
	"github.com/voxsynq/realtime/internal/chat"
	"github.com/voxsynq/realtime/internal/group"
	"github.com/voxsynq/realtime/internal/presence"
	"github.com/voxsynq/realtime/internal/ws"
)

type Deps struct {
	Verifier *auth.Verifier
	Chat     *chat.Service
	Tracker  *chat.Tracker
	Groups   *group.Service
	Calls    *call.Service
	Presence *presence.Store
	WS       *ws.Handler
	Limiter  *IPRateLimiter
	Log      *zap.SugaredLogger
}

func NewServer(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// websocket handshake; credential verification happens inside Serve
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(d.WS.Serve))

	api := app.Group("/api", d.Limiter.Handler(), JWTAuth(d.Verifier))

	(&messageHandlers{chat: d.Chat, tracker: d.Tracker}).register(api)
	(&groupHandlers{groups: d.Groups, tracker: d.Tracker}).register(api)
	(&callHandlers{calls: d.Calls, presence: d.Presence}).register(api)

	d.Log.Infow("routes registered")
	return app
}
