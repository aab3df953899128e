package handlers

import (
	"arena-battle-system/middleware"
	"arena-battle-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBattleRoutes(app *fiber.App, roomService *services.RoomService) {
	// Groups on "/" would apply their middleware to every route, so identity
	// is attached per route.
	withUser := middleware.UserContextMiddleware(false)
	requireUser := middleware.UserContextMiddleware(true)

	// 🔓 Read-only routes: room state and the battle log
	app.Get("/rooms/:id", withUser, roomService.GetRoom)
	app.Get("/rooms/:id/events", withUser, roomService.ListEvents)
	app.Get("/rooms/:id/events/stream", withUser, roomService.StreamEvents)
	app.Get("/users/search", withUser, roomService.SearchUsers)

	// 🔐 Authenticated routes
	app.Post("/rooms", requireUser, roomService.CreateRoom)
	app.Post("/rooms/:id/join", requireUser, roomService.JoinRoom)
	app.Post("/rooms/:id/start", requireUser, roomService.StartRoom)
	app.Post("/rooms/:id/cancel", requireUser, roomService.CancelRoom)
}
