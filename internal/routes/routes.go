package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	roles middleware.RoleChecker,
	healthHandler *handlers.HealthHandler,
	contentHandler *handlers.ContentHandler,
	streamHandler *handlers.StreamHandler,
	userHandler *handlers.UserHandler,
	adminHandler *handlers.AdminHandler,
) {
	api := app.Group("/api")

	// General API rate limit: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	protected := middleware.JWTProtected(cfg)
	optional := middleware.OptionalJWT(cfg)

	// Provisioning: session optional, but must match the uid when present
	api.Post("/user", optional, userHandler.Provision)

	// Public browsing. Streams are registered before /content/:id.
	api.Get("/topics", contentHandler.Topics)
	api.Get("/content", contentHandler.ListApproved)
	api.Get("/content/stream", streamHandler.Approved)
	api.Get("/content/:id", optional, contentHandler.GetPublic)

	// Uploads: stricter limit, 10 req/min per IP
	api.Post("/content", limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}), protected, contentHandler.Upload)
	api.Get("/content/:id/progress", protected, streamHandler.Progress)

	// My content
	me := api.Group("/me", protected)
	me.Get("/profile", userHandler.Profile)
	me.Put("/topics", userHandler.FollowTopics)
	me.Get("/content", contentHandler.ListMine)
	me.Get("/content/stream", streamHandler.Mine)
	me.Get("/content/:id", contentHandler.GetMine)
	me.Put("/content/:id", contentHandler.Edit)
	me.Post("/content/:id/archive", contentHandler.Archive)
	me.Delete("/content/:id", contentHandler.Delete)

	// Admin review; X-Admin-Token works without a bearer token
	admin := api.Group("/admin", optional, middleware.AdminRequired(roles, cfg))
	admin.Get("/content", adminHandler.ListContent)
	admin.Put("/content/:id/review", adminHandler.Review)
}
