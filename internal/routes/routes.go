package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/config"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Health      *handlers.HealthHandler
	Credentials *handlers.CredentialHandler
	Reports     *handlers.ReportHandler
}

func Setup(app *fiber.App, cfg *config.Config, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)

	jwt := middleware.JWTProtected(cfg)
	api.Post("/auth/logout", jwt, h.Auth.Logout)
	api.Delete("/auth/account", jwt, h.Auth.DeleteAccount)

	// Static segments are registered before /:id so they win the match.
	creds := api.Group("/credentials/:provider", jwt)
	creds.Post("/", h.Credentials.Create)
	creds.Get("/", h.Credentials.Active)
	creds.Get("/all", h.Credentials.List)
	creds.Get("/exists", h.Credentials.Exists)
	creds.Post("/test", h.Credentials.TestCandidate)
	creds.Get("/:id", h.Credentials.Get)
	creds.Put("/:id", h.Credentials.Update)
	creds.Delete("/:id", h.Credentials.Delete)
	creds.Post("/:id/test", h.Credentials.TestStored)

	rep := api.Group("/reports", jwt)
	// Generation calls paid AI backends: 10 req/min per user token.
	generation := limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			if id, err := middleware.CurrentUserID(c); err == nil {
				return id.String()
			}
			return c.IP()
		},
	})
	rep.Post("/generate", generation, h.Reports.Generate)
	rep.Get("/", h.Reports.List)
	rep.Get("/date/:date", h.Reports.GetByDate)
	rep.Get("/:id", h.Reports.Get)
	rep.Put("/:id", h.Reports.Update)
	rep.Delete("/:id", h.Reports.Delete)
	rep.Post("/:id/regenerate", generation, h.Reports.Regenerate)
	rep.Post("/:id/approve", h.Reports.Approve)
	rep.Post("/:id/reopen", h.Reports.Reopen)
	rep.Get("/:id/export", h.Reports.Export)
}
