package routes

import (
	"os"
	"time"

	"github.com/SergeSyntax/mock-server/internal/auth"
	"github.com/SergeSyntax/mock-server/internal/config"
	"github.com/SergeSyntax/mock-server/internal/handlers"
	"github.com/SergeSyntax/mock-server/internal/middleware"
	"github.com/SergeSyntax/mock-server/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/rewrite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	guard *auth.Guard,
	gatherer prometheus.Gatherer,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	resourceHandler *handlers.ResourceHandler,
) {
	// Rewrites run in two passes so "/api/auth/login" ends at "/login".
	app.Use(rewrite.New(rewrite.Config{
		Rules: map[string]string{"^/api/*": "/$1"},
	}))
	app.Use(rewrite.New(rewrite.Config{
		Rules: map[string]string{
			"^/auth/registration": "/register",
			"^/auth/login":        "/login",
			"^/auth/profile":      "/profile",
		},
	}))

	// Auth: public, optionally rate limited per IP
	authLimit := func(c *fiber.Ctx) error { return c.Next() }
	if cfg.AuthRateLimit > 0 {
		authLimit = limiter.New(limiter.Config{
			Max:               cfg.AuthRateLimit,
			Expiration:        1 * time.Minute,
			LimiterMiddleware: limiter.SlidingWindow{},
			KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		})
	}
	app.Post("/register", authLimit, authHandler.Register)
	app.Post("/login", authLimit, guard.Require(auth.Credentials), authHandler.Login)
	app.Get("/profile", guard.Require(auth.BearerToken), authHandler.Profile)

	app.Get("/health", healthHandler.Check)
	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// Static files fall through to the API when nothing matches.
	if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
		app.Static("/", cfg.StaticDir)
	}

	// Everything else is the resource API behind the bearer token.
	api := app.Group("",
		guard.Require(auth.BearerToken),
		middleware.Stamp(time.Now),
		middleware.OwnedBy(models.CollectionProjects),
	)
	api.Get("/:parent/:id/:child", resourceHandler.ListNested)
	api.Post("/:parent/:id/:child", resourceHandler.CreateNested)
	api.Get("/:collection", resourceHandler.List)
	api.Post("/:collection", resourceHandler.Create)
	api.Get("/:collection/:id", resourceHandler.Get)
	api.Put("/:collection/:id", resourceHandler.Replace)
	api.Patch("/:collection/:id", resourceHandler.Patch)
	api.Delete("/:collection/:id", resourceHandler.Delete)
}
