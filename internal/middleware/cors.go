package middleware

import (
	"strings"

	"github.com/SergeSyntax/mock-server/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS lets browser clients read the token and pagination headers. With an
// explicit origin list, credentials are allowed too.
func CORS(cfg *config.Config) fiber.Handler {
	origins := strings.TrimSpace(cfg.CORSOrigins)
	if origins == "" {
		origins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept",
		AllowMethods:     "GET, POST, PUT, DELETE, PATCH, OPTIONS",
		ExposeHeaders:    "Authorization, X-Total-Count, Link",
		AllowCredentials: origins != "*",
		MaxAge:           600,
	})
}
