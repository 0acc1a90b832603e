package middleware

import (
	"bytes"
	"strings"
	"time"

	"github.com/SergeSyntax/mock-server/internal/auth"
	"github.com/SergeSyntax/mock-server/internal/dto"
	"github.com/SergeSyntax/mock-server/internal/models"
	"github.com/SergeSyntax/mock-server/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Stamp rewrites JSON write bodies before they reach the resource handlers:
// POST gets a fresh id and createdAt/updatedAt, PUT and PATCH get updatedAt.
func Stamp(now func() time.Time) fiber.Handler {
	if now == nil {
		now = time.Now
	}
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost:
			return rewriteBody(c, func(rec store.Record) {
				ts := models.Timestamp(now())
				rec["id"] = uuid.NewString()
				rec["createdAt"] = ts
				rec["updatedAt"] = ts
			})
		case fiber.MethodPut, fiber.MethodPatch:
			return rewriteBody(c, func(rec store.Record) {
				rec["updatedAt"] = models.Timestamp(now())
			})
		}
		return c.Next()
	}
}

// OwnedBy forces the owner field of writes to collection to the principal's
// id, whatever the client sent. It must run after the bearer-token gate.
func OwnedBy(collection string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !isWrite(c.Method()) || TargetCollection(c.Path()) != collection {
			return c.Next()
		}
		user := auth.Principal(c)
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		return rewriteBody(c, func(rec store.Record) {
			rec["owner"] = user.ID
		})
	}
}

// TargetCollection returns the collection a resource path writes to:
// "/projects/1" -> "projects", "/users/1/projects" -> "projects".
func TargetCollection(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 3 {
		return parts[2]
	}
	return parts[0]
}

func isWrite(method string) bool {
	switch method {
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch:
		return true
	}
	return false
}

// rewriteBody decodes the body as a JSON object, applies mutate and writes
// it back. An empty body counts as {}.
func rewriteBody(c *fiber.Ctx, mutate func(store.Record)) error {
	cfg := c.App().Config()

	rec := store.Record{}
	if body := bytes.TrimSpace(c.Body()); len(body) > 0 {
		if err := cfg.JSONDecoder(body, &rec); err != nil || rec == nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Request body must be a JSON object",
			})
		}
	}

	mutate(rec)

	out, err := cfg.JSONEncoder(rec)
	if err != nil {
		return err
	}
	c.Request().SetBody(out)
	c.Request().Header.SetContentType(fiber.MIMEApplicationJSON)
	return c.Next()
}
