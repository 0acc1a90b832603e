package handlers

import (
	"errors"
	"log/slog"

	"github.com/SergeSyntax/mock-server/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders errors returned by handlers. Details of 5xx errors
// are logged, never sent.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	if code >= 500 {
		slog.Error("unhandled server error",
			"request_id", c.Locals("requestid"),
			"method", c.Method(),
			"path", c.Path(),
			"error", err.Error(),
		)
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{
		Error:   true,
		Message: message,
	})
}
