package handlers

import (
	"errors"

	"github.com/SergeSyntax/mock-server/internal/auth"
	"github.com/SergeSyntax/mock-server/internal/dto"
	"github.com/SergeSyntax/mock-server/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	body, err := parseRecord(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	user, token, err := h.authService.Register(c.UserContext(), body)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ValidationErrorResponse{
				Error: true, Message: verr.Error(), Fields: verr.Fields,
			})
		case errors.Is(err, services.ErrEmailTaken):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return err
	}

	c.Set(fiber.HeaderAuthorization, token)
	return c.JSON(user)
}

// Login runs behind the credentials strategy, which has already checked the
// password and stored the principal.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	user := auth.Principal(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	token, err := h.authService.IssueToken(user)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderAuthorization, token)
	return c.JSON(user.Redacted())
}

func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	user := auth.Principal(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	return c.JSON(user.Redacted())
}
