package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeSyntax/mock-server/internal/dto"
	"github.com/SergeSyntax/mock-server/internal/models"
	"github.com/gofiber/fiber/v2"
)

// ErrUserNotFound is returned by Users when no record matches. Any other
// lookup error is treated as a server failure, not a rejection.
var ErrUserNotFound = errors.New("user not found")

// Kind names a verification procedure a route can require.
type Kind int

const (
	// BearerToken verifies "Authorization: Bearer <jwt>" against the store.
	BearerToken Kind = iota
	// Credentials verifies an email and password from the request body.
	Credentials
)

func (k Kind) String() string {
	switch k {
	case BearerToken:
		return "bearer-token"
	case Credentials:
		return "credentials"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Strategy is one way of establishing the principal of a request.
type Strategy interface {
	Kind() Kind
	// Handler authenticates the request, stores the principal and calls
	// the next handler, or rejects with 401.
	Handler() fiber.Handler
}

// Users is the lookup the strategies need from the credential store.
type Users interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Guard holds the registered strategies and hands out route middleware.
type Guard struct {
	strategies map[Kind]Strategy
}

func NewGuard(strategies ...Strategy) *Guard {
	g := &Guard{strategies: make(map[Kind]Strategy, len(strategies))}
	for _, s := range strategies {
		g.strategies[s.Kind()] = s
	}
	return g
}

// Require returns the middleware for kind. Routes declare their requirement
// at setup, so an unregistered kind is a programming error.
func (g *Guard) Require(kind Kind) fiber.Handler {
	s, ok := g.strategies[kind]
	if !ok {
		panic(fmt.Sprintf("auth: no strategy registered for %s", kind))
	}
	return s.Handler()
}

const principalKey = "principal"

// SetPrincipal stores the authenticated user on the request.
func SetPrincipal(c *fiber.Ctx, user *models.User) {
	c.Locals(principalKey, user)
}

// Principal returns the authenticated user, or nil outside a guarded route.
func Principal(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(principalKey).(*models.User)
	return user
}

// reject maps a lookup failure to 401 for unknown users and to 500 otherwise.
func reject(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrUserNotFound) {
		return unauthorized(c)
	}
	return fmt.Errorf("failed to resolve principal: %w", err)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}
