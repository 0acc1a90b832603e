package auth

import (
	"log/slog"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const tokenKey = "token"

// Bearer validates the JWT in the Authorization header and resolves its
// subject to a stored user. A valid token for a deleted user is rejected.
type Bearer struct {
	tokens *TokenService
	users  Users
}

func NewBearer(tokens *TokenService, users Users) *Bearer {
	return &Bearer{tokens: tokens, users: users}
}

func (b *Bearer) Kind() Kind { return BearerToken }

func (b *Bearer) Handler() fiber.Handler {
	return jwtware.New(jwtware.Config{
		KeyFunc:    b.tokens.keyFunc,
		Claims:     &Claims{},
		ContextKey: tokenKey,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals(tokenKey).(*jwt.Token)
			if !ok {
				return unauthorized(c)
			}
			claims, ok := token.Claims.(*Claims)
			if !ok || checkClaims(claims) != nil {
				return unauthorized(c)
			}
			user, err := b.users.FindByID(c.UserContext(), claims.Subject)
			if err != nil {
				slog.Debug("bearer token subject not resolved", "sub", claims.Subject, "error", err)
				return reject(c, err)
			}
			SetPrincipal(c, user)
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c)
		},
	})
}
