package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Local checks an email and password from the request body against the
// stored hash.
type Local struct {
	users Users
}

func NewLocal(users Users) *Local {
	return &Local{users: users}
}

func (l *Local) Kind() Kind { return Credentials }

func (l *Local) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return unauthorized(c)
		}
		email := strings.TrimSpace(req.Email)
		if email == "" || req.Password == "" {
			return unauthorized(c)
		}

		user, err := l.users.FindByEmail(c.UserContext(), email)
		if err != nil {
			return reject(c, err)
		}
		if !ComparePassword(req.Password, user.Password) {
			return unauthorized(c)
		}

		SetPrincipal(c, user)
		return c.Next()
	}
}
