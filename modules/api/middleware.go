package api

import (
	"strings"

	"github.com/example/chatflow/modules/auth"
	"github.com/gofiber/fiber/v2"
)

// UserContextKey is the Locals key holding the authenticated user's claims.
const UserContextKey = "user"

const bearerPrefix = "Bearer "

// AuthMiddleware validates the bearer token on every protected route and
// stores the resulting claims for the handlers. A missing or malformed
// header is 401; a header that carries an invalid or expired token is 403.
func AuthMiddleware(authPort auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		switch {
		case header == "":
			return unauthorized(c, "Authorization header is required")
		case !strings.HasPrefix(header, bearerPrefix):
			return unauthorized(c, "Invalid authorization header format. Use: Bearer <token>")
		}

		token := strings.TrimPrefix(header, bearerPrefix)
		if token == "" {
			return unauthorized(c, "Token is required")
		}

		claims, err := authPort.ValidateToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
				Error:   "forbidden",
				Message: "Invalid or expired token",
			})
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: message,
	})
}
