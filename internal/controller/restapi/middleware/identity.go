package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const identityKey = "identity"

// Identifier resolves a bearer token to a user id, "" when the token is not
// usable.
type Identifier interface {
	Identify(token string) string
}

// Identity stores the caller's user id in the request locals. Requests
// without a valid token continue as visitors.
func Identity(id Identifier) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		token, ok := strings.CutPrefix(ctx.Get(fiber.HeaderAuthorization), "Bearer ")
		if ok {
			if userID := id.Identify(strings.TrimSpace(token)); userID != "" {
				ctx.Locals(identityKey, userID)
			}
		}

		return ctx.Next()
	}
}

// IdentityFrom returns the user id set by Identity, or "".
func IdentityFrom(ctx *fiber.Ctx) string {
	userID, _ := ctx.Locals(identityKey).(string)

	return userID
}
