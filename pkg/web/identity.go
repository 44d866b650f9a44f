package web

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dukex/gradflow/pkg/directory"
	"github.com/dukex/gradflow/pkg/models"
	"github.com/gofiber/fiber/v3"
)

type userContextKey struct{}

// Identity resolves the caller named by header through dir and stores the user
// for the handlers. Requests without a known caller are rejected with 401.
func Identity(dir directory.Directory, header string, logger *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get(header))
		if raw == "" {
			return unauthenticated(c, "missing "+header+" header")
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return unauthenticated(c, "invalid "+header+" header")
		}

		user, err := dir.UserByID(c.Context(), id)
		if err != nil {
			if errors.Is(err, directory.ErrUserNotFound) {
				return unauthenticated(c, "unknown user")
			}

			logger.ErrorContext(c.Context(), "Failed to resolve caller", "user_id", id, "error", err)

			return internalError(c, err)
		}

		c.Locals(userContextKey{}, user)

		return c.Next()
	}
}

// CurrentUser returns the caller stored by Identity, or nil.
func CurrentUser(c fiber.Ctx) *models.User {
	user, _ := c.Locals(userContextKey{}).(*models.User)

	return user
}
