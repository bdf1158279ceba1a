package middleware

import (
	"bptracker/config"
	"bptracker/internal/logger"
	. "bptracker/internal/models"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	SESSION_COOKIE  = "session"
	DEFAULT_TIMEOUT = 30 * time.Second
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*User, error)
}

type Middleware struct {
	auth    Authenticator
	timeout time.Duration
	log     logger.Logger
}

func New(auth Authenticator, config config.Config) Middleware {
	timeout := time.Duration(config.ServerRequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}

	return Middleware{
		auth:    auth,
		timeout: timeout,
		log:     logger.New("middleware"),
	}
}

// AuthRequired resolves the session token from the Authorization header or
// the session cookie and stores the user in locals.
func (m Middleware) AuthRequired() fiber.Handler {
	log := m.log.Function("AuthRequired")

	return func(c *fiber.Ctx) error {
		token := SessionToken(c)
		if token == "" {
			return unauthorized(c)
		}

		user, err := m.auth.Authenticate(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.Er("session lookup timed out", err, "path", c.Path())
			} else {
				log.Debug("rejected session", "path", c.Path(), "error", err)
			}
			return unauthorized(c)
		}

		c.Locals("user", *user)
		c.Locals("userID", user.ID)
		return c.Next()
	}
}

// RequestTimeout bounds the user context handed to controllers.
func (m Middleware) RequestTimeout() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), m.timeout)
		defer cancel()

		c.SetUserContext(ctx)
		return c.Next()
	}
}

func (m Middleware) Timeout() time.Duration {
	return m.timeout
}

func SessionToken(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}

	return c.Cookies(SESSION_COOKIE)
}

// CurrentUser returns the user stored by AuthRequired.
func CurrentUser(c *fiber.Ctx) (User, bool) {
	user, ok := c.Locals("user").(User)
	return user, ok && user.ID != ""
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
}
