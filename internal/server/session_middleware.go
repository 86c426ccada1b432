package server

import (
	"errors"
	"log/slog"
	"strings"

	"subjecthub/internal/middleware"
	"subjecthub/internal/models"

	"github.com/gofiber/fiber/v2"
)

// LoadSession resolves the session cookie (or a Bearer token) into the
// "session" local. Anonymous requests pass through untouched.
func (s *Server) LoadSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(sessionCookieName)
		fromCookie := raw != ""
		if raw == "" {
			if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
				raw = strings.TrimPrefix(h, "Bearer ")
			}
		}
		if raw == "" {
			return c.Next()
		}

		token, err := s.signer.Parse(raw)
		if err != nil {
			if fromCookie {
				s.clearSessionCookie(c)
			}
			return c.Next()
		}

		sess, err := s.auth.Authenticate(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, models.ErrStoreError) {
				middleware.Logger.WarnContext(c.UserContext(), "session lookup failed", slog.String("error", err.Error()))
			} else if fromCookie {
				s.clearSessionCookie(c)
			}
			return c.Next()
		}

		c.Locals(localsSession, sess)
		c.Locals("userID", sess.UserID)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), sess.UserID))
		return c.Next()
	}
}

// PageAuthRequired redirects anonymous visitors to the login page.
func (s *Server) PageAuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentSession(c) == nil {
			return c.Redirect("/login", fiber.StatusSeeOther)
		}
		return c.Next()
	}
}

// APIAuthRequired rejects anonymous API calls with 401.
func (s *Server) APIAuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentSession(c) == nil {
			return s.respondError(c, models.NewUnauthorizedError("Login required"))
		}
		return c.Next()
	}
}
