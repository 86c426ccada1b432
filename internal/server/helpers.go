package server

import (
	"log/slog"
	"strings"
	"time"

	"subjecthub/internal/middleware"
	"subjecthub/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	sessionCookieName = "subjecthub_session"
	uploadsPath       = "/uploads"
	localsSession     = "session"
)

func isAPI(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/") || c.Path() == "/api"
}

// currentSession returns the session resolved by LoadSession, or nil.
func currentSession(c *fiber.Ctx) *models.Session {
	sess, _ := c.Locals(localsSession).(*models.Session)
	return sess
}

// viewData adds the values every page needs to data.
func (s *Server) viewData(c *fiber.Ctx, data fiber.Map) fiber.Map {
	if data == nil {
		data = fiber.Map{}
	}
	data["Session"] = currentSession(c)
	return data
}

func (s *Server) setSessionCookie(c *fiber.Ctx, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.config.SessionCookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.SessionCookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// logIfUnexpected logs faults with their wrapped cause. Validation outcomes are not logged.
func (s *Server) logIfUnexpected(c *fiber.Ctx, msg string, err error) {
	if err == nil || models.IsExpected(err) {
		return
	}
	middleware.Logger.ErrorContext(c.UserContext(), msg,
		slog.String("code", models.AsAppError(err).Code),
		slog.String("error", err.Error()),
	)
}

// respondError writes the standard JSON error envelope for err.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	s.logIfUnexpected(c, "request failed", err)
	return models.RespondWithError(c, models.StatusFor(err), err, !s.config.IsProduction())
}

// renderError renders the HTML error page for err.
func (s *Server) renderError(c *fiber.Ctx, err error) error {
	s.logIfUnexpected(c, "request failed", err)
	status := models.StatusFor(err)
	return c.Status(status).Render("errors/error", s.viewData(c, fiber.Map{
		"Title":   "Something went wrong",
		"Status":  status,
		"Message": models.AsAppError(err).Message,
	}))
}

// formError returns the message and field to show next to a form.
func formError(err error) (message, field string) {
	appErr := models.AsAppError(err)
	return appErr.Message, appErr.Field
}
