package server

import (
	"time"

	"subjecthub/internal/models"
	"subjecthub/internal/service"

	"github.com/gofiber/fiber/v2"
)

const invalidCredentialsMessage = "Invalid username or password"

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      sessionUser `json:"user"`
}

type sessionUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func userOf(sess *models.Session) sessionUser {
	return sessionUser{ID: sess.UserID, Username: sess.Username, Email: sess.Email}
}

// RegisterPage renders the registration form.
func (s *Server) RegisterPage(c *fiber.Ctx) error {
	return c.Render("auth/register", s.viewData(c, fiber.Map{
		"Title": "Register",
		"Form":  fiber.Map{},
	}))
}

// Register handles the registration form. Success sends the user to the login page.
func (s *Server) Register(c *fiber.Ctx) error {
	in := service.RegisterInput{
		Username:        c.FormValue("username"),
		Email:           c.FormValue("email"),
		Password:        c.FormValue("password"),
		ConfirmPassword: c.FormValue("confirm_password"),
	}

	if _, err := s.auth.Register(c.UserContext(), in); err != nil {
		s.logIfUnexpected(c, "registration failed", err)
		message, field := formError(err)
		return c.Status(models.StatusFor(err)).Render("auth/register", s.viewData(c, fiber.Map{
			"Title":      "Register",
			"Form":       fiber.Map{"Username": in.Username, "Email": in.Email},
			"Error":      message,
			"ErrorField": field,
		}))
	}
	return c.Redirect("/login?registered=1", fiber.StatusSeeOther)
}

// LoginPage renders the login form.
func (s *Server) LoginPage(c *fiber.Ctx) error {
	return c.Render("auth/login", s.viewData(c, fiber.Map{
		"Title":      "Log in",
		"Form":       fiber.Map{},
		"Registered": c.Query("registered") != "",
	}))
}

// Login handles the login form and sets the session cookie.
func (s *Server) Login(c *fiber.Ctx) error {
	in := service.LoginInput{
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
	}

	if _, _, err := s.startSession(c, in); err != nil {
		s.logIfUnexpected(c, "login failed", err)
		message, _ := formError(err)
		if models.AsAppError(err).Code == models.CodeInvalidCredentials {
			message = invalidCredentialsMessage
		}
		return c.Status(models.StatusFor(err)).Render("auth/login", s.viewData(c, fiber.Map{
			"Title": "Log in",
			"Form":  fiber.Map{"Username": in.Username},
			"Error": message,
		}))
	}
	return c.Redirect("/subjects", fiber.StatusSeeOther)
}

// Logout ends the current session, if any.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.endSession(c); err != nil {
		return s.renderError(c, err)
	}
	return c.Redirect("/subjects", fiber.StatusSeeOther)
}

// RegisterAPI creates an account from a JSON body.
func (s *Server) RegisterAPI(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("body", "Invalid request body"))
	}

	user, err := s.auth.Register(c.UserContext(), service.RegisterInput(req))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// LoginAPI opens a session. The signed token is returned in the body and set as the cookie.
func (s *Server) LoginAPI(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("body", "Invalid request body"))
	}

	sess, signed, err := s.startSession(c, service.LoginInput(req))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(loginResponse{
		Token:     signed,
		ExpiresAt: sess.ExpiresAt,
		User:      userOf(sess),
	})
}

// LogoutAPI ends the current session. It succeeds for anonymous callers too.
func (s *Server) LogoutAPI(c *fiber.Ctx) error {
	if err := s.endSession(c); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MeAPI returns the logged-in user as currently stored.
func (s *Server) MeAPI(c *fiber.Ctx) error {
	sess := currentSession(c)
	user, err := s.auth.CurrentUser(c.UserContext(), sess)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"user":       sessionUser{ID: user.ID, Username: user.Username, Email: user.Email},
		"expires_at": sess.ExpiresAt,
	})
}

// startSession logs in, signs the session token and sets the cookie.
func (s *Server) startSession(c *fiber.Ctx, in service.LoginInput) (*models.Session, string, error) {
	sess, err := s.auth.Login(c.UserContext(), in)
	if err != nil {
		return nil, "", err
	}

	signed, err := s.signer.Sign(sess.Token, sess.UserID, sess.ExpiresAt)
	if err != nil {
		_ = s.auth.Logout(c.UserContext(), sess.Token)
		return nil, "", models.NewStoreError(err)
	}

	s.setSessionCookie(c, signed, sess.ExpiresAt)
	return sess, signed, nil
}

func (s *Server) endSession(c *fiber.Ctx) error {
	defer s.clearSessionCookie(c)

	sess := currentSession(c)
	if sess == nil {
		return nil
	}
	return s.auth.Logout(c.UserContext(), sess.Token)
}
