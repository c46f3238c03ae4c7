package httpserver

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/thechallenge/internal/common"
	"github.com/labstack/echo/v4"
)

type registerRequest struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

var errBadCredentials = echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")

func (s *HTTPServer) healthz(c echo.Context) error {
	if s.ping != nil {
		if err := s.ping(c.Request().Context()); err != nil {
			s.logger.Warn(c.Request().Context(), "health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (s *HTTPServer) csrfToken(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"csrf_token": csrfFromContext(c)})
}

func (s *HTTPServer) registerPage(c echo.Context) error {
	return s.respond(c, http.StatusOK, "register", nil)
}

func (s *HTTPServer) loginPage(c echo.Context) error {
	return s.respond(c, http.StatusOK, "login", nil)
}

func (s *HTTPServer) register(c echo.Context) error {
	c.Set(redirectKey, "/register")

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	u, pair, err := s.users.Register(c.Request().Context(), req.Username, req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		return err
	}
	s.setSession(c, pair)
	s.logger.Info(c.Request().Context(), "user registered", "user_id", u.ID)

	return s.done(c, http.StatusCreated, echo.Map{"id": u.ID, "username": u.UserName, "email": u.Email},
		"/challenges", "Registration successful")
}

func (s *HTTPServer) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	u, pair, err := s.users.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return errBadCredentials
		}
		return err
	}
	s.setSession(c, pair)

	return s.done(c, http.StatusOK, echo.Map{"id": u.ID, "username": u.UserName},
		"/challenges", "Logged in")
}

func (s *HTTPServer) logout(c echo.Context) error {
	if cookie, err := c.Cookie(common.RefreshTokenCookieName); err == nil {
		if err := s.users.Logout(c.Request().Context(), cookie.Value); err != nil {
			return err
		}
	}
	s.clearSession(c)

	return s.done(c, http.StatusOK, echo.Map{"status": "ok"}, "/login", "Logged out")
}
