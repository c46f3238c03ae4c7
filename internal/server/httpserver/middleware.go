package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/thechallenge/internal/common"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const userIDKey = "user_id"

func (s *HTTPServer) recoverMiddleware() echo.MiddlewareFunc {
	return middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.logger.Error(c.Request().Context(), "panic recovered",
				"error", err, "request_id", requestID(c), "stack", string(stack))
			return err
		},
	})
}

func (s *HTTPServer) requestIDMiddleware() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// requestLogger writes one line per request. Errors are resolved to a
// response here so the logged status is the one sent.
func (s *HTTPServer) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			c.Error(err)
		}
		req := c.Request()
		s.logger.Info(req.Context(), "request",
			"request_id", requestID(c),
			"method", req.Method,
			"path", req.URL.Path,
			"status", c.Response().Status,
			"latency", time.Since(start).String(),
		)
		return nil
	}
}

// csrfMiddleware checks the double-submit token on every unsafe method.
func (s *HTTPServer) csrfMiddleware() echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "header:" + common.CSRFHeaderName + ",header:" + echo.HeaderXCSRFToken + ",form:" + common.CSRFFormField,
		CookieName:     common.CSRFCookieName,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   s.cookieSecure,
		CookieSameSite: http.SameSiteLaxMode,
		Skipper:        unrouted,
		ErrorHandler: func(err error, c echo.Context) error {
			return common.ErrCSRFMismatch
		},
	})
}

// sessionAuth resolves the caller from the access token cookie. An expired
// or missing access token is replaced using the refresh token cookie.
func (s *HTTPServer) sessionAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if unrouted(c) {
			return next(c)
		}

		if cookie, err := c.Cookie(common.AccessTokenCookieName); err == nil && cookie.Value != "" {
			userID, err := s.users.Authenticate(cookie.Value)
			if err == nil {
				c.Set(userIDKey, userID)
				return next(c)
			}
			if !errors.Is(err, common.ErrTokenExpired) {
				s.clearSession(c)
				return common.ErrorUnauthorized
			}
		}

		cookie, err := c.Cookie(common.RefreshTokenCookieName)
		if err != nil || cookie.Value == "" {
			return common.ErrorUnauthorized
		}

		ctx := c.Request().Context()
		pair, err := s.users.RefreshToken(ctx, cookie.Value)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrRefreshTokenExpired) {
				s.clearSession(c)
				return common.ErrorUnauthorized
			}
			return err
		}

		userID, err := s.users.Authenticate(pair.AccessToken)
		if err != nil {
			return common.ErrorUnauthorized
		}
		s.setSession(c, pair)
		s.logger.Debug(ctx, "session refreshed", "user_id", userID)

		c.Set(userIDKey, userID)
		return next(c)
	}
}

// unrouted reports whether the request matched no registered route. Such
// requests go straight to the 404 handler. Group middleware registers
// wildcard not-found routes, which no real route uses.
func unrouted(c echo.Context) bool {
	p := c.Path()
	return p == "" || strings.HasSuffix(p, "/*")
}

func currentUserID(c echo.Context) int64 {
	id, _ := c.Get(userIDKey).(int64)
	return id
}
