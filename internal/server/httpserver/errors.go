package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/thechallenge/internal/common"
	"github.com/labstack/echo/v4"
)

const (
	msgNotAuthorized    = "not authorized"
	msgNotAuthenticated = "authentication required"
	msgInternal         = "internal server error"
)

// redirectKey holds where an interactive caller goes after a failure.
const redirectKey = "redirect_to"

// statusFor maps an error to its HTTP status and the message shown to the
// caller. Missing and foreign records share one message.
func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	var ve *common.ValidationError

	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, common.ErrWrongDay):
		return http.StatusBadRequest, common.ErrWrongDay.Error()
	case errors.Is(err, common.ErrProtected):
		return http.StatusBadRequest, common.ErrProtected.Error()
	case errors.Is(err, common.ErrCSRFMismatch):
		return http.StatusBadRequest, common.ErrCSRFMismatch.Error()
	case errors.Is(err, common.ErrEmailTaken):
		return http.StatusBadRequest, common.ErrEmailTaken.Error()
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, common.ErrorValidation.Error()
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, msgNotAuthenticated
	case errors.Is(err, common.ErrorForbidden), errors.Is(err, common.ErrorNotFound):
		return http.StatusForbidden, msgNotAuthorized
	case errors.As(err, &he):
		if he.Code >= http.StatusInternalServerError {
			return he.Code, msgInternal
		}
		return he.Code, fmt.Sprint(he.Message)
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// isProgrammatic reports whether the caller wants a JSON payload rather than
// a redirect.
func isProgrammatic(c echo.Context) bool {
	req := c.Request()
	return req.Header.Get(echo.HeaderXRequestedWith) == "XMLHttpRequest" ||
		strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func (s *HTTPServer) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := statusFor(err)
	ctx := c.Request().Context()
	if status >= http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed", "error", err, "request_id", requestID(c))
	} else {
		s.logger.Debug(ctx, "request rejected", "error", err, "status", status, "request_id", requestID(c))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else if isProgrammatic(c) || status == http.StatusNotFound || status == http.StatusMethodNotAllowed {
		err = c.JSON(status, echo.Map{"error": msg})
	} else {
		target := failureTarget(c, status)
		s.setFlash(c, msg)
		err = c.Redirect(http.StatusSeeOther, target)
	}
	if err != nil {
		s.logger.Error(ctx, "error response failed", "error", err)
	}
}

func failureTarget(c echo.Context, status int) string {
	if status == http.StatusUnauthorized {
		return "/login"
	}
	if to, ok := c.Get(redirectKey).(string); ok && to != "" {
		return to
	}
	return redirectBack(c)
}

// redirectBack returns the same-host referring page, or the challenge list.
func redirectBack(c echo.Context) string {
	u, err := url.Parse(c.Request().Referer())
	if err == nil && strings.HasPrefix(u.Path, "/") && (u.Host == "" || u.Host == c.Request().Host) {
		return u.RequestURI()
	}
	return "/challenges"
}
