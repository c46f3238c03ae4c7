package httpserver

import (
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/thechallenge/internal/common"
	"github.com/dmitrijs2005/thechallenge/internal/server/services"
	"github.com/labstack/echo/v4"
)

func (s *HTTPServer) newCookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *HTTPServer) expiredCookie(name string) *http.Cookie {
	c := s.newCookie(name, "", 0)
	c.MaxAge = -1
	return c
}

func (s *HTTPServer) setSession(c echo.Context, pair *services.TokenPair) {
	c.SetCookie(s.newCookie(common.AccessTokenCookieName, pair.AccessToken, s.accessTokenValidity))
	c.SetCookie(s.newCookie(common.RefreshTokenCookieName, pair.RefreshToken, s.refreshTokenValidity))
}

func (s *HTTPServer) clearSession(c echo.Context) {
	c.SetCookie(s.expiredCookie(common.AccessTokenCookieName))
	c.SetCookie(s.expiredCookie(common.RefreshTokenCookieName))
}

func (s *HTTPServer) setFlash(c echo.Context, msg string) {
	c.SetCookie(s.newCookie(common.FlashCookieName, url.QueryEscape(msg), time.Minute))
}

// popFlash returns the pending flash message and clears it.
func (s *HTTPServer) popFlash(c echo.Context) string {
	cookie, err := c.Cookie(common.FlashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	c.SetCookie(s.expiredCookie(common.FlashCookieName))
	msg, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return msg
}
