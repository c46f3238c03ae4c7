package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// View is what an interactive page is rendered from.
type View struct {
	Name      string `json:"view"`
	Flash     string `json:"flash,omitempty"`
	CSRFToken string `json:"csrf_token,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// Renderer turns a View into a response for interactive callers.
type Renderer interface {
	Render(c echo.Context, status int, v View) error
}

// JSONRenderer writes the View as JSON.
type JSONRenderer struct{}

func (JSONRenderer) Render(c echo.Context, status int, v View) error {
	return c.JSON(status, v)
}

// respond serves data as JSON to programmatic callers and renders the named
// view otherwise.
func (s *HTTPServer) respond(c echo.Context, status int, view string, data any) error {
	if isProgrammatic(c) {
		return c.JSON(status, data)
	}
	return s.renderer.Render(c, status, View{
		Name:      view,
		Flash:     s.popFlash(c),
		CSRFToken: csrfFromContext(c),
		Data:      data,
	})
}

// done answers a successful state change: JSON for programmatic callers, a
// redirect with a flash message otherwise.
func (s *HTTPServer) done(c echo.Context, status int, payload any, redirectTo, flash string) error {
	if isProgrammatic(c) {
		return c.JSON(status, payload)
	}
	if flash != "" {
		s.setFlash(c, flash)
	}
	return c.Redirect(http.StatusSeeOther, redirectTo)
}

func csrfFromContext(c echo.Context) string {
	token, _ := c.Get("csrf").(string)
	return token
}
