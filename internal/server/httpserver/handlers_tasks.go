package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *HTTPServer) toggleTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	t, err := s.tasks.Toggle(c.Request().Context(), currentUserID(c), id)
	if err != nil {
		return err
	}
	return s.done(c, http.StatusOK, echo.Map{"success": true, "is_completed": t.IsCompleted},
		challengePath(t.ChallengeID), "")
}

func (s *HTTPServer) deleteTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := s.tasks.Delete(c.Request().Context(), currentUserID(c), id); err != nil {
		return err
	}
	return s.done(c, http.StatusOK, echo.Map{"success": true}, redirectBack(c), "Task deleted")
}
