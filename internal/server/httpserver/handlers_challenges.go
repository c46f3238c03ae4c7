package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/thechallenge/internal/common"
	"github.com/labstack/echo/v4"
)

type createChallengeRequest struct {
	Name       string      `json:"name" form:"name"`
	StartDate  string      `json:"start_date" form:"start_date"`
	Duration   json.Number `json:"duration" form:"duration"`
	FixedTasks []string    `json:"fixed_tasks" form:"fixed_tasks"`
}

type addTaskRequest struct {
	Name      string      `json:"name" form:"name"`
	DayNumber json.Number `json:"day_number" form:"day_number"`
}

// pathID reads a positive integer id. Anything else cannot name a record.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, echo.ErrNotFound
	}
	return id, nil
}

func challengePath(id int64) string {
	return fmt.Sprintf("/challenges/%d", id)
}

func (s *HTTPServer) listChallenges(c echo.Context) error {
	list, err := s.challenges.List(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return s.respond(c, http.StatusOK, "challenges/list", echo.Map{"challenges": list})
}

func (s *HTTPServer) createChallenge(c echo.Context) error {
	c.Set(redirectKey, "/challenges")

	var req createChallengeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if len(req.FixedTasks) == 0 && !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if form, err := c.FormParams(); err == nil {
			req.FixedTasks = form["fixed_tasks[]"]
		}
	}

	var start time.Time
	if req.StartDate != "" {
		t, err := time.Parse(time.DateOnly, strings.TrimSpace(req.StartDate))
		if err != nil {
			return common.NewValidationError("start_date", "must be a date in YYYY-MM-DD format")
		}
		start = t
	}
	duration, err := strconv.Atoi(strings.TrimSpace(req.Duration.String()))
	if err != nil {
		return common.NewValidationError("duration", "must be an integer")
	}

	ch, err := s.challenges.Create(c.Request().Context(), currentUserID(c), req.Name, start, duration, req.FixedTasks)
	if err != nil {
		return err
	}
	s.logger.Info(c.Request().Context(), "challenge created",
		"challenge_id", ch.ID, "user_id", ch.UserID, "days", ch.DurationDays, "fixed_tasks", len(req.FixedTasks))

	return s.done(c, http.StatusCreated, ch, challengePath(ch.ID), "Challenge created")
}

func (s *HTTPServer) challengeDetail(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	d, err := s.challenges.Detail(c.Request().Context(), currentUserID(c), id)
	if err != nil {
		return err
	}
	return s.respond(c, http.StatusOK, "challenges/detail", d)
}

func (s *HTTPServer) deleteChallenge(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	c.Set(redirectKey, "/challenges")

	if err := s.challenges.Delete(c.Request().Context(), currentUserID(c), id); err != nil {
		return err
	}
	return s.done(c, http.StatusOK, echo.Map{"status": "deleted"}, "/challenges", "Challenge deleted")
}

func (s *HTTPServer) exportChallenge(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	c.Set(redirectKey, challengePath(id))

	url, err := s.challenges.Export(c.Request().Context(), currentUserID(c), id)
	if err != nil {
		return err
	}
	return s.done(c, http.StatusOK, echo.Map{"url": url}, url, "")
}

func (s *HTTPServer) addTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	c.Set(redirectKey, challengePath(id))

	var req addTaskRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	var day *int
	if raw := strings.TrimSpace(req.DayNumber.String()); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return common.NewValidationError("day_number", "must be an integer")
		}
		day = &n
	}

	t, err := s.tasks.Add(c.Request().Context(), currentUserID(c), id, req.Name, day)
	if err != nil {
		return err
	}
	return s.done(c, http.StatusCreated, t, challengePath(id), "Task added")
}
