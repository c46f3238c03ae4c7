package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *HTTPServer) registerRoutes() {
	e := s.echo

	e.Use(s.recoverMiddleware(), s.requestIDMiddleware(), s.requestLogger, s.csrfMiddleware())

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/challenges")
	})
	e.GET("/healthz", s.healthz)
	e.GET("/csrf", s.csrfToken)
	e.GET("/register", s.registerPage)
	e.POST("/register", s.register)
	e.GET("/login", s.loginPage)
	e.POST("/login", s.login)
	e.POST("/logout", s.logout)

	challenges := e.Group("/challenges", s.sessionAuth)
	challenges.GET("", s.listChallenges)
	challenges.POST("", s.createChallenge)
	challenges.GET("/:id", s.challengeDetail)
	challenges.POST("/:id/delete", s.deleteChallenge)
	challenges.POST("/:id/tasks", s.addTask)
	challenges.POST("/:id/export", s.exportChallenge)

	tasks := e.Group("/tasks", s.sessionAuth)
	tasks.POST("/:id/toggle", s.toggleTask)
	tasks.POST("/:id/delete", s.deleteTask)
}
