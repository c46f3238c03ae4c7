// Package httpserver exposes the challenge tracker over HTTP using echo.
//
// Every request passes the same middleware chain: recover, request id,
// request log and CSRF check. Routes under the protected group additionally
// require a session.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/thechallenge/internal/logging"
	"github.com/dmitrijs2005/thechallenge/internal/server/config"
	"github.com/dmitrijs2005/thechallenge/internal/server/models"
	"github.com/dmitrijs2005/thechallenge/internal/server/services"
	"github.com/labstack/echo/v4"
)

type UserService interface {
	Register(ctx context.Context, username, email, password, confirm string) (*models.User, *services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*models.User, *services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Authenticate(accessToken string) (int64, error)
}

type ChallengeService interface {
	Create(ctx context.Context, ownerID int64, name string, startDate time.Time, durationDays int, fixedTaskNames []string) (*models.Challenge, error)
	List(ctx context.Context, ownerID int64) ([]models.ChallengeSummary, error)
	Detail(ctx context.Context, ownerID, challengeID int64) (*models.ChallengeDetail, error)
	Delete(ctx context.Context, ownerID, challengeID int64) error
	Export(ctx context.Context, ownerID, challengeID int64) (string, error)
}

type TaskService interface {
	Add(ctx context.Context, ownerID, challengeID int64, name string, dayNumber *int) (*models.Task, error)
	Toggle(ctx context.Context, ownerID, taskID int64) (*models.Task, error)
	Delete(ctx context.Context, ownerID, taskID int64) error
}

// Pinger reports whether the backing store is reachable.
type Pinger func(ctx context.Context) error

type HTTPServer struct {
	address    string
	logger     logging.Logger
	users      UserService
	challenges ChallengeService
	tasks      TaskService
	ping       Pinger
	renderer   Renderer

	cookieSecure         bool
	accessTokenValidity  time.Duration
	refreshTokenValidity time.Duration

	echo *echo.Echo
}

func NewHTTPServer(cfg *config.Config, l logging.Logger, us UserService, cs ChallengeService, ts TaskService, ping Pinger) *HTTPServer {
	s := &HTTPServer{
		address:              cfg.EndpointAddrHTTP,
		logger:               l.With("module", "http_server"),
		users:                us,
		challenges:           cs,
		tasks:                ts,
		ping:                 ping,
		renderer:             JSONRenderer{},
		cookieSecure:         cfg.CookieSecure,
		accessTokenValidity:  cfg.AccessTokenValidityDuration,
		refreshTokenValidity: cfg.RefreshTokenValidityDuration,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	s.echo = e
	s.registerRoutes()

	return s
}

// SetRenderer replaces the renderer used for interactive pages.
func (s *HTTPServer) SetRenderer(r Renderer) {
	s.renderer = r
}

// Handler returns the fully wired request handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "HTTP shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
