// Package server wires the challenge tracker together: storage, services, the
// HTTP API, the gRPC health endpoint and the housekeeping scheduler, and runs
// them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/thechallenge/internal/logging"
	"github.com/dmitrijs2005/thechallenge/internal/server/config"
	"github.com/dmitrijs2005/thechallenge/internal/server/httpserver"
	"github.com/dmitrijs2005/thechallenge/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/thechallenge/internal/server/scheduler"
	"github.com/dmitrijs2005/thechallenge/internal/server/services"
	"github.com/dmitrijs2005/thechallenge/internal/timex"
	_ "github.com/jackc/pgx/v5/stdlib"

	gs "github.com/dmitrijs2005/thechallenge/internal/server/grpc"
)

const healthProbeInterval = 30 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repos       repomanager.RepositoryManager
	userService *services.UserService
	http        *httpserver.HTTPServer
	grpc        *gs.GRPCServer
	scheduler   *scheduler.Scheduler
}

func NewApp(c *config.Config) (*App, error) {

	logger, err := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	clock := timex.SystemClock{}

	us := services.NewUserService(db, rm, clock, c)
	cs := services.NewChallengeService(db, rm, clock, loc, c)
	ts := services.NewTaskService(db, rm, clock, loc)

	grpcServer := gs.NewGRPCServer(c.EndpointAddrGRPC, logger)
	httpServer := httpserver.NewHTTPServer(c, logger, us, cs, ts, db.PingContext)

	sched := scheduler.New(loc, logger)
	if _, err := sched.AddTokenPurge(c.CleanupSchedule, us); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := sched.AddHealthProbe(healthProbeInterval, db.PingContext, grpcServer.SetServing); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		repos:       rm,
		userService: us,
		http:        httpServer,
		grpc:        grpcServer,
		scheduler:   sched,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runComponent runs one long-lived component and cancels the whole app if it fails.
func (app *App) runComponent(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "component failed", "component", name, "error", err)
		cancelFunc()
	}
}

// Run migrates the schema, then serves until ctx is cancelled or a signal
// arrives. The database is closed on return.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")

	if err := app.repos.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	app.grpc.SetServing(true)

	app.initSignalHandler(cancelFunc)

	components := map[string]func(context.Context) error{
		"http":      app.http.Run,
		"grpc":      app.grpc.Run,
		"scheduler": app.scheduler.Run,
	}

	var wg sync.WaitGroup
	for name, run := range components {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.runComponent(ctx, cancelFunc, name, run)
		}()
	}

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")

	return nil
}
