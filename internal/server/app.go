// Package server wires the configured services together and runs the HTTP
// API until the process is told to stop.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophbook/internal/filex"
	"github.com/dmitrijs2005/gophbook/internal/jsonstore"
	"github.com/dmitrijs2005/gophbook/internal/logging"
	"github.com/dmitrijs2005/gophbook/internal/server/backup"
	"github.com/dmitrijs2005/gophbook/internal/server/config"
	"github.com/dmitrijs2005/gophbook/internal/server/httpapi"
	"github.com/dmitrijs2005/gophbook/internal/server/models"
	"github.com/dmitrijs2005/gophbook/internal/server/records"
	"github.com/dmitrijs2005/gophbook/internal/server/session"
	"github.com/dmitrijs2005/gophbook/internal/server/users"
)

// Services are the components shared by the server and the admin tool.
type Services struct {
	Users    *users.Service
	Records  *records.Service
	Sessions *session.Manager
	Backup   *backup.Service
}

// NewServices creates the data directory if needed and opens both
// collections in it.
func NewServices(c *config.Config, logger logging.Logger) (*Services, error) {
	if _, err := filex.EnsureDir(c.DataDir); err != nil {
		return nil, fmt.Errorf("data dir init error: %w", err)
	}

	userStore := jsonstore.New[models.User](c.UsersFile(),
		jsonstore.WithLockTimeout(c.LockTimeout),
		jsonstore.WithLogger(logger.With("module", "users_store")),
	)
	recordStore := jsonstore.New[models.Record](c.RecordsFile(),
		jsonstore.WithLockTimeout(c.LockTimeout),
		jsonstore.WithLogger(logger.With("module", "records_store")),
	)

	return &Services{
		Users:    users.NewService(userStore, c.Argon2, logger.With("module", "users")),
		Records:  records.NewService(recordStore, logger.With("module", "records")),
		Sessions: session.NewManager(c.SecretKey, c.SessionValidityDuration),
		Backup:   backup.NewService(c, logger.With("module", "backup")),
	}, nil
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	services *Services
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	services, err := NewServices(c, logger)
	if err != nil {
		return nil, err
	}

	return &App{config: c, logger: logger, services: services}, nil
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger,
		app.services.Users, app.services.Records, app.services.Sessions,
		httpapi.Options{
			AuthRateLimit:   app.config.AuthRateLimit,
			AuthRateBurst:   app.config.AuthRateBurst,
			ShutdownTimeout: app.config.ShutdownTimeout,
		})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "data_dir", app.config.DataDir)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(ctx, "App stopped")
}
