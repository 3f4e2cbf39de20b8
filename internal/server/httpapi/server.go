// Package httpapi exposes the record book over HTTP as a single action
// endpoint, GET|POST /api?action=<name>, answering with a JSON envelope.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/gophbook/internal/logging"
	"github.com/dmitrijs2005/gophbook/internal/server/models"
	"github.com/dmitrijs2005/gophbook/internal/server/records"
)

type UserService interface {
	Register(ctx context.Context, displayName, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

type RecordService interface {
	List(ctx context.Context) ([]models.Record, error)
	Create(ctx context.Context, name, email string) ([]models.Record, error)
	Update(ctx context.Context, loc records.Locator, name, email string) ([]models.Record, error)
	Delete(ctx context.Context, loc records.Locator) ([]models.Record, error)
}

type SessionManager interface {
	Establish(user models.User) (string, models.Identity, error)
	Resolve(token string) (models.Identity, error)
	Destroy(token string)
	Validity() time.Duration
}

// Options tune the transport. Zero values fall back to defaults.
type Options struct {
	AuthRateLimit   float64
	AuthRateBurst   int
	ShutdownTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.AuthRateLimit <= 0 {
		o.AuthRateLimit = 1
	}
	if o.AuthRateBurst <= 0 {
		o.AuthRateBurst = 3
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 10 * time.Second
	}
	return o
}

type Server struct {
	address  string
	echo     *echo.Echo
	users    UserService
	records  RecordService
	sessions SessionManager
	logger   logging.Logger
	opts     Options
	actions  map[string]actionFunc
}

func NewServer(address string, l logging.Logger, us UserService, rs RecordService, sm SessionManager, opts Options) *Server {
	s := &Server{
		address:  address,
		echo:     echo.New(),
		users:    us,
		records:  rs,
		sessions: sm,
		logger:   l.With("module", "http_server"),
		opts:     opts.withDefaults(),
	}

	s.actions = map[string]actionFunc{
		"register": s.handleRegister,
		"login":    s.handleLogin,
		"logout":   s.handleLogout,
		"auth":     s.handleAuth,
		"list":     s.handleList,
		"create":   s.handleCreate,
		"update":   s.handleUpdate,
		"delete":   s.handleDelete,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(s.requestLogger())

	e.GET("/healthz", func(c echo.Context) error {
		return ok(c, map[string]string{"status": "ok"})
	})

	e.Match([]string{http.MethodGet, http.MethodPost}, "/api", s.dispatch,
		s.authRateLimiter(),
		s.sessionMiddleware,
	)
}

func (s *Server) authRateLimiter() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			a := action(c)
			return a != "register" && a != "login"
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(s.opts.AuthRateLimit),
				Burst:     s.opts.AuthRateBurst,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return fail(c, http.StatusForbidden, "forbidden")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			s.logger.Warn(c.Request().Context(), "auth rate limit exceeded", "client", identifier)
			return fail(c, http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}

// Handler returns the HTTP handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
