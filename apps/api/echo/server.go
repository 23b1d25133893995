package echoapi

import (
	"context"
	"net/http"
	"os"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/KhalilH786/GTManager-sub001/core"
	"github.com/KhalilH786/GTManager-sub001/core/session"
	"github.com/KhalilH786/GTManager-sub001/core/user"
)

type (
	Deps struct {
		Conf       *core.Config
		Logger     core.Logger
		Auth       *session.Authenticator
		Sessions   *session.Manager
		Gate       *session.Gate
		UserSvc    user.ServiceInterface
		MailSvc    core.EmailService
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		addr      string
		app       *echo.Echo
		deps      *Deps
		jwtConfig middleware.JWTConfig
		limiter   *rateLimiter
		errors    chan error
		shutdown  chan os.Signal
	}
)

// NewServer sets up the API server. shutdown receives the signal that stops the application.
func NewServer(addr string, shutdown chan os.Signal, deps *Deps) *Server {
	s := &Server{
		addr:      addr,
		app:       echo.New(),
		deps:      deps,
		jwtConfig: newJWTConfig(deps.Conf),
		limiter:   newRateLimiter(deps.Conf.RateLimit),
		errors:    make(chan error, 1),
		shutdown:  shutdown,
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug && !conf.TestMode
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(sessionMiddleware(s.deps.Sessions))
	s.app.Use(gateMiddleware(s.deps.Gate, s.deps.Sessions.Cookies()))
	if dir := conf.Server.StaticDir; dir != "" {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			s.app.Use(middleware.StaticWithConfig(middleware.StaticConfig{
				Skipper: isAPIRequest,
				Root:    dir,
				HTML5:   true,
			}))
		}
	}

	g := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(s.jwtConfig)

	registerAuthAPI(g, jwt, s)
	registerUserAPI(g, jwt, s.deps)
}

func isAPIRequest(ctx echo.Context) bool {
	return strings.HasPrefix(ctx.Request().URL.Path, "/api/")
}

// Start listens on addr. Errors are reported through Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	if s.shutdown == nil {
		return
	}
	select {
	case s.shutdown <- os.Interrupt:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
