package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/user"
	"github.com/trezcool/attendance/services/ratelimit"
)

type (
	Deps struct {
		Store         core.Pinger
		UserSvc       *user.Service
		AttendanceSvc *attendance.Service
		LoginLimiter  ratelimit.Limiter
	}

	Server struct {
		conf     *core.Config
		logger   core.Logger
		deps     *Deps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(conf *core.Config, logger core.Logger, deps *Deps) *Server {
	s := &Server{
		conf:     conf,
		logger:   logger,
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	if s.deps.LoginLimiter == nil {
		s.deps.LoginLimiter = ratelimit.Unlimited{}
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug
	s.app.JSONSerializer = jsonSerializer{}
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.signalShutdown)
	s.app.IPExtractor = newIPExtractor(s.conf.Server, s.logger)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !s.conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORS())
	s.app.Use(metricsMiddleware())

	s.app.GET("/", home)
	s.app.GET("/healthz", s.healthz)

	rd := readDegrader{logger: s.logger, enabled: s.conf.Server.DegradeReads}
	registerUserAPI(s.app, s.conf, s.deps.UserSvc, s.deps.LoginLimiter, rd)
	registerAttendanceAPI(s.app, requesterMiddleware(s.conf), s.deps.AttendanceSvc, rd)
}

// Start listens on the configured address; failures are sent on Errors().
func (s *Server) Start() {
	s.logger.Info("API listening on " + s.conf.Server.Address)
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signalled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

// newIPExtractor only honours X-Forwarded-For when the request comes from a trusted proxy.
func newIPExtractor(conf core.ServerConfig, logger core.Logger) echo.IPExtractor {
	nets, err := conf.TrustedProxyNets()
	if err != nil {
		logger.Error("ignoring trusted proxies", err)
	}
	if len(nets) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, ipNet := range nets {
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Attendance API is running")
}

func (s *Server) healthz(ctx echo.Context) error {
	if err := s.deps.Store.Ping(ctx.Request().Context()); err != nil {
		return core.NewStoreError(err, "pinging store")
	}
	return ctx.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
