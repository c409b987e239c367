package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/user"
	"github.com/trezcool/attendance/services/metrics"
	"github.com/trezcool/attendance/services/ratelimit"
)

type userApi struct {
	readDegrader
	conf    *core.Config
	svc     *user.Service
	limiter ratelimit.Limiter
}

func registerUserAPI(e *echo.Echo, conf *core.Config, svc *user.Service, limiter ratelimit.Limiter, rd readDegrader) {
	api := userApi{readDegrader: rd, conf: conf, svc: svc, limiter: limiter}

	e.POST("/auth", api.login, api.rateLimitMiddleware)
	e.GET("/students", api.students)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(GetUserClaims(usr, api.conf), api.conf.SecretKey)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{
		Success:  true,
		Username: usr.Username,
		IsAdmin:  usr.IsAdmin,
		Token:    token,
	})
}

func (api *userApi) students(ctx echo.Context) error {
	students, err := api.svc.QueryStudents(ctx.Request().Context())
	if err != nil {
		return api.degrade(ctx, errors.Wrap(err, "querying students"), []string{})
	}
	names := make([]string, 0, len(students))
	for _, std := range students {
		names = append(names, std.Username)
	}
	return ctx.JSON(http.StatusOK, names)
}

// rateLimitMiddleware caps login attempts per client IP. Limiter failures let the attempt through.
func (api *userApi) rateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		allowed, err := api.limiter.Allow(ctx.Request().Context(), ctx.RealIP())
		if err != nil {
			ctx.Logger().Errorf("%+v", errors.Wrap(err, "checking login rate limit"))
			return next(ctx)
		}
		if !allowed {
			metrics.LoginRateLimitHits.Inc()
			return errTooManyAttempts
		}
		return next(ctx)
	}
}
