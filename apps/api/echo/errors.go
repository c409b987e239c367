package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/user"
	"github.com/trezcool/attendance/services/metrics"
)

var (
	errInvalidToken     = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	errTooManyAttempts  = echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts, try again later")
	errStoreUnavailable = "store unavailable"
	errValidation       = "invalid request"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code := http.StatusInternalServerError
		resp := ErrorResponse{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			resp.Message = fmt.Sprint(origErr.Message)
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			resp.Message = errValidation
			resp.Errors = fldErrs
		case *core.ValidationError:
			code = http.StatusBadRequest
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				resp.Message = errValidation
				resp.Errors = fldErrs
			} else {
				resp.Message = origErr.Error()
			}
		case *core.StoreError:
			code = http.StatusServiceUnavailable
			resp.Message = errStoreUnavailable
			metrics.StoreErrorsTotal.WithLabelValues(origErr.Op).Inc()
			logger.Error(errStoreUnavailable, errors.Wrap(err, errStoreUnavailable), requestFields(ctx))
		default:
			if status := domainErrStatus(origErr); status != 0 {
				code = status
				resp.Message = origErr.Error()
				break
			}

			// any other error is a server error
			msg := http.StatusText(http.StatusInternalServerError)
			resp.Message = msg
			logger.Error(msg, errors.Wrap(err, msg), requestFields(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			resp.Message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// domainErrStatus returns the status of the domain errors answered as is, 0 otherwise.
func domainErrStatus(err error) int {
	switch err {
	case user.ErrInvalidCredentials:
		return http.StatusUnauthorized
	case attendance.ErrForbiddenRole:
		return http.StatusForbidden
	case attendance.ErrForbiddenDate:
		return http.StatusBadRequest
	}
	return 0
}

func requestFields(ctx echo.Context) map[string]interface{} {
	return map[string]interface{}{
		"method":    ctx.Request().Method,
		"path":      ctx.Path(),
		"requestId": ctx.Response().Header().Get(echo.HeaderXRequestID),
		"requester": getRequester(ctx),
	}
}

// readDegrader answers reads with an empty 200 when the store is unavailable, if enabled.
type readDegrader struct {
	logger  core.Logger
	enabled bool
}

// degrade returns err as is unless it is a store failure and degrading is enabled.
func (rd readDegrader) degrade(ctx echo.Context, err error, empty interface{}) error {
	if !rd.enabled || !core.IsStoreUnavailable(err) {
		return err
	}
	storeErr := errors.Cause(err).(*core.StoreError)
	metrics.StoreErrorsTotal.WithLabelValues(storeErr.Op).Inc()
	rd.logger.Error("store unavailable, serving an empty result", err, requestFields(ctx))
	return ctx.JSON(http.StatusOK, empty)
}
