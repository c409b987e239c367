package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/services/metrics"
)

type attendanceApi struct {
	readDegrader
	svc *attendance.Service
}

func registerAttendanceAPI(e *echo.Echo, requester echo.MiddlewareFunc, svc *attendance.Service, rd readDegrader) {
	api := attendanceApi{readDegrader: rd, svc: svc}

	e.GET("/today", api.today)
	e.GET("/analytics", api.analytics)

	ag := e.Group("/attendance")
	ag.POST("", api.mark, requester)
	ag.GET("/:date", api.roster)
	ag.GET("/user/:user", api.userHistory, requester)
}

// Handlers

func (api *attendanceApi) today(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, TodayResponse{Date: api.svc.Today()})
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}

	rec, err := api.svc.Mark(ctx.Request().Context(), getRequester(ctx), data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	metrics.MarksTotal.Inc()

	return ctx.JSON(http.StatusOK, MarkResponse{Success: true, Date: rec.Date, Users: rec.Users})
}

func (api *attendanceApi) roster(ctx echo.Context) error {
	users, err := api.svc.Roster(ctx.Request().Context(), ctx.Param("date"))
	if err != nil {
		return api.degrade(ctx, errors.Wrap(err, "getting roster"), []string{})
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *attendanceApi) userHistory(ctx echo.Context) error {
	hist, err := api.svc.UserHistory(ctx.Request().Context(), ctx.Param("user"), getRequester(ctx))
	if err != nil {
		return api.degrade(ctx, errors.Wrap(err, "getting user history"), attendance.History{Dates: []string{}})
	}
	return ctx.JSON(http.StatusOK, hist)
}

func (api *attendanceApi) analytics(ctx echo.Context) error {
	res, err := api.svc.Analytics(ctx.Request().Context())
	if err != nil {
		return api.degrade(ctx, errors.Wrap(err, "computing analytics"), api.svc.ZeroAnalytics())
	}
	return ctx.JSON(http.StatusOK, res)
}
