package di

import (
	"context"
	"log"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/attendance/apps/api/echo"
	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/user"
	eventsvc "github.com/trezcool/attendance/services/events"
	logsvc "github.com/trezcool/attendance/services/logger"
	"github.com/trezcool/attendance/services/ratelimit"
	"github.com/trezcool/attendance/storage/database"
)

type NewConfigFunc func() (*core.Config, error)

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(os.Stdout, conf)
}

func newClock(conf *core.Config) (*core.Clock, error) {
	return core.NewClock(conf.Timezone)
}

func newDB(conf *core.Config) (*database.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.ConnectTimeout)
	defer cancel()
	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, errors.Wrap(err, "setting up database")
	}
	return db, nil
}

func newUserService(db *database.DB) *user.Service {
	return user.NewService(db.Users)
}

// newNotifier publishes marked rosters on NATS when nats.url is set.
func newNotifier(conf *core.Config, logger core.Logger) (attendance.Notifier, error) {
	if conf.NATS.URL == "" {
		return eventsvc.NopNotifier{}, nil
	}
	return eventsvc.NewNATSNotifier(conf, logger)
}

type attendanceParams struct {
	dig.In
	Conf     *core.Config
	DB       *database.DB
	Users    *user.Service
	Clock    *core.Clock
	Notifier attendance.Notifier
	Logger   core.Logger
}

func newAttendanceService(p attendanceParams) *attendance.Service {
	return attendance.NewService(attendance.ServiceDeps{
		Repo:     p.DB.Attendance,
		Users:    p.Users,
		Clock:    p.Clock,
		Notifier: p.Notifier,
		Logger:   p.Logger,
	}, attendance.Options{
		RosterSize:   p.Conf.Attendance.RosterSize,
		StrictRoster: p.Conf.Attendance.StrictRoster,
		Concurrency:  p.Conf.Attendance.AnalyticsConcurrency,
	})
}

type serverParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	DB            *database.DB
	UserSvc       *user.Service
	AttendanceSvc *attendance.Service
	Limiter       ratelimit.Limiter
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(p.Conf, p.Logger, &echoapi.Deps{
		Store:         p.DB,
		UserSvc:       p.UserSvc,
		AttendanceSvc: p.AttendanceSvc,
		LoginLimiter:  p.Limiter,
	})
}

// New returns a new dependency injection dig.Container.
// newConfig defaults to core.NewConfig.
func New(newConfig ...NewConfigFunc) *dig.Container {
	c := dig.New()

	confFunc := NewConfigFunc(core.NewConfig)
	if len(newConfig) > 0 {
		confFunc = newConfig[0]
	}
	must(c.Provide(confFunc))
	must(c.Provide(newLogger))
	must(c.Provide(newClock))
	must(c.Provide(newDB))
	must(c.Provide(newUserService))
	must(c.Provide(newNotifier))
	must(c.Provide(newAttendanceService))
	must(c.Provide(ratelimit.New))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
