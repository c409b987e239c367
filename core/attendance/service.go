package attendance

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("attendance record not found")
	ErrForbiddenRole = errors.New("permission denied")
	ErrForbiddenDate = errors.New("attendance can only be marked for today")
)

type (
	Repository interface {
		core.Pinger
		// GetRecord returns ErrNotFound if nothing was recorded on date.
		GetRecord(ctx context.Context, date string) (Record, error)
		// UpsertRecord creates the Record or replaces the Users of the one with the same Date.
		UpsertRecord(ctx context.Context, rec Record) (Record, error)
		QueryRecordsByUser(ctx context.Context, username string) ([]Record, error)
		// CountRecordsByUsers returns, for each username, the number of Records containing it.
		CountRecordsByUsers(ctx context.Context, usernames ...string) (map[string]int, error)
		// CountRecordsInMonth counts the Records dated in month (YYYY-MM).
		CountRecordsInMonth(ctx context.Context, month string) (int, error)
	}

	// UserDirectory resolves requesters and the provisioned students.
	UserDirectory interface {
		GetByUsername(ctx context.Context, uname string) (user.User, error)
		QueryStudents(ctx context.Context) ([]user.User, error)
	}

	// Notifier is told about every successfully marked Record.
	Notifier interface {
		RecordMarked(ctx context.Context, rec Record) error
	}

	Options struct {
		// RosterSize is the analytics denominator. When 0, the number of students is used.
		RosterSize   int
		StrictRoster bool
		Concurrency  int
	}

	ServiceDeps struct {
		Repo     Repository
		Users    UserDirectory
		Clock    *core.Clock
		Notifier Notifier // optional
		Logger   core.Logger
	}

	Service struct {
		ServiceDeps
		opts Options
	}
)

func NewService(deps ServiceDeps, opts Options) *Service {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Service{ServiceDeps: deps, opts: opts}
}

// Today returns the current calendar date.
func (svc *Service) Today() string {
	return svc.Clock.Today()
}

// Mark replaces today's roster with nr.Users.
// nr.Date is advisory, but when set it must be today.
// The body is only validated once the requester is known to be an admin.
func (svc *Service) Mark(ctx context.Context, requester string, nr NewRecord) (Record, error) {
	today := svc.Clock.Today()
	if date := core.CleanString(nr.Date); date != "" && date != today {
		return Record{}, ErrForbiddenDate
	}

	reqUsr, err := svc.requester(ctx, requester)
	if err != nil {
		return Record{}, err
	}
	if !reqUsr.IsAdmin {
		return Record{}, ErrForbiddenRole
	}
	if err := nr.Validate(); err != nil {
		return Record{}, err
	}

	if svc.opts.StrictRoster {
		if err := svc.checkRoster(ctx, nr.Users); err != nil {
			return Record{}, err
		}
	}

	rec, err := svc.Repo.UpsertRecord(ctx, Record{
		Date:      today,
		Users:     nr.Users,
		UpdatedAt: svc.Clock.Now().UTC(),
	})
	if err != nil {
		return Record{}, core.NewStoreError(err, "upserting record")
	}

	if svc.Notifier != nil {
		if err := svc.Notifier.RecordMarked(ctx, rec); err != nil {
			svc.Logger.Warn("notifying marked record", errors.Wrap(err, "notifying marked record"), map[string]interface{}{
				"date":   rec.Date,
				"marker": reqUsr.Username,
			})
		}
	}
	return rec, nil
}

// Roster returns the users present on date; empty if nothing was recorded.
func (svc *Service) Roster(ctx context.Context, date string) ([]string, error) {
	if !core.IsDate(date) {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "must be a date formatted as YYYY-MM-DD"})
	}
	rec, err := svc.Repo.GetRecord(ctx, date)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return []string{}, nil
		}
		return nil, core.NewStoreError(err, "getting record")
	}
	if rec.Users == nil {
		return []string{}, nil
	}
	return rec.Users, nil
}

// UserHistory returns the dates username was present on, ascending.
// Only username itself or an admin may read it.
func (svc *Service) UserHistory(ctx context.Context, username, requester string) (History, error) {
	username = core.CleanString(username)
	reqUsr, err := svc.requester(ctx, requester)
	if err != nil {
		return History{}, err
	}
	if !reqUsr.IsAdmin && reqUsr.Username != username {
		return History{}, ErrForbiddenRole
	}

	recs, err := svc.Repo.QueryRecordsByUser(ctx, username)
	if err != nil {
		return History{}, core.NewStoreError(err, "querying records")
	}
	dates := make([]string, 0, len(recs))
	for _, rec := range recs {
		dates = append(dates, rec.Date)
	}
	sort.Strings(dates)
	return History{TotalDays: len(dates), Dates: dates}, nil
}

// requester resolves the acting user. Unknown or missing users are forbidden.
func (svc *Service) requester(ctx context.Context, uname string) (user.User, error) {
	uname = core.CleanString(uname)
	if uname == "" {
		return user.User{}, ErrForbiddenRole
	}
	usr, err := svc.Users.GetByUsername(ctx, uname)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, ErrForbiddenRole
		}
		return user.User{}, err
	}
	return usr, nil
}

func (svc *Service) checkRoster(ctx context.Context, users []string) error {
	var unknown []string
	for _, uname := range users {
		if _, err := svc.Users.GetByUsername(ctx, uname); err != nil {
			if errors.Cause(err) != user.ErrNotFound {
				return err
			}
			unknown = append(unknown, uname)
		}
	}
	if len(unknown) > 0 {
		return core.NewValidationError(nil, core.FieldError{
			Field: "users",
			Error: "unknown users: " + strings.Join(unknown, ", "),
		})
	}
	return nil
}
