package attendance

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/attendance/core"
)

const (
	dailyWindow   = 30
	monthlyWindow = 12
)

// Analytics computes the trailing 30 days attendance percentages, the per-student totals
// and the trailing 12 months record counts.
// The underlying reads are independent and run concurrently; the first failure cancels the rest.
func (svc *Service) Analytics(ctx context.Context) (Analytics, error) {
	students, err := svc.Users.QueryStudents(ctx)
	if err != nil {
		return Analytics{}, err
	}
	names := make([]string, 0, len(students))
	for _, std := range students {
		names = append(names, std.Username)
	}
	rosterSize := svc.opts.RosterSize
	if rosterSize <= 0 {
		rosterSize = len(names)
	}

	clock := svc.Clock.Frozen()
	days := clock.LastDays(dailyWindow)
	months := clock.LastMonths(monthlyWindow)
	res := Analytics{
		DailyPercentages: make([]DailyPercentage, len(days)),
		StudentTotals:    make([]StudentTotal, len(names)),
		MonthlySummary:   make([]MonthTotal, len(months)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(svc.opts.Concurrency)

	for i, day := range days {
		g.Go(func() error {
			var present int
			rec, err := svc.Repo.GetRecord(gctx, day)
			switch {
			case err == nil:
				present = len(rec.Users)
			case errors.Cause(err) != ErrNotFound:
				return core.NewStoreError(err, "getting record")
			}
			res.DailyPercentages[i] = DailyPercentage{Date: day, Percentage: percentage(present, rosterSize)}
			return nil
		})
	}

	for i, month := range months {
		g.Go(func() error {
			total, err := svc.Repo.CountRecordsInMonth(gctx, month)
			if err != nil {
				return core.NewStoreError(err, "counting records")
			}
			res.MonthlySummary[i] = MonthTotal{Month: month, Total: total}
			return nil
		})
	}

	g.Go(func() error {
		var totals map[string]int
		if len(names) > 0 {
			var err error
			if totals, err = svc.Repo.CountRecordsByUsers(gctx, names...); err != nil {
				return core.NewStoreError(err, "counting records")
			}
		}
		for i, name := range names {
			res.StudentTotals[i] = StudentTotal{Name: name, Total: totals[name]}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return Analytics{}, err
	}
	return res, nil
}

// percentage returns round(present / total * 100), or 0 if total is 0.
func percentage(present, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(present) * 100 / float64(total)))
}

// ZeroAnalytics returns the Analytics of a store without any record or student.
func (svc *Service) ZeroAnalytics() Analytics {
	clock := svc.Clock.Frozen()
	days := clock.LastDays(dailyWindow)
	months := clock.LastMonths(monthlyWindow)
	res := Analytics{
		DailyPercentages: make([]DailyPercentage, 0, len(days)),
		StudentTotals:    []StudentTotal{},
		MonthlySummary:   make([]MonthTotal, 0, len(months)),
	}
	for _, day := range days {
		res.DailyPercentages = append(res.DailyPercentages, DailyPercentage{Date: day})
	}
	for _, month := range months {
		res.MonthlySummary = append(res.MonthlySummary, MonthTotal{Month: month})
	}
	return res
}
