package attendance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/user"
	"github.com/trezcool/attendance/tests"
)

func TestService_Analytics(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		f := newFixture(t, attendance.Options{Concurrency: 4})
		res, err := f.svc.Analytics(ctx)
		require.NoError(t, err)

		require.Len(t, res.DailyPercentages, 30)
		assert.Equal(t, "2024-02-05", res.DailyPercentages[0].Date)
		assert.Equal(t, today, res.DailyPercentages[29].Date)
		for i, dp := range res.DailyPercentages {
			assert.Zero(t, dp.Percentage)
			if i > 0 {
				assert.Less(t, res.DailyPercentages[i-1].Date, dp.Date)
			}
		}

		require.Len(t, res.MonthlySummary, 12)
		assert.Equal(t, "2023-04", res.MonthlySummary[0].Month)
		assert.Equal(t, "2024-03", res.MonthlySummary[11].Month)
		for i, mt := range res.MonthlySummary {
			assert.Zero(t, mt.Total)
			if i > 0 {
				assert.Less(t, res.MonthlySummary[i-1].Month, mt.Month)
			}
		}

		assert.Equal(t, []attendance.StudentTotal{
			{Name: "Aakash"},
			{Name: "Kavya"},
			{Name: "Sagar"},
		}, res.StudentTotals)
	})

	t.Run("configured roster size", func(t *testing.T) {
		f := newFixture(t, attendance.Options{RosterSize: 13, Concurrency: 8})
		testutil.MarkRecord(t, f.attRepo, today, "Aakash", "Kavya")
		testutil.MarkRecord(t, f.attRepo, "2024-03-01", "Kavya")
		testutil.MarkRecord(t, f.attRepo, "2024-02-10", "Kavya", "Sagar", "Ghost")
		testutil.MarkRecord(t, f.attRepo, "2023-11-20", "Sagar")
		testutil.MarkRecord(t, f.attRepo, "2023-03-31", "Kavya") // out of both windows

		res, err := f.svc.Analytics(ctx)
		require.NoError(t, err)

		daily := make(map[string]int, len(res.DailyPercentages))
		for _, dp := range res.DailyPercentages {
			daily[dp.Date] = dp.Percentage
		}
		assert.Equal(t, 15, daily[today]) // round(2/13*100)
		assert.Equal(t, 8, daily["2024-03-01"])
		assert.Equal(t, 23, daily["2024-02-10"])
		assert.Equal(t, 0, daily["2024-03-04"])

		monthly := make(map[string]int, len(res.MonthlySummary))
		for _, mt := range res.MonthlySummary {
			monthly[mt.Month] = mt.Total
		}
		assert.Equal(t, 2, monthly["2024-03"])
		assert.Equal(t, 1, monthly["2024-02"])
		assert.Equal(t, 1, monthly["2023-11"])
		assert.Equal(t, 0, monthly["2023-12"])
		_, ok := monthly["2023-03"]
		assert.False(t, ok)

		assert.Equal(t, []attendance.StudentTotal{
			{Name: "Aakash", Total: 1},
			{Name: "Kavya", Total: 4},
			{Name: "Sagar", Total: 2},
		}, res.StudentTotals)
	})

	t.Run("live roster size", func(t *testing.T) {
		f := newFixture(t, attendance.Options{})
		testutil.MarkRecord(t, f.attRepo, today, "Aakash", "Kavya")

		res, err := f.svc.Analytics(ctx)
		require.NoError(t, err)
		assert.Equal(t, today, res.DailyPercentages[29].Date)
		assert.Equal(t, 67, res.DailyPercentages[29].Percentage) // round(2/3*100)
	})

	t.Run("no students", func(t *testing.T) {
		f := newFixture(t, attendance.Options{})
		f.svc.Users = studentless{f.svc.Users}
		testutil.MarkRecord(t, f.attRepo, today, "Aakash")

		res, err := f.svc.Analytics(ctx)
		require.NoError(t, err)
		assert.Zero(t, res.DailyPercentages[29].Percentage)
		assert.Empty(t, res.StudentTotals)
		assert.NotNil(t, res.StudentTotals)
	})

	t.Run("windows end on the same day across month end", func(t *testing.T) {
		f := newFixture(t, attendance.Options{})
		f.svc.Clock = tickingClock(t, time.Date(2024, time.March, 31, 23, 59, 0, 0, time.UTC), 12*time.Hour)

		for name, res := range map[string]attendance.Analytics{
			"analytics": mustAnalytics(t, f.svc),
			"zero":      f.svc.ZeroAnalytics(),
		} {
			last := res.DailyPercentages[len(res.DailyPercentages)-1].Date
			assert.Equal(t, res.MonthlySummary[len(res.MonthlySummary)-1].Month, last[:7], name)
		}
	})
}

// tickingClock returns a Clock that moves step forward every time it is read, starting at start (local wall time).
func tickingClock(t *testing.T, start time.Time, step time.Duration) *core.Clock {
	base := testutil.NewClock(t, start.Year(), start.Month(), start.Day(), start.Hour())
	now := time.Date(start.Year(), start.Month(), start.Day(), start.Hour(), start.Minute(), 0, 0, base.Location())
	var mu sync.Mutex
	return base.WithNow(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		curr := now
		now = now.Add(step)
		return curr
	})
}

func mustAnalytics(t *testing.T, svc *attendance.Service) attendance.Analytics {
	res, err := svc.Analytics(context.Background())
	require.NoError(t, err)
	return res
}

type studentless struct{ attendance.UserDirectory }

func (studentless) QueryStudents(context.Context) ([]user.User, error) { return []user.User{}, nil }
