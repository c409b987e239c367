// Package dbtest holds the behaviour every store adapter must share.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/user"
	"github.com/trezcool/attendance/tests"
)

// Repos is a fresh, empty set of repositories.
type Repos struct {
	Users      user.Repository
	Attendance attendance.Repository
}

// RunUserRepository runs the user.Repository suite. newRepos must return empty repositories.
func RunUserRepository(t *testing.T, newRepos func(t *testing.T) Repos) {
	ctx := context.Background()

	t.Run("get unknown", func(t *testing.T) {
		repos := newRepos(t)
		_, err := repos.Users.GetUser(ctx, "Kavya")
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("upsert keeps createdAt", func(t *testing.T) {
		repos := newRepos(t)
		created := testutil.CreateUser(t, repos.Users, "Kavya", "s3cret-pass", false)

		got, err := repos.Users.GetUser(ctx, "Kavya")
		require.NoError(t, err)
		assert.Equal(t, created.Username, got.Username)
		assert.False(t, got.IsAdmin)
		assert.NoError(t, got.CheckPassword("s3cret-pass"))

		later := created
		later.IsAdmin = true
		later.CreatedAt = created.CreatedAt.Add(time.Hour)
		later.UpdatedAt = created.UpdatedAt.Add(time.Hour)
		require.NoError(t, later.SetPassword("an0ther-pass"))
		updated, err := repos.Users.UpsertUser(ctx, later)
		require.NoError(t, err)
		assert.True(t, updated.IsAdmin)
		assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
		assert.True(t, later.UpdatedAt.Equal(updated.UpdatedAt))

		got, err = repos.Users.GetUser(ctx, "Kavya")
		require.NoError(t, err)
		assert.True(t, got.IsAdmin)
		assert.NoError(t, got.CheckPassword("an0ther-pass"))
	})

	t.Run("usernames are case sensitive", func(t *testing.T) {
		repos := newRepos(t)
		testutil.CreateUser(t, repos.Users, "Kavya", "", false)
		_, err := repos.Users.GetUser(ctx, "kavya")
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("query", func(t *testing.T) {
		repos := newRepos(t)
		testutil.CreateUser(t, repos.Users, "Sagar", "", false)
		testutil.CreateUser(t, repos.Users, "admin", "", true)
		testutil.CreateUser(t, repos.Users, "Aakash", "", false)

		names := func(users []user.User) []string {
			res := make([]string, 0, len(users))
			for _, u := range users {
				res = append(res, u.Username)
			}
			return res
		}
		isAdmin := true

		all, err := repos.Users.QueryUsers(ctx, user.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Aakash", "Sagar", "admin"}, names(all))

		students, err := repos.Users.QueryUsers(ctx, user.Students())
		require.NoError(t, err)
		assert.Equal(t, []string{"Aakash", "Sagar"}, names(students))

		admins, err := repos.Users.QueryUsers(ctx, user.QueryFilter{IsAdmin: &isAdmin})
		require.NoError(t, err)
		assert.Equal(t, []string{"admin"}, names(admins))
	})
}

// RunAttendanceRepository runs the attendance.Repository suite. newRepos must return empty repositories.
func RunAttendanceRepository(t *testing.T, newRepos func(t *testing.T) Repos) {
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newRepos(t).Attendance.Ping(ctx))
	})

	t.Run("get unknown", func(t *testing.T) {
		repos := newRepos(t)
		_, err := repos.Attendance.GetRecord(ctx, "2024-03-05")
		assert.Equal(t, attendance.ErrNotFound, err)
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		repos := newRepos(t)
		testutil.MarkRecord(t, repos.Attendance, "2024-03-05", "Sagar", "Aakash", "Kavya")
		testutil.MarkRecord(t, repos.Attendance, "2024-03-05", "Kavya", "Aakash")

		rec, err := repos.Attendance.GetRecord(ctx, "2024-03-05")
		require.NoError(t, err)
		assert.Equal(t, "2024-03-05", rec.Date)
		assert.Equal(t, []string{"Kavya", "Aakash"}, rec.Users)

		testutil.MarkRecord(t, repos.Attendance, "2024-03-05")
		rec, err = repos.Attendance.GetRecord(ctx, "2024-03-05")
		require.NoError(t, err)
		assert.Equal(t, []string{}, rec.Users)
	})

	t.Run("queries", func(t *testing.T) {
		repos := newRepos(t)
		testutil.MarkRecord(t, repos.Attendance, "2024-03-04", "Kavya")
		testutil.MarkRecord(t, repos.Attendance, "2024-02-28", "Kavya", "Sagar")
		testutil.MarkRecord(t, repos.Attendance, "2024-03-01", "Sagar")
		testutil.MarkRecord(t, repos.Attendance, "2023-03-15", "Kavya")
		testutil.MarkRecord(t, repos.Attendance, "2024-02-01")

		recs, err := repos.Attendance.QueryRecordsByUser(ctx, "Kavya")
		require.NoError(t, err)
		dates := make([]string, 0, len(recs))
		for _, rec := range recs {
			dates = append(dates, rec.Date)
		}
		assert.Equal(t, []string{"2023-03-15", "2024-02-28", "2024-03-04"}, dates)

		recs, err = repos.Attendance.QueryRecordsByUser(ctx, "Aakash")
		require.NoError(t, err)
		assert.Empty(t, recs)

		totals, err := repos.Attendance.CountRecordsByUsers(ctx, "Kavya", "Sagar", "Aakash")
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"Kavya": 3, "Sagar": 2, "Aakash": 0}, totals)

		totals, err = repos.Attendance.CountRecordsByUsers(ctx)
		require.NoError(t, err)
		assert.Empty(t, totals)

		months := map[string]int{"2024-03": 2, "2024-02": 2, "2023-03": 1, "2023-02": 0, "2024-1": 0}
		for month, want := range months {
			got, err := repos.Attendance.CountRecordsInMonth(ctx, month)
			require.NoError(t, err)
			assert.Equal(t, want, got, month)
		}
	})
}
