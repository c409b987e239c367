package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core/attendance"
)

type recordRow struct {
	Date      string         `db:"date"`
	Users     pq.StringArray `db:"users"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r recordRow) toRecord() attendance.Record {
	users := []string(r.Users)
	if users == nil {
		users = []string{}
	}
	return attendance.Record{Date: r.Date, Users: users, UpdatedAt: r.UpdatedAt.UTC()}
}

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) Ping(ctx context.Context) error {
	return repo.db.Ping(ctx)
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, date string) (attendance.Record, error) {
	var row recordRow
	err := repo.db.GetContext(ctx, &row, `SELECT date, users, updated_at FROM attendance WHERE date = $1`, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "selecting record")
	}
	return row.toRecord(), nil
}

func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	users := rec.Users
	if users == nil {
		users = []string{}
	}
	var row recordRow
	err := repo.db.QueryRowxContext(
		ctx,
		`INSERT INTO attendance (date, users, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (date) DO UPDATE SET users = EXCLUDED.users, updated_at = EXCLUDED.updated_at
		RETURNING date, users, updated_at`,
		rec.Date, pq.StringArray(users), rec.UpdatedAt,
	).StructScan(&row)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting record")
	}
	return row.toRecord(), nil
}

func (repo *attendanceRepository) QueryRecordsByUser(ctx context.Context, username string) ([]attendance.Record, error) {
	var rows []recordRow
	err := repo.db.SelectContext(
		ctx, &rows,
		`SELECT date, users, updated_at FROM attendance WHERE users @> ARRAY[$1::text] ORDER BY date`,
		username,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting records")
	}
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.toRecord())
	}
	return recs, nil
}

func (repo *attendanceRepository) CountRecordsByUsers(ctx context.Context, usernames ...string) (map[string]int, error) {
	totals := make(map[string]int, len(usernames))
	for _, uname := range usernames {
		totals[uname] = 0
	}
	if len(usernames) == 0 {
		return totals, nil
	}

	var rows []struct {
		Username string `db:"username"`
		Total    int    `db:"total"`
	}
	err := repo.db.SelectContext(
		ctx, &rows,
		`SELECT u AS username, COUNT(*) AS total
		FROM attendance, unnest(users) AS u
		WHERE users && $1 AND u = ANY($1)
		GROUP BY u`,
		pq.StringArray(usernames),
	)
	if err != nil {
		return nil, errors.Wrap(err, "counting records")
	}
	for _, row := range rows {
		totals[row.Username] = row.Total
	}
	return totals, nil
}

func (repo *attendanceRepository) CountRecordsInMonth(ctx context.Context, month string) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM attendance WHERE date LIKE $1`, month+"-%"); err != nil {
		return 0, errors.Wrap(err, "counting records")
	}
	return count, nil
}
