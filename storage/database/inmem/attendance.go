package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/attendance/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance}
}

func copyRecord(rec attendance.Record) attendance.Record {
	users := make([]string, len(rec.Users))
	copy(users, rec.Users)
	rec.Users = users
	return rec
}

func contains(users []string, username string) bool {
	for _, u := range users {
		if u == username {
			return true
		}
	}
	return false
}

func (repo *attendanceRepository) Ping(context.Context) error { return nil }

func (repo *attendanceRepository) GetRecord(_ context.Context, date string) (attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[date]; ok {
		return copyRecord(*rec), nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) UpsertRecord(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec = copyRecord(rec)
	repo.db.table[rec.Date] = &rec
	return copyRecord(rec), nil
}

func (repo *attendanceRepository) QueryRecordsByUser(_ context.Context, username string) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.table {
		if contains(rec.Users, username) {
			recs = append(recs, copyRecord(*rec))
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Date < recs[j].Date })
	return recs, nil
}

func (repo *attendanceRepository) CountRecordsByUsers(_ context.Context, usernames ...string) (map[string]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	totals := make(map[string]int, len(usernames))
	for _, uname := range usernames {
		totals[uname] = 0
	}
	for _, rec := range repo.db.table {
		for _, u := range rec.Users {
			if _, ok := totals[u]; ok {
				totals[u]++
			}
		}
	}
	return totals, nil
}

func (repo *attendanceRepository) CountRecordsInMonth(_ context.Context, month string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	prefix := month + "-"
	for date := range repo.db.table {
		if strings.HasPrefix(date, prefix) {
			count++
		}
	}
	return count, nil
}
