package mongorepos

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/attendance/core/attendance"
)

type recordDoc struct {
	Date      string    `bson:"date"`
	Users     []string  `bson:"users"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (d recordDoc) toRecord() attendance.Record {
	users := d.Users
	if users == nil {
		users = []string{}
	}
	return attendance.Record{Date: d.Date, Users: users, UpdatedAt: d.UpdatedAt.UTC()}
}

type attendanceRepository struct {
	db   *DB
	coll *mongo.Collection
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db, coll: db.db.Collection(attendanceCollection)}
}

func (repo *attendanceRepository) Ping(ctx context.Context) error {
	return repo.db.Ping(ctx)
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, date string) (attendance.Record, error) {
	var doc recordDoc
	if err := repo.coll.FindOne(ctx, bson.M{"date": date}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "finding record")
	}
	return doc.toRecord(), nil
}

func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	users := rec.Users
	if users == nil {
		users = []string{}
	}
	_, err := repo.coll.UpdateOne(
		ctx,
		bson.M{"date": rec.Date},
		bson.M{"$set": bson.M{"users": users, "updatedAt": rec.UpdatedAt}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting record")
	}
	rec.Users = users
	return rec, nil
}

func (repo *attendanceRepository) QueryRecordsByUser(ctx context.Context, username string) ([]attendance.Record, error) {
	cur, err := repo.coll.Find(ctx, bson.M{"users": username}, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "finding records")
	}
	var docs []recordDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding records")
	}

	recs := make([]attendance.Record, 0, len(docs))
	for _, doc := range docs {
		recs = append(recs, doc.toRecord())
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

	in := bson.M{"$in": usernames}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"users": in}}},
		{{Key: "$unwind", Value: "$users"}},
		{{Key: "$match", Value: bson.M{"users": in}}},
		{{Key: "$group", Value: bson.M{"_id": "$users", "total": bson.M{"$sum": 1}}}},
	}
	cur, err := repo.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "aggregating records")
	}
	var rows []struct {
		Username string `bson:"_id"`
		Total    int    `bson:"total"`
	}
	if err = cur.All(ctx, &rows); err != nil {
		return nil, errors.Wrap(err, "decoding totals")
	}
	for _, row := range rows {
		totals[row.Username] = row.Total
	}
	return totals, nil
}

// CountRecordsInMonth matches dates on an anchored prefix, which the date index can serve.
func (repo *attendanceRepository) CountRecordsInMonth(ctx context.Context, month string) (int, error) {
	prefix := primitive.Regex{Pattern: "^" + regexp.QuoteMeta(month+"-")}
	count, err := repo.coll.CountDocuments(ctx, bson.M{"date": prefix})
	if err != nil {
		return 0, errors.Wrap(err, "counting records")
	}
	return int(count), nil
}
