package attendance

import (
	"time"

	"github.com/trezcool/attendance/core"
)

// Record is the roster of a calendar date: the users marked present that day.
type Record struct {
	Date      string    `json:"date"`
	Users     []string  `json:"users"`
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

// NewRecord is what an admin submits to mark today's attendance.
// Date is advisory: the date is always resolved by the server.
type NewRecord struct {
	Date  string   `json:"date"`
	Users []string `json:"users" validate:"dive,notblank"`
}

func (nr *NewRecord) Validate() error {
	nr.Date = core.CleanString(nr.Date)
	if err := core.Validate.Struct(nr); err != nil {
		return err
	}
	nr.Users = uniqueUsers(nr.Users)
	return nil
}

type History struct {
	TotalDays int      `json:"totalDays"`
	Dates     []string `json:"dates"`
}

type (
	DailyPercentage struct {
		Date       string `json:"date"`
		Percentage int    `json:"percentage"`
	}

	StudentTotal struct {
		Name  string `json:"name"`
		Total int    `json:"total"`
	}

	MonthTotal struct {
		Month string `json:"month"`
		Total int    `json:"total"`
	}

	Analytics struct {
		DailyPercentages []DailyPercentage `json:"dailyPercentages"`
		StudentTotals    []StudentTotal    `json:"studentTotals"`
		MonthlySummary   []MonthTotal      `json:"monthlySummary"`
	}
)

// uniqueUsers trims usernames and drops duplicates, keeping the first occurrence order.
func uniqueUsers(users []string) []string {
	seen := make(map[string]struct{}, len(users))
	unique := make([]string, 0, len(users))
	for _, u := range users {
		u = core.CleanString(u)
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}
	return unique
}
