package core

import (
	"time"
	_ "time/tzdata" // pinned zones must resolve on hosts without zoneinfo

	"github.com/pkg/errors"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// Clock resolves calendar dates in a fixed timezone, regardless of the host's locale.
type Clock struct {
	loc     *time.Location
	nowFunc func() time.Time
}

func NewClock(timezone string) (*Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "loading timezone %q", timezone)
	}
	return &Clock{loc: loc, nowFunc: time.Now}, nil
}

// WithNow returns a copy of the Clock reading the current time from nowFunc.
func (c *Clock) WithNow(nowFunc func() time.Time) *Clock {
	return &Clock{loc: c.loc, nowFunc: nowFunc}
}

// Frozen returns a copy of the Clock stopped at the current instant.
func (c *Clock) Frozen() *Clock {
	now := c.nowFunc()
	return c.WithNow(func() time.Time { return now })
}

func (c *Clock) Location() *time.Location { return c.loc }

func (c *Clock) Now() time.Time { return c.nowFunc().In(c.loc) }

// Today returns the current calendar date as YYYY-MM-DD.
func (c *Clock) Today() string { return c.Now().Format(DateLayout) }

// LastDays returns the n calendar dates ending today, oldest first.
func (c *Clock) LastDays(n int) []string {
	now := c.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
	days := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		days = append(days, today.AddDate(0, 0, -i).Format(DateLayout))
	}
	return days
}

// LastMonths returns the n months (YYYY-MM) ending with the current one, oldest first.
func (c *Clock) LastMonths(n int) []string {
	now := c.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, c.loc)
	months := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		months = append(months, first.AddDate(0, -i, 0).Format(MonthLayout))
	}
	return months
}

// IsDate reports whether s is a canonical YYYY-MM-DD date.
func IsDate(s string) bool {
	t, err := time.Parse(DateLayout, s)
	return err == nil && t.Format(DateLayout) == s
}

// IsMonth reports whether s is a canonical YYYY-MM month.
func IsMonth(s string) bool {
	t, err := time.Parse(MonthLayout, s)
	return err == nil && t.Format(MonthLayout) == s
}
