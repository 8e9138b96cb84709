package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Five-field format, the same one asynq's scheduler accepts.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Schedule is a parsed cron expression for periodic worker jobs.
type Schedule struct {
	expr  string
	sched cron.Schedule
}

func ParseSchedule(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return Schedule{expr: expr, sched: sched}, nil
}

func (s Schedule) String() string {
	return s.expr
}

// Next returns the first run strictly after from, in UTC.
func (s Schedule) Next(from time.Time) time.Time {
	return s.sched.Next(from.UTC())
}

// Interval is the gap between the two runs following from. Jobs use it as
// their uniqueness window so a slow run never overlaps the next one.
func (s Schedule) Interval(from time.Time) time.Duration {
	first := s.Next(from)
	return s.Next(first).Sub(first)
}
