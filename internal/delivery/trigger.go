package delivery

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule fires once a day at 17:00 scheduler-local time.
const DefaultSchedule = "0 17 * * *"

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
// A "CRON_TZ=Area/City " prefix pins the schedule to a time zone.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Clock supplies the current time. Tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Trigger holds the next fire time of a cron schedule. It lives in memory
// only; a restart recomputes it from the current time.
type Trigger struct {
	expr  string
	sched cron.Schedule
	next  time.Time
}

// NewTrigger parses expr and computes the first fire time after now.
func NewTrigger(expr string, now time.Time) (*Trigger, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("delivery: parse schedule %q: %w", expr, err)
	}
	t := &Trigger{expr: expr, sched: sched}
	t.next = sched.Next(now)
	if t.next.IsZero() {
		return nil, fmt.Errorf("delivery: schedule %q never fires", expr)
	}
	return t, nil
}

// Next returns the pending fire time.
func (t *Trigger) Next() time.Time { return t.next }

// Due reports whether the fire time has been reached.
func (t *Trigger) Due(now time.Time) bool {
	return !now.Before(t.next)
}

// Advance moves the fire time past now. Fire times missed while a pass ran
// are skipped, not queued.
func (t *Trigger) Advance(now time.Time) {
	t.next = t.sched.Next(now)
}

// String returns the schedule expression.
func (t *Trigger) String() string { return t.expr }
