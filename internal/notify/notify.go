// Package notify detects birthdays and work anniversaries and schedules the
// once-a-day celebration notice.
//
// Dates on employee records use the YYYY-MM-DD layout. Records with a
// missing or malformed date are skipped for that kind of event. A birthday
// on February 29 is celebrated on February 28 in non-leap years.
package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"onboard/internal/api"
)

// DateLayout is the layout of DOB and joining dates.
const DateLayout = "2006-01-02"

// Kind is the type of celebration.
type Kind string

// Celebration kinds.
const (
	KindBirthday    Kind = "birthday"
	KindAnniversary Kind = "anniversary"
)

// Event is one celebration for one employee.
type Event struct {
	Employee api.Employee
	Kind     Kind
	Date     time.Time
	// Years is the age turned or the years of service completed.
	Years int
}

// Celebrations returns the events falling on today's calendar day. Work
// anniversaries count only from the first completed year.
func Celebrations(today time.Time, employees []api.Employee) []Event {
	return Upcoming(today, 1, employees)
}

// Upcoming returns events falling within days calendar days starting at
// from, ordered by date, then kind, then employee name. Inactive employees
// are skipped.
func Upcoming(from time.Time, days int, employees []api.Employee) []Event {
	start := truncateDay(from)
	var events []Event

	for d := 0; d < days; d++ {
		day := start.AddDate(0, 0, d)
		for _, e := range employees {
			if !e.Active {
				continue
			}
			if years, ok := matches(day, e.DOB); ok {
				events = append(events, Event{Employee: e, Kind: KindBirthday, Date: day, Years: years})
			}
			if years, ok := matches(day, e.JoiningDate); ok && years >= 1 {
				events = append(events, Event{Employee: e, Kind: KindAnniversary, Date: day, Years: years})
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Kind != b.Kind {
			return a.Kind == KindBirthday
		}
		return a.Employee.Name < b.Employee.Name
	})
	return events
}

// matches reports whether the recurring date falls on day, and how many
// years have passed since it.
func matches(day time.Time, date string) (int, bool) {
	if date == "" {
		return 0, false
	}
	orig, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, false
	}

	years := day.Year() - orig.Year()
	if years < 0 {
		return 0, false
	}

	month, dom := orig.Month(), orig.Day()
	if month == time.February && dom == 29 && !isLeap(day.Year()) {
		dom = 28
	}
	return years, day.Month() == month && day.Day() == dom
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NextFire returns the next time at or after now when the daily notice is
// due at the given hour in now's location.
func NextFire(now time.Time, hour int) time.Time {
	fire := truncateDay(now).Add(time.Duration(hour) * time.Hour)
	if now.After(fire) {
		fire = truncateDay(now).AddDate(0, 0, 1).Add(time.Duration(hour) * time.Hour)
	}
	return fire
}

// Digest renders the events as a notification body. It returns the empty
// string when there is nothing to celebrate.
func Digest(events []Event) string {
	if len(events) == 0 {
		return ""
	}

	var b strings.Builder
	for i, ev := range events {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch ev.Kind {
		case KindBirthday:
			fmt.Fprintf(&b, "🎂 %s has a birthday", ev.Employee.Name)
		case KindAnniversary:
			fmt.Fprintf(&b, "🎉 %s completes %d %s", ev.Employee.Name, ev.Years, plural(ev.Years, "year", "years"))
		}
		if ev.Employee.Department != "" {
			fmt.Fprintf(&b, " (%s)", ev.Employee.Department)
		}
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
