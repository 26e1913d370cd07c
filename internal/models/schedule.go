package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday is a schedule key. Values match the JSON produced by the
// dashboard forms ("monday" ... "sunday").
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// AllWeekdays lists weekdays in calendar order, Monday first.
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// WeekdayOf maps a date to its schedule key.
func WeekdayOf(t time.Time) Weekday {
	switch t.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// Service identifies a service period within a day.
type Service string

const (
	ServiceLunch  Service = "lunch"
	ServiceDinner Service = "dinner"
	ServiceAny    Service = "any"
)

// ServiceCutoffMinutes is the lunch/dinner boundary used when only a
// clock time is known (waitlist tagging, capacity classification).
// Times strictly before 15:00 count as lunch.
const ServiceCutoffMinutes = 15 * 60

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format: %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time out of range: %q", s)
	}
	return hour*60 + minute, nil
}

// ServiceForClock classifies a clock time into lunch or dinner using the
// fixed 15:00 cutoff.
func ServiceForClock(clock string) (Service, error) {
	minutes, err := ParseClock(clock)
	if err != nil {
		return "", err
	}
	if minutes < ServiceCutoffMinutes {
		return ServiceLunch, nil
	}
	return ServiceDinner, nil
}

// TimeRange is a service window in "HH:MM" form. The start boundary is
// inclusive, the end boundary exclusive: a reservation exactly at
// closing time is outside the range.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Contains reports whether the given minutes-since-midnight fall inside
// the range.
func (r TimeRange) Contains(minutes int) bool {
	start, err := ParseClock(r.Start)
	if err != nil {
		return false
	}
	end, err := ParseClock(r.End)
	if err != nil {
		return false
	}
	return minutes >= start && minutes < end
}

// Validate checks that both boundaries parse and are ordered.
func (r TimeRange) Validate() error {
	start, err := ParseClock(r.Start)
	if err != nil {
		return err
	}
	end, err := ParseClock(r.End)
	if err != nil {
		return err
	}
	if start >= end {
		return fmt.Errorf("time range %s-%s: start must precede end", r.Start, r.End)
	}
	return nil
}

// DaySchedule holds the service windows for one weekday. A nil range
// means that service does not run; both nil means closed all day.
type DaySchedule struct {
	Lunch  *TimeRange `json:"lunch,omitempty"`
	Dinner *TimeRange `json:"dinner,omitempty"`
}

// IsClosed reports whether the day has no service at all.
func (d *DaySchedule) IsClosed() bool {
	return d == nil || (d.Lunch == nil && d.Dinner == nil)
}

// ServiceAt returns the service whose window contains the given minute
// offset, or false when none does.
func (d *DaySchedule) ServiceAt(minutes int) (Service, bool) {
	if d == nil {
		return "", false
	}
	if d.Lunch != nil && d.Lunch.Contains(minutes) {
		return ServiceLunch, true
	}
	if d.Dinner != nil && d.Dinner.Contains(minutes) {
		return ServiceDinner, true
	}
	return "", false
}

// WeekSchedule maps weekdays to service windows. A missing key means
// the restaurant is closed that day.
type WeekSchedule map[Weekday]*DaySchedule

// Validate checks every defined window. Unknown weekday keys are
// rejected so a typo in the dashboard JSON cannot silently close a day.
func (w WeekSchedule) Validate() error {
	known := make(map[Weekday]bool, len(AllWeekdays))
	for _, d := range AllWeekdays {
		known[d] = true
	}
	for day, sched := range w {
		if !known[day] {
			return fmt.Errorf("unknown weekday %q", day)
		}
		if sched == nil {
			continue
		}
		if sched.Lunch != nil {
			if err := sched.Lunch.Validate(); err != nil {
				return fmt.Errorf("%s lunch: %w", day, err)
			}
		}
		if sched.Dinner != nil {
			if err := sched.Dinner.Validate(); err != nil {
				return fmt.Errorf("%s dinner: %w", day, err)
			}
		}
	}
	return nil
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO "YYYY-MM-DD" date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ClosedDates is the set of exceptional closure dates, stored as ISO
// strings. It overrides the weekly schedule regardless of weekday.
type ClosedDates []string

// Contains reports whether the date (ISO form) is an exceptional closure.
func (c ClosedDates) Contains(date string) bool {
	date = strings.TrimSpace(date)
	for _, d := range c {
		if d == date {
			return true
		}
	}
	return false
}
