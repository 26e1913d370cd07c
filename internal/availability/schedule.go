// Package availability implements the booking decision engine: schedule
// lookup, per-service capacity accounting and the combined resolver.
package availability

import (
	"time"

	"resavox/internal/models"
)

// Code classifies why a request was refused. Codes are stable machine
// tags; the French reason text lives on the Result.
type Code string

const (
	CodeOK                 Code = "ok"
	CodeRestaurantNotFound Code = "restaurant_not_found"
	CodeExceptionalClosure Code = "exceptional_closure"
	CodeWeeklyClosure      Code = "weekly_closure"
	CodeOutsideHours       Code = "outside_hours"
	CodeInsufficientSeats  Code = "insufficient_capacity"
	CodeBadInput           Code = "bad_input"
)

// CheckSchedule answers "is this restaurant open at date+time, and in
// which service period". Closure precedence: exceptional dates override
// the weekly pattern, a missing or empty weekday entry means closed,
// otherwise the time must fall inside a service window (start inclusive,
// end exclusive).
func CheckSchedule(r *models.Restaurant, date time.Time, clock string) (models.Service, Code) {
	if r.ClosedDates.Contains(date.Format(models.DateLayout)) {
		return "", CodeExceptionalClosure
	}

	day := r.OpeningHours[models.WeekdayOf(date)]
	if day.IsClosed() {
		return "", CodeWeeklyClosure
	}

	minutes, err := models.ParseClock(clock)
	if err != nil {
		return "", CodeBadInput
	}

	service, ok := day.ServiceAt(minutes)
	if !ok {
		return "", CodeOutsideHours
	}
	return service, CodeOK
}
