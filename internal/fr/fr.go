// Package fr holds the French calendar vocabulary used in customer-facing
// strings. The voice agent speaks French; message bodies are templated
// from these names, never generated.
package fr

import (
	"fmt"
	"time"
)

var weekdays = map[time.Weekday]string{
	time.Monday:    "lundi",
	time.Tuesday:   "mardi",
	time.Wednesday: "mercredi",
	time.Thursday:  "jeudi",
	time.Friday:    "vendredi",
	time.Saturday:  "samedi",
	time.Sunday:    "dimanche",
}

var months = map[time.Month]string{
	time.January:   "janvier",
	time.February:  "février",
	time.March:     "mars",
	time.April:     "avril",
	time.May:       "mai",
	time.June:      "juin",
	time.July:      "juillet",
	time.August:    "août",
	time.September: "septembre",
	time.October:   "octobre",
	time.November:  "novembre",
	time.December:  "décembre",
}

// SMS templates use short month forms to stay under one message segment.
var shortMonths = map[time.Month]string{
	time.January:   "janv.",
	time.February:  "févr.",
	time.March:     "mars",
	time.April:     "avr.",
	time.May:       "mai",
	time.June:      "juin",
	time.July:      "juil.",
	time.August:    "août",
	time.September: "sept.",
	time.October:   "oct.",
	time.November:  "nov.",
	time.December:  "déc.",
}

// Weekday returns the French weekday name.
func Weekday(t time.Time) string {
	return weekdays[t.Weekday()]
}

// Month returns the French month name.
func Month(t time.Time) string {
	return months[t.Month()]
}

// LongDate renders "jeudi 25 décembre 2025".
func LongDate(t time.Time) string {
	return fmt.Sprintf("%s %d %s %d", Weekday(t), t.Day(), Month(t), t.Year())
}

// ShortDate renders "25 déc." for SMS bodies.
func ShortDate(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), shortMonths[t.Month()])
}

// ServiceName renders a service period as spoken French.
func ServiceName(service string) string {
	switch service {
	case "lunch":
		return "au déjeuner"
	case "dinner":
		return "au dîner"
	default:
		return ""
	}
}
