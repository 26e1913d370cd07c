package booking

import (
	"fmt"
	"time"

	"resavox/internal/fr"
	"resavox/internal/models"
)

// DateFacts grounds the agent's notion of "today". The voice platform
// has no intrinsic clock, so relative expressions ("ce soir", "jeudi
// prochain") are resolved against this payload before any other call.
type DateFacts struct {
	Today        string `json:"today"`
	Tomorrow     string `json:"tomorrow"`
	NextWeek     string `json:"next_week"`
	Weekday      string `json:"weekday"`
	WeekdayIndex int    `json:"weekday_index"` // 1 = Monday ... 7 = Sunday
	Summary      string `json:"summary"`
}

// CurrentDateFacts builds the calendar facts for the given instant.
func CurrentDateFacts(now time.Time) DateFacts {
	idx := int(now.Weekday())
	if idx == 0 {
		idx = 7
	}
	return DateFacts{
		Today:        now.Format(models.DateLayout),
		Tomorrow:     now.AddDate(0, 0, 1).Format(models.DateLayout),
		NextWeek:     now.AddDate(0, 0, 7).Format(models.DateLayout),
		Weekday:      fr.Weekday(now),
		WeekdayIndex: idx,
		Summary:      fmt.Sprintf("Nous sommes aujourd'hui le %s.", fr.LongDate(now)),
	}
}
