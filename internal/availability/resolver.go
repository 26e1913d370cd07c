package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resavox/internal/database"
	"resavox/internal/fr"
	"resavox/internal/models"
)

// Store is the data-access capability the resolver needs. *database.DB
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error)
	ActiveForDate(ctx context.Context, restaurantID int64, date string) ([]models.Reservation, error)
}

// Result is the outcome of an availability check. Reason carries the
// French text spoken back to the caller when Available is false.
type Result struct {
	Available         bool           `json:"available"`
	Code              Code           `json:"code"`
	Reason            string         `json:"reason,omitempty"`
	Service           models.Service `json:"service,omitempty"`
	AvailableCapacity int            `json:"available_capacity"`
}

// Alternative is a bookable slot suggested after a refusal.
type Alternative struct {
	Date     string         `json:"date"`
	Service  models.Service `json:"service"`
	Capacity int            `json:"capacity"`
	Label    string         `json:"label"` // spoken French descriptor
}

// Resolver composes schedule lookup and capacity accounting into a
// single decision. Capacity is recomputed from the store on every check;
// nothing is cached, because concurrent calls interleave.
type Resolver struct {
	store Store

	// ScanDays bounds the forward search for alternatives.
	ScanDays int
	// MaxAlternatives caps the suggestions returned.
	MaxAlternatives int
	// Now is injectable for tests.
	Now func() time.Time
}

// NewResolver builds a resolver with the default 3-day alternative scan.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, ScanDays: 3, MaxAlternatives: 3, Now: time.Now}
}

// Check decides whether guests can be seated at date+time. The decision
// is advisory: the create handler re-runs it just before the insert, and
// a small overshoot under concurrent calls is accepted.
func (rs *Resolver) Check(ctx context.Context, restaurantID int64, date, clock string, guests int) (Result, error) {
	return rs.CheckExcluding(ctx, restaurantID, date, clock, guests, 0)
}

// CheckExcluding ignores one reservation during capacity accounting.
// Update re-verification passes the reservation being moved, so its own
// seats never count against its new slot — otherwise shrinking a party
// at a full service would be refused.
func (rs *Resolver) CheckExcluding(ctx context.Context, restaurantID int64, date, clock string, guests int, excludeID int64) (Result, error) {
	restaurant, err := rs.store.GetRestaurant(ctx, restaurantID)
	if errors.Is(err, database.ErrNotFound) {
		return Result{Code: CodeRestaurantNotFound, Reason: "Restaurant non trouvé"}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("load restaurant: %w", err)
	}

	day, err := models.ParseDate(date)
	if err != nil {
		return Result{Code: CodeBadInput, Reason: "Date invalide"}, nil
	}

	service, code := CheckSchedule(restaurant, day, clock)
	if code != CodeOK {
		return Result{Code: code, Reason: closureReason(code)}, nil
	}

	reservations, err := rs.store.ActiveForDate(ctx, restaurantID, date)
	if err != nil {
		return Result{}, fmt.Errorf("load reservations: %w", err)
	}
	if excludeID != 0 {
		kept := reservations[:0]
		for _, r := range reservations {
			if r.ID != excludeID {
				kept = append(kept, r)
			}
		}
		reservations = kept
	}

	remaining := RemainingCapacity(restaurant, reservations, service)
	if remaining < guests {
		return Result{
			Code:              CodeInsufficientSeats,
			Reason:            fmt.Sprintf("Capacité insuffisante : il ne reste que %d places pour ce service", remaining),
			Service:           service,
			AvailableCapacity: remaining,
		}, nil
	}

	return Result{
		Available:         true,
		Code:              CodeOK,
		Service:           service,
		AvailableCapacity: remaining,
	}, nil
}

func closureReason(code Code) string {
	switch code {
	case CodeExceptionalClosure:
		return "Le restaurant est exceptionnellement fermé à cette date"
	case CodeWeeklyClosure:
		return "Le restaurant est fermé ce jour-là"
	case CodeOutsideHours:
		return "L'horaire demandé est en dehors des heures de service"
	case CodeBadInput:
		return "Horaire invalide"
	default:
		return ""
	}
}

// Alternatives scans forward from the requested date and suggests up to
// MaxAlternatives slots with room for the party, nearest dates first,
// lunch before dinner within a day. The requested slot itself is
// excluded.
func (rs *Resolver) Alternatives(ctx context.Context, restaurantID int64, date, clock string, guests int) ([]Alternative, error) {
	restaurant, err := rs.store.GetRestaurant(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load restaurant: %w", err)
	}

	start, err := models.ParseDate(date)
	if err != nil {
		return nil, nil
	}

	requestedService := models.Service("")
	if svc, scErr := models.ServiceForClock(clock); scErr == nil {
		requestedService = svc
	}

	scanDays := rs.ScanDays
	if scanDays <= 0 {
		scanDays = 3
	}
	max := rs.MaxAlternatives
	if max <= 0 {
		max = 3
	}

	var out []Alternative
	for offset := 0; offset <= scanDays && len(out) < max; offset++ {
		day := start.AddDate(0, 0, offset)
		dayStr := day.Format(models.DateLayout)

		if restaurant.ClosedDates.Contains(dayStr) {
			continue
		}
		sched := restaurant.OpeningHours[models.WeekdayOf(day)]
		if sched.IsClosed() {
			continue
		}

		reservations, err := rs.store.ActiveForDate(ctx, restaurantID, dayStr)
		if err != nil {
			return nil, fmt.Errorf("load reservations for %s: %w", dayStr, err)
		}

		for _, service := range []models.Service{models.ServiceLunch, models.ServiceDinner} {
			if offset == 0 && service == requestedService {
				continue
			}
			if service == models.ServiceLunch && sched.Lunch == nil {
				continue
			}
			if service == models.ServiceDinner && sched.Dinner == nil {
				continue
			}
			remaining := RemainingCapacity(restaurant, reservations, service)
			if remaining < guests {
				continue
			}
			out = append(out, Alternative{
				Date:     dayStr,
				Service:  service,
				Capacity: remaining,
				Label:    fmt.Sprintf("%s %s", fr.LongDate(day), fr.ServiceName(string(service))),
			})
			if len(out) >= max {
				break
			}
		}
	}
	return out, nil
}
