package booking

import (
	"context"
	"errors"
	"fmt"

	"resavox/internal/database"
	"resavox/internal/models"
)

// DuplicateCheck is the result of a duplicate lookup. Absence is a
// normal outcome, never an error.
type DuplicateCheck struct {
	HasDuplicate bool
	Existing     *models.Reservation
}

// duplicateStore is the slice of the store the detector needs.
type duplicateStore interface {
	ActiveByPhoneAndDate(ctx context.Context, restaurantID int64, phone, date string) (*models.Reservation, error)
}

// CheckDuplicate looks for an active reservation held by the same phone
// number on the same date, regardless of requested time: a caller
// ringing twice about the same day almost always means the same visit.
func CheckDuplicate(ctx context.Context, store duplicateStore, restaurantID int64, phone, date string) (DuplicateCheck, error) {
	existing, err := store.ActiveByPhoneAndDate(ctx, restaurantID, NormalizePhone(phone), date)
	if errors.Is(err, database.ErrNotFound) {
		return DuplicateCheck{}, nil
	}
	if err != nil {
		return DuplicateCheck{}, fmt.Errorf("duplicate lookup: %w", err)
	}
	return DuplicateCheck{HasDuplicate: true, Existing: existing}, nil
}
