// Package waitlist captures booking requests that could not be satisfied
// immediately so the restaurant can call back when seats free up.
package waitlist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"resavox/internal/models"
)

// Store is the persistence capability the service needs.
type Store interface {
	CreateWaitlistEntry(ctx context.Context, e *models.WaitlistEntry) error
	SetWaitlistStatus(ctx context.Context, id, status string, reservationID *int64) error
}

// CaptureRequest describes the request to park on the waitlist.
type CaptureRequest struct {
	RestaurantID  int64
	CustomerName  string
	CustomerPhone string
	DesiredDate   string
	DesiredTime   string // optional
	PartySize     int

	// NeedsManagerCall marks large parties that are always human-routed.
	NeedsManagerCall bool
}

// Service creates and transitions waitlist entries.
type Service struct {
	store  Store
	logger zerolog.Logger
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Capture records a waitlist entry. The desired service is derived from
// the desired time when present, otherwise left open.
func (s *Service) Capture(ctx context.Context, req CaptureRequest) (*models.WaitlistEntry, error) {
	service := models.ServiceAny
	if req.DesiredTime != "" {
		if svc, err := models.ServiceForClock(req.DesiredTime); err == nil {
			service = svc
		}
	}

	status := models.WaitlistWaiting
	if req.NeedsManagerCall {
		status = models.WaitlistNeedsManagerCall
	}

	entry := &models.WaitlistEntry{
		ID:             uuid.NewString(),
		RestaurantID:   req.RestaurantID,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		DesiredDate:    req.DesiredDate,
		DesiredTime:    req.DesiredTime,
		DesiredService: service,
		PartySize:      req.PartySize,
		Status:         status,
	}

	if err := s.store.CreateWaitlistEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("capture waitlist entry: %w", err)
	}

	s.logger.Info().
		Str("entry_id", entry.ID).
		Int64("restaurant_id", entry.RestaurantID).
		Str("date", entry.DesiredDate).
		Str("status", entry.Status).
		Int("party_size", entry.PartySize).
		Msg("waitlist entry captured")

	return entry, nil
}

// Convert links an entry to the reservation that fulfilled it.
func (s *Service) Convert(ctx context.Context, entryID string, reservationID int64) error {
	if err := s.store.SetWaitlistStatus(ctx, entryID, models.WaitlistConverted, &reservationID); err != nil {
		return fmt.Errorf("convert waitlist entry %s: %w", entryID, err)
	}
	return nil
}
