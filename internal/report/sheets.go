package report

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"resavox/internal/models"
)

// SheetsSync appends reservation rows to a Google Sheet so the owner
// can follow bookings without the dashboard.
type SheetsSync struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewSheetsSync authenticates with a service-account JSON key file.
func NewSheetsSync(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsSync, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}
	cfg, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse sheets credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &SheetsSync{service: svc, spreadsheetID: spreadsheetID}, nil
}

// AppendActive appends the active reservations to the sheet. Cancelled
// and past-status rows are skipped; the sheet tracks upcoming covers,
// not history.
func (s *SheetsSync) AppendActive(ctx context.Context, reservations []models.Reservation) error {
	active := filterActive(reservations)
	if len(active) == 0 {
		return nil
	}

	values := make([][]interface{}, 0, len(active))
	for i := range active {
		values = append(values, sheetRowValues(&active[i]))
	}

	vr := &sheets.ValueRange{Values: values}
	_, err := s.service.Spreadsheets.Values.
		Append(s.spreadsheetID, "A1", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets append: %w", err)
	}
	return nil
}

func filterActive(reservations []models.Reservation) []models.Reservation {
	active := make([]models.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.IsActive() {
			active = append(active, r)
		}
	}
	return active
}

func sheetRowValues(r *models.Reservation) []interface{} {
	return []interface{}{
		r.ID,
		r.CustomerName,
		r.CustomerPhone,
		r.Date,
		r.Time,
		r.Guests,
		r.Status,
		r.SpecialRequests,
		r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
