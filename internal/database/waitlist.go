package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"resavox/internal/models"
)

// CreateWaitlistEntry inserts a waitlist entry.
func (db *DB) CreateWaitlistEntry(ctx context.Context, e *models.WaitlistEntry) error {
	_, err := db.ExecContext(ctx, `
        INSERT INTO waitlist_entries (id, restaurant_id, customer_name,
            customer_phone, desired_date, desired_time, desired_service,
            party_size, status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RestaurantID, e.CustomerName,
		e.CustomerPhone, e.DesiredDate, e.DesiredTime, string(e.DesiredService),
		e.PartySize, e.Status,
	)
	if err != nil {
		return fmt.Errorf("insert waitlist entry: %w", err)
	}
	return nil
}

// GetWaitlistEntry returns an entry by id, or ErrNotFound.
func (db *DB) GetWaitlistEntry(ctx context.Context, id string) (*models.WaitlistEntry, error) {
	var (
		e       models.WaitlistEntry
		service string
		resID   sql.NullInt64
		desired sql.NullString
	)
	err := db.QueryRowContext(ctx, `
        SELECT id, restaurant_id, customer_name, customer_phone,
               desired_date, desired_time, desired_service, party_size,
               status, reservation_id, created_at, updated_at
        FROM waitlist_entries WHERE id = ?`, id,
	).Scan(
		&e.ID, &e.RestaurantID, &e.CustomerName, &e.CustomerPhone,
		&e.DesiredDate, &desired, &service, &e.PartySize,
		&e.Status, &resID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get waitlist entry %s: %w", id, err)
	}
	e.DesiredTime = desired.String
	e.DesiredService = models.Service(service)
	if resID.Valid {
		e.ReservationID = &resID.Int64
	}
	return &e, nil
}

// SetWaitlistStatus updates an entry's status, optionally linking the
// reservation that converted it.
func (db *DB) SetWaitlistStatus(ctx context.Context, id, status string, reservationID *int64) error {
	var resID any
	if reservationID != nil {
		resID = *reservationID
	}
	res, err := db.ExecContext(ctx, `
        UPDATE waitlist_entries SET status = ?, reservation_id = ?, updated_at = ?
        WHERE id = ?`,
		status, resID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set waitlist %s status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
