package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"resavox/internal/models"
)

const reservationColumns = `id, restaurant_id, call_id, customer_name, customer_phone,
    customer_email, reservation_date, reservation_time, number_of_guests,
    status, source, special_requests, confidence_score, needs_confirmation,
    cancellation_token, created_at, updated_at`

func scanReservation(row interface{ Scan(dest ...any) error }) (*models.Reservation, error) {
	var (
		r       models.Reservation
		callID  sql.NullInt64
		email   sql.NullString
		special sql.NullString
		token   sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.RestaurantID, &callID, &r.CustomerName, &r.CustomerPhone,
		&email, &r.Date, &r.Time, &r.Guests,
		&r.Status, &r.Source, &special, &r.ConfidenceScore, &r.NeedsConfirmation,
		&token, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if callID.Valid {
		r.CallID = &callID.Int64
	}
	r.CustomerEmail = email.String
	r.SpecialRequests = special.String
	r.CancellationToken = token.String
	return &r, nil
}

// CreateReservation inserts a reservation and fills in its id.
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	var callID any
	if r.CallID != nil {
		callID = *r.CallID
	}
	// Tokenless rows (web/manual sources) must stay NULL: the column is
	// UNIQUE and sqlite treats '' as one value, not as absence.
	var token any
	if r.CancellationToken != "" {
		token = r.CancellationToken
	}

	res, err := db.ExecContext(ctx, `
        INSERT INTO reservations (restaurant_id, call_id, customer_name,
            customer_phone, customer_email, reservation_date, reservation_time,
            number_of_guests, status, source, special_requests,
            confidence_score, needs_confirmation, cancellation_token)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RestaurantID, callID, r.CustomerName,
		r.CustomerPhone, r.CustomerEmail, r.Date, r.Time,
		r.Guests, r.Status, r.Source, r.SpecialRequests,
		r.ConfidenceScore, r.NeedsConfirmation, token,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

// GetReservation returns a reservation by id, or ErrNotFound.
func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = ?", id)
	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %d: %w", id, err)
	}
	return r, nil
}

// GetReservationByToken returns a reservation by its cancellation token.
func (db *DB) GetReservationByToken(ctx context.Context, token string) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE cancellation_token = ?", token)
	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation by token: %w", err)
	}
	return r, nil
}

// UpdateReservation persists the mutable fields of a reservation.
func (db *DB) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	_, err := db.ExecContext(ctx, `
        UPDATE reservations SET customer_name = ?, customer_phone = ?,
            customer_email = ?, reservation_date = ?, reservation_time = ?,
            number_of_guests = ?, status = ?, special_requests = ?,
            needs_confirmation = ?, updated_at = ?
        WHERE id = ?`,
		r.CustomerName, r.CustomerPhone,
		r.CustomerEmail, r.Date, r.Time,
		r.Guests, r.Status, r.SpecialRequests,
		r.NeedsConfirmation, time.Now(), r.ID,
	)
	if err != nil {
		return fmt.Errorf("update reservation %d: %w", r.ID, err)
	}
	return nil
}

// SetReservationStatus updates only the status column. Returns
// ErrNotFound when the id is unknown.
func (db *DB) SetReservationStatus(ctx context.Context, id int64, status string) error {
	res, err := db.ExecContext(ctx,
		"UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set reservation %d status: %w", id, err)
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

// ActiveByPhoneAndDate returns the single active reservation for a
// phone number on a date, regardless of time. Used by the duplicate
// detector; absence is ErrNotFound, never conflated with failure.
func (db *DB) ActiveByPhoneAndDate(ctx context.Context, restaurantID int64, phone, date string) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+reservationColumns+` FROM reservations
         WHERE restaurant_id = ? AND customer_phone = ? AND reservation_date = ?
           AND status IN ('pending', 'confirmed')
         ORDER BY reservation_time LIMIT 1`,
		restaurantID, phone, date)
	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("active by phone/date: %w", err)
	}
	return r, nil
}

// ActiveForDate returns all active reservations for a restaurant on a
// date. Capacity accounting classifies each row by its own time.
func (db *DB) ActiveForDate(ctx context.Context, restaurantID int64, date string) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+reservationColumns+` FROM reservations
         WHERE restaurant_id = ? AND reservation_date = ?
           AND status IN ('pending', 'confirmed')`,
		restaurantID, date)
	if err != nil {
		return nil, fmt.Errorf("active for date: %w", err)
	}
	defer rows.Close()

	var out []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// FindActiveByName fuzzy-matches active reservations by case-insensitive
// substring on the customer name. A non-empty phone narrows by exact
// match to disambiguate common names. Ordered by soonest date then time.
// The fold happens in Go: sqlite's LOWER() is ASCII-only, so "Éric"
// would never match "éric" if the database did the comparison.
func (db *DB) FindActiveByName(ctx context.Context, restaurantID int64, name, phone string) ([]models.Reservation, error) {
	query := "SELECT " + reservationColumns + ` FROM reservations
        WHERE restaurant_id = ? AND status IN ('pending', 'confirmed')`
	args := []any{restaurantID}
	if phone != "" {
		query += " AND customer_phone = ?"
		args = append(args, phone)
	}
	query += " ORDER BY reservation_date, reservation_time"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find by name: %w", err)
	}
	defer rows.Close()

	needle := strings.ToLower(strings.TrimSpace(name))
	var out []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		if !strings.Contains(strings.ToLower(r.CustomerName), needle) {
			continue
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ListByRestaurant returns all reservations for a restaurant, newest
// date first. Used by report exports.
func (db *DB) ListByRestaurant(ctx context.Context, restaurantID int64) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+reservationColumns+` FROM reservations
         WHERE restaurant_id = ?
         ORDER BY reservation_date DESC, reservation_time DESC`,
		restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list by restaurant: %w", err)
	}
	defer rows.Close()

	var out []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
