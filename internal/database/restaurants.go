package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"resavox/internal/models"
)

// GetRestaurant loads a restaurant with its schedule decoded and
// validated. Returns ErrNotFound when the id is unknown.
func (db *DB) GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error) {
	var (
		r          models.Restaurant
		email      sql.NullString
		address    sql.NullString
		lunchCap   sql.NullInt64
		dinnerCap  sql.NullInt64
		hoursJSON  string
		closedJSON string
		fallback   sql.NullString
	)

	err := db.QueryRowContext(ctx, `
        SELECT id, name, phone, email, address, max_capacity,
               max_capacity_lunch, max_capacity_dinner,
               opening_hours, closed_dates, sms_enabled, fallback_phone,
               owner_chat_id, created_at, updated_at
        FROM restaurants WHERE id = ?`, id,
	).Scan(
		&r.ID, &r.Name, &r.Phone, &email, &address, &r.MaxCapacity,
		&lunchCap, &dinnerCap,
		&hoursJSON, &closedJSON, &r.SMSEnabled, &fallback,
		&r.OwnerChatID, &r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get restaurant %d: %w", id, err)
	}

	r.Email = email.String
	r.Address = address.String
	r.FallbackPhone = fallback.String
	if lunchCap.Valid {
		v := int(lunchCap.Int64)
		r.MaxCapacityLunch = &v
	}
	if dinnerCap.Valid {
		v := int(dinnerCap.Int64)
		r.MaxCapacityDinner = &v
	}

	if err := json.Unmarshal([]byte(hoursJSON), &r.OpeningHours); err != nil {
		return nil, fmt.Errorf("restaurant %d: decode opening_hours: %w", id, err)
	}
	if err := r.OpeningHours.Validate(); err != nil {
		return nil, fmt.Errorf("restaurant %d: invalid opening_hours: %w", id, err)
	}
	if err := json.Unmarshal([]byte(closedJSON), &r.ClosedDates); err != nil {
		return nil, fmt.Errorf("restaurant %d: decode closed_dates: %w", id, err)
	}

	return &r, nil
}

// CreateRestaurant inserts a restaurant row. Used by seeding and tests;
// the dashboard owns restaurant editing in production.
func (db *DB) CreateRestaurant(ctx context.Context, r *models.Restaurant) error {
	if err := r.OpeningHours.Validate(); err != nil {
		return fmt.Errorf("invalid opening_hours: %w", err)
	}

	hours, err := json.Marshal(r.OpeningHours)
	if err != nil {
		return fmt.Errorf("encode opening_hours: %w", err)
	}
	closed := []byte("[]")
	if r.ClosedDates != nil {
		closed, err = json.Marshal(r.ClosedDates)
		if err != nil {
			return fmt.Errorf("encode closed_dates: %w", err)
		}
	}

	var lunchCap, dinnerCap any
	if r.MaxCapacityLunch != nil {
		lunchCap = *r.MaxCapacityLunch
	}
	if r.MaxCapacityDinner != nil {
		dinnerCap = *r.MaxCapacityDinner
	}

	res, err := db.ExecContext(ctx, `
        INSERT INTO restaurants (name, phone, email, address, max_capacity,
            max_capacity_lunch, max_capacity_dinner, opening_hours,
            closed_dates, sms_enabled, fallback_phone, owner_chat_id)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.Phone, r.Email, r.Address, r.MaxCapacity,
		lunchCap, dinnerCap, string(hours),
		string(closed), r.SMSEnabled, r.FallbackPhone, r.OwnerChatID,
	)
	if err != nil {
		return fmt.Errorf("insert restaurant: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

// ListRestaurantIDs returns every restaurant id, for batch jobs.
func (db *DB) ListRestaurantIDs(ctx context.Context) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM restaurants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list restaurant ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
