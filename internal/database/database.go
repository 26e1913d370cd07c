package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a lookup matches no row. Callers must
// treat it as a designed outcome, not a failure.
var ErrNotFound = errors.New("not found")

// DB wraps sql.DB for the reservation backend.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Restaurants. opening_hours and closed_dates are JSON blobs
		// maintained by the dashboard; they are decoded into typed
		// structures once, at scan time.
		`CREATE TABLE IF NOT EXISTS restaurants (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            phone TEXT NOT NULL,
            email TEXT,
            address TEXT,
            max_capacity INTEGER NOT NULL DEFAULT 50,
            max_capacity_lunch INTEGER,
            max_capacity_dinner INTEGER,
            opening_hours TEXT NOT NULL DEFAULT '{}',
            closed_dates TEXT NOT NULL DEFAULT '[]',
            sms_enabled BOOLEAN NOT NULL DEFAULT 0,
            fallback_phone TEXT,
            owner_chat_id INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		// Calls (phone sessions recorded by the webhook layer)
		`CREATE TABLE IF NOT EXISTS calls (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            external_id TEXT UNIQUE NOT NULL,
            phone TEXT,
            status TEXT,
            transcript TEXT,
            started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            ended_at DATETIME
        )`,

		// Reservations
		`CREATE TABLE IF NOT EXISTS reservations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            restaurant_id INTEGER NOT NULL,
            call_id INTEGER,
            customer_name TEXT NOT NULL,
            customer_phone TEXT NOT NULL,
            customer_email TEXT,
            reservation_date TEXT NOT NULL,
            reservation_time TEXT NOT NULL,
            number_of_guests INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            source TEXT NOT NULL DEFAULT 'phone',
            special_requests TEXT,
            confidence_score REAL NOT NULL DEFAULT 1.0,
            needs_confirmation BOOLEAN NOT NULL DEFAULT 0,
            cancellation_token TEXT UNIQUE,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY (restaurant_id) REFERENCES restaurants(id),
            FOREIGN KEY (call_id) REFERENCES calls(id)
        )`,

		// Waitlist
		`CREATE TABLE IF NOT EXISTS waitlist_entries (
            id TEXT PRIMARY KEY,
            restaurant_id INTEGER NOT NULL,
            customer_name TEXT NOT NULL,
            customer_phone TEXT NOT NULL,
            desired_date TEXT NOT NULL,
            desired_time TEXT,
            desired_service TEXT NOT NULL DEFAULT 'any',
            party_size INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'waiting',
            reservation_id INTEGER,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY (restaurant_id) REFERENCES restaurants(id),
            FOREIGN KEY (reservation_id) REFERENCES reservations(id)
        )`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_reservations_lookup ON reservations(restaurant_id, reservation_date, status)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_phone ON reservations(restaurant_id, customer_phone, reservation_date)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_token ON reservations(cancellation_token)`,
		`CREATE INDEX IF NOT EXISTS idx_waitlist_restaurant ON waitlist_entries(restaurant_id, desired_date, status)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_external ON calls(external_id)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
