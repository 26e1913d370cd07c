package database

import (
	"context"
	"database/sql"
	"fmt"

	"resavox/internal/models"
)

// GetCallByExternalID resolves a call by the voice platform's id.
// Returns ErrNotFound when the id is unknown; reservation linking is
// best-effort and callers proceed without a link on miss.
func (db *DB) GetCallByExternalID(ctx context.Context, externalID string) (*models.Call, error) {
	var (
		c       models.Call
		phone   sql.NullString
		status  sql.NullString
		text    sql.NullString
		endedAt sql.NullTime
	)
	err := db.QueryRowContext(ctx, `
        SELECT id, external_id, phone, status, transcript, started_at, ended_at
        FROM calls WHERE external_id = ?`, externalID,
	).Scan(&c.ID, &c.ExternalID, &phone, &status, &text, &c.StartedAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get call %s: %w", externalID, err)
	}
	c.Phone = phone.String
	c.Status = status.String
	c.Transcript = text.String
	if endedAt.Valid {
		c.EndedAt = &endedAt.Time
	}
	return &c, nil
}

// UpsertCall records a call session keyed by external id. Repeated
// webhooks for the same call refresh phone and status.
func (db *DB) UpsertCall(ctx context.Context, c *models.Call) error {
	// LastInsertId is unreliable on the conflict-update path (it keeps
	// the connection's previous rowid), so the row's id is read back.
	err := db.QueryRowContext(ctx, `
        INSERT INTO calls (external_id, phone, status)
        VALUES (?, ?, ?)
        ON CONFLICT(external_id) DO UPDATE SET
            phone = excluded.phone,
            status = excluded.status
        RETURNING id`,
		c.ExternalID, c.Phone, c.Status,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("upsert call %s: %w", c.ExternalID, err)
	}
	return nil
}
