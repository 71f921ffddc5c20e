package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rent-billing/internal/eventing"
)

const defaultDLQTable = "dead_letter_events"

// DLQStore keeps envelopes that could not be delivered.
type DLQStore struct {
	db    *sql.DB
	table string
}

// NewDLQStore constructs a DLQ store.
func NewDLQStore(db *sql.DB) *DLQStore {
	return &DLQStore{db: db, table: defaultDLQTable}
}

// RecordFailure inserts a DLQ record or bumps its attempt count.
func (s *DLQStore) RecordFailure(ctx context.Context, env eventing.Envelope, cause error) error {
	if s == nil || s.db == nil {
		return errors.New("dlq store: nil db")
	}
	if env.EventID == "" {
		return errors.New("dlq store: empty event id")
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	query := fmt.Sprintf(`
INSERT INTO %[1]s (event_id, event_type, payload, error, first_seen_at, last_seen_at, attempts)
VALUES ($1, $2, $3, $4, $5, $5, 1)
ON CONFLICT (event_id) DO UPDATE SET
	error = EXCLUDED.error,
	last_seen_at = EXCLUDED.last_seen_at,
	attempts = %[1]s.attempts + 1`, s.table)
	_, err = s.db.ExecContext(ctx, query, env.EventID, env.EventType, payload, message, time.Now().UTC())
	return err
}
