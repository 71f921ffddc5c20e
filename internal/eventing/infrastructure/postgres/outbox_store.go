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

const (
	defaultOutboxTable = "event_outbox"
	defaultMaxAttempts = 5
)

// OutboxStore is the Postgres outbox.
type OutboxStore struct {
	db          *sql.DB
	table       string
	maxAttempts int
}

// OutboxOption configures the outbox store.
type OutboxOption func(*OutboxStore)

// WithMaxAttempts caps how often a failed record is handed out again.
func WithMaxAttempts(n int) OutboxOption {
	return func(s *OutboxStore) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewOutboxStore constructs an outbox store.
func NewOutboxStore(db *sql.DB, opts ...OutboxOption) *OutboxStore {
	store := &OutboxStore{db: db, table: defaultOutboxTable, maxAttempts: defaultMaxAttempts}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// InsertTx writes env as a pending record inside tx.
func (s *OutboxStore) InsertTx(ctx context.Context, tx *sql.Tx, env eventing.Envelope) (string, error) {
	if s == nil {
		return "", errors.New("outbox store: nil store")
	}
	if tx == nil {
		return "", errors.New("outbox store: nil tx")
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	outboxID := eventing.NewEventID()
	query := fmt.Sprintf(`
INSERT INTO %s (id, event_id, event_type, payload, status, attempts, created_at)
VALUES ($1, $2, $3, $4, 'pending', 0, $5)`, s.table)
	if _, err := tx.ExecContext(ctx, query, outboxID, env.EventID, env.EventType, payload, time.Now().UTC()); err != nil {
		return "", err
	}
	return outboxID, nil
}

// ListPending returns the oldest records still due for delivery: pending
// ones and failed ones that have not used up their attempts.
func (s *OutboxStore) ListPending(ctx context.Context, limit int) ([]eventing.OutboxRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("outbox store: nil db")
	}
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
SELECT id, payload
FROM %s
WHERE status = 'pending' OR (status = 'failed' AND attempts < $1)
ORDER BY created_at ASC
LIMIT $2`, s.table)
	rows, err := s.db.QueryContext(ctx, query, s.maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []eventing.OutboxRecord
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var env eventing.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return nil, fmt.Errorf("outbox store: record %s: %w", id, err)
		}
		result = append(result, eventing.OutboxRecord{ID: id, Envelope: env})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkSent marks a record delivered.
func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return errors.New("outbox store: nil db")
	}
	query := fmt.Sprintf(`UPDATE %s SET status = 'sent', sent_at = $1 WHERE id = $2`, s.table)
	_, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	return err
}

// MarkFailed marks a record failed and counts the attempt.
func (s *OutboxStore) MarkFailed(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return errors.New("outbox store: nil db")
	}
	query := fmt.Sprintf(`UPDATE %s SET status = 'failed', attempts = attempts + 1 WHERE id = $1`, s.table)
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}
