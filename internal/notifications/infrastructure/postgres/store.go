package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rent-billing/internal/notifications"
	"rent-billing/internal/observability/metrics"
)

const defaultNotificationsTable = "notifications"

// Record is a stored in-app notification.
type Record struct {
	notifications.Notification
	ReadAt *time.Time `json:"read_at,omitempty"`
}

// Store persists in-app notifications.
type Store struct {
	db    *sql.DB
	table string
}

// Option configures the store.
type Option func(*Store)

// WithTable overrides the table name.
func WithTable(table string) Option {
	return func(s *Store) {
		if table != "" {
			s.table = table
		}
	}
}

// NewStore constructs a store.
func NewStore(db *sql.DB, opts ...Option) *Store {
	store := &Store{db: db, table: defaultNotificationsTable}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Notify inserts the notification for in-app display.
func (s *Store) Notify(ctx context.Context, n notifications.Notification) (err error) {
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.IncNotification(string(notifications.ChannelInApp), result)
	}()
	if s == nil || s.db == nil {
		return errors.New("notification store: nil db")
	}
	if n.RecipientID == "" {
		return errors.New("notification store: empty recipient")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(n.Meta)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, recipient_id, kind, priority, title, message, related_id, channels, meta, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)`, s.table)
	_, err = s.db.ExecContext(ctx, query,
		n.ID, n.RecipientID, string(n.Kind), string(n.Priority), n.Title, n.Message,
		nullString(n.RelatedID), joinChannels(n.Channels), meta, n.CreatedAt)
	return err
}

// ListForRecipient returns a user's newest notifications.
func (s *Store) ListForRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("notification store: nil db")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf(`
SELECT id, recipient_id, kind, priority, title, message, related_id, channels, meta, created_at, read_at
FROM %s
WHERE recipient_id = $1 AND ($2 = false OR read_at IS NULL)
ORDER BY created_at DESC
LIMIT $3`, s.table)
	rows, err := s.db.QueryContext(ctx, query, recipientID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		var rec Record
		var kind, priority, channels string
		var related sql.NullString
		var meta []byte
		var readAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.RecipientID, &kind, &priority, &rec.Title, &rec.Message,
			&related, &channels, &meta, &rec.CreatedAt, &readAt); err != nil {
			return nil, err
		}
		rec.Kind = notifications.Kind(kind)
		rec.Priority = notifications.Priority(priority)
		rec.RelatedID = related.String
		rec.Channels = splitChannels(channels)
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &rec.Meta)
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		if readAt.Valid {
			t := readAt.Time.UTC()
			rec.ReadAt = &t
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkRead marks a notification read. It reports whether a row was updated.
func (s *Store) MarkRead(ctx context.Context, recipientID, id string) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("notification store: nil db")
	}
	query := fmt.Sprintf(`
UPDATE %s
SET read_at = $1
WHERE id = $2 AND recipient_id = $3 AND read_at IS NULL`, s.table)
	res, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id, recipientID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func joinChannels(channels []notifications.Channel) string {
	parts := make([]string, 0, len(channels))
	for _, ch := range channels {
		parts = append(parts, string(ch))
	}
	return strings.Join(parts, ",")
}

func splitChannels(value string) []notifications.Channel {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]notifications.Channel, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, notifications.Channel(part))
		}
	}
	return result
}
