package notifications

import (
	"context"
	"time"
)

// Kind classifies a notification.
type Kind string

const (
	KindRentGenerated   Kind = "RENT_GENERATED"
	KindPaymentDue      Kind = "PAYMENT_DUE"
	KindPaymentOverdue  Kind = "PAYMENT_OVERDUE"
	KindPaymentReceived Kind = "PAYMENT_RECEIVED"
	KindLateFeeApplied  Kind = "LATE_FEE_APPLIED"
	KindGeneral         Kind = "GENERAL"
)

// Priority orders notifications for display.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Channel is a delivery channel.
type Channel string

const (
	ChannelInApp   Channel = "in_app"
	ChannelWebhook Channel = "webhook"
)

// Notification is a message addressed to one user.
type Notification struct {
	ID          string            `json:"id"`
	RecipientID string            `json:"recipient_id"`
	Kind        Kind              `json:"kind"`
	Priority    Priority          `json:"priority"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	RelatedID   string            `json:"related_id,omitempty"`
	Channels    []Channel         `json:"channels"`
	Meta        map[string]string `json:"meta,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Sink delivers notifications. Callers treat delivery as best effort.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f SinkFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}
