package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rent-billing/internal/notifications"
)

const notifyTimeout = 10 * time.Second

func (o options) notify(ctx context.Context, n notifications.Notification) {
	if o.notifier == nil || n.RecipientID == "" {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = o.clock.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := o.notifier.Notify(ctx, n); err != nil {
		o.logger.Warn("notification failed",
			zap.String("kind", string(n.Kind)),
			zap.String("recipient_id", n.RecipientID),
			zap.String("related_id", n.RelatedID),
			zap.Error(err),
		)
	}
}
