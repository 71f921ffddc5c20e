package eventing

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"rent-billing/internal/observability/metrics"
)

const defaultDispatchBatch = 50

// OutboxStore provides access to outbox records.
type OutboxStore interface {
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// OutboxWriter inserts outbox records inside the caller's transaction.
type OutboxWriter interface {
	InsertTx(ctx context.Context, tx *sql.Tx, env Envelope) (string, error)
}

// DLQStore records delivery failures.
type DLQStore interface {
	RecordFailure(ctx context.Context, env Envelope, err error) error
}

// OutboxRecord is a pending outbox entry.
type OutboxRecord struct {
	ID       string
	Envelope Envelope
}

// DispatchResult captures the outcome of a dispatch run.
type DispatchResult struct {
	Claimed int
	Sent    int
	Failed  int
	DLQ     int
}

// Dispatcher delivers pending outbox records to the in-process bus.
type Dispatcher struct {
	bus      Bus
	outbox   OutboxStore
	registry *Registry
	dlq      DLQStore
	logger   *zap.Logger
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(bus Bus, outbox OutboxStore, registry *Registry, dlq DLQStore, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{bus: bus, outbox: outbox, registry: registry, dlq: dlq, logger: logger}
}

// Dispatch claims up to limit due records and delivers them. Undecodable
// records and handler failures are marked failed and copied to the DLQ; the
// store hands failed records out again until their attempts run out.
func (d *Dispatcher) Dispatch(ctx context.Context, limit int) (result DispatchResult, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.ResultSuccess
		if err != nil || result.Failed > 0 {
			outcome = metrics.ResultError
		}
		metrics.ObserveOutboxDispatch(outcome, time.Since(start), result.Sent, result.Failed, result.DLQ)
	}()
	if d == nil || d.outbox == nil || d.bus == nil || d.registry == nil {
		return result, nil
	}
	if limit <= 0 {
		limit = defaultDispatchBatch
	}
	records, err := d.outbox.ListPending(ctx, limit)
	if err != nil {
		return result, err
	}
	result.Claimed = len(records)

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, record := range records {
		env := record.Envelope
		payload, decodeErr := d.registry.DecodePayload(env)
		deliverErr := decodeErr
		if deliverErr == nil {
			deliverErr = d.bus.Publish(WithEnvelope(ctx, env), payload)
		}
		if deliverErr != nil {
			d.logger.Warn("event delivery failed",
				zap.String("event_id", env.EventID),
				zap.String("event_type", env.EventType),
				zap.Error(deliverErr))
			keep(d.outbox.MarkFailed(ctx, record.ID))
			if d.dlq != nil {
				if err := d.dlq.RecordFailure(ctx, env, deliverErr); err == nil {
					result.DLQ++
				} else {
					keep(err)
				}
			}
			result.Failed++
			continue
		}
		if err := d.outbox.MarkSent(ctx, record.ID); err != nil {
			keep(err)
			result.Failed++
			continue
		}
		result.Sent++
	}
	return result, firstErr
}

// Run dispatches on every tick until ctx is done. It picks up records that
// another replica wrote or that an inline flush missed.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Dispatch(ctx, defaultDispatchBatch); err != nil {
				d.logger.Warn("outbox dispatch failed", zap.Error(err))
			}
		}
	}
}
