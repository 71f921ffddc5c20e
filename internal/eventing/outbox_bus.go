package eventing

import (
	"context"
	"database/sql"
	"errors"
)

// Publisher writes events to the outbox within a transaction and flushes
// them to subscribers after commit.
type Publisher struct {
	outbox   OutboxWriter
	dispatch *Dispatcher
}

// NewPublisher constructs a publisher.
func NewPublisher(outbox OutboxWriter, dispatch *Dispatcher) *Publisher {
	return &Publisher{outbox: outbox, dispatch: dispatch}
}

// PublishTx records event in the outbox as part of tx.
func (p *Publisher) PublishTx(ctx context.Context, tx *sql.Tx, event any) (Envelope, error) {
	if p == nil || p.outbox == nil {
		return Envelope{}, errors.New("eventing: nil outbox")
	}
	if tx == nil {
		return Envelope{}, errors.New("eventing: nil tx")
	}
	env, err := BuildEnvelope(event, MetaFromContext(ctx))
	if err != nil {
		return Envelope{}, err
	}
	if _, err := p.outbox.InsertTx(ctx, tx, env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Flush delivers pending records now. Failures stay in the outbox for the
// background dispatcher.
func (p *Publisher) Flush(ctx context.Context) error {
	if p == nil || p.dispatch == nil {
		return nil
	}
	_, err := p.dispatch.Dispatch(ctx, defaultDispatchBatch)
	return err
}
