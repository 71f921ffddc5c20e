package eventing

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps an event payload with delivery metadata.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id"`
	AggregateID   string          `json:"aggregate_id"`
	ActorID       string          `json:"actor_id,omitempty"`
	SchemaVersion int             `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// Meta provides envelope overrides.
type Meta struct {
	EventID       string
	CorrelationID string
	ActorID       string
}

// BuildEnvelope wraps event. Missing ids are generated and the aggregate id
// and occurrence time are read from the event's UnitID/AggregateID and
// OccurredAt fields when present.
func BuildEnvelope(event any, meta Meta) (Envelope, error) {
	if event == nil {
		return Envelope{}, ErrNilEvent
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, err
	}

	occurredAt := timeField(event, "OccurredAt")
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	eventID := meta.EventID
	if eventID == "" {
		eventID = NewEventID()
	}
	correlationID := meta.CorrelationID
	if correlationID == "" {
		correlationID = eventID
	}
	return Envelope{
		EventID:       eventID,
		EventType:     EventType(event),
		OccurredAt:    occurredAt.UTC(),
		CorrelationID: correlationID,
		AggregateID:   stringField(event, "AggregateID", "UnitID"),
		ActorID:       meta.ActorID,
		SchemaVersion: 1,
		Payload:       payload,
	}, nil
}

// NewEventID generates an event identifier.
func NewEventID() string {
	return uuid.NewString()
}

func structValue(event any) (reflect.Value, bool) {
	value := reflect.ValueOf(event)
	for value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return reflect.Value{}, false
		}
		value = value.Elem()
	}
	return value, value.Kind() == reflect.Struct
}

func stringField(event any, names ...string) string {
	value, ok := structValue(event)
	if !ok {
		return ""
	}
	for _, name := range names {
		field := value.FieldByName(name)
		if field.IsValid() && field.Kind() == reflect.String {
			return field.String()
		}
	}
	return ""
}

func timeField(event any, name string) time.Time {
	value, ok := structValue(event)
	if !ok {
		return time.Time{}
	}
	field := value.FieldByName(name)
	if !field.IsValid() || !field.CanInterface() {
		return time.Time{}
	}
	if t, ok := field.Interface().(time.Time); ok {
		return t
	}
	return time.Time{}
}

type contextKey string

const (
	contextKeyEnvelope contextKey = "eventing.envelope"
	contextKeyCorr     contextKey = "eventing.correlation_id"
	contextKeyActor    contextKey = "eventing.actor_id"
)

// WithEnvelope attaches the envelope being delivered to ctx.
func WithEnvelope(ctx context.Context, env Envelope) context.Context {
	return context.WithValue(ctx, contextKeyEnvelope, env)
}

// EnvelopeFromContext returns the envelope being delivered, if any.
func EnvelopeFromContext(ctx context.Context) (Envelope, bool) {
	env, ok := ctx.Value(contextKeyEnvelope).(Envelope)
	return env, ok
}

// WithCorrelationID sets the correlation id for events published under ctx.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, contextKeyCorr, correlationID)
}

// WithActorID records who caused events published under ctx.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyActor, actorID)
}

// MetaFromContext builds envelope metadata from ctx.
func MetaFromContext(ctx context.Context) Meta {
	meta := Meta{}
	if corr, ok := ctx.Value(contextKeyCorr).(string); ok {
		meta.CorrelationID = corr
	}
	if actor, ok := ctx.Value(contextKeyActor).(string); ok {
		meta.ActorID = actor
	}
	return meta
}
