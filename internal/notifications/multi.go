package notifications

import (
	"context"
	"errors"
	"slices"
)

// MultiSink fans a notification out to every sink whose channel the
// notification requests. A sink registered without a channel always receives it.
type MultiSink struct {
	routes []route
}

type route struct {
	channel Channel
	sink    Sink
}

// NewMultiSink constructs an empty MultiSink.
func NewMultiSink() *MultiSink {
	return &MultiSink{}
}

// Add registers a sink for a channel.
func (m *MultiSink) Add(channel Channel, sink Sink) *MultiSink {
	if sink != nil {
		m.routes = append(m.routes, route{channel: channel, sink: sink})
	}
	return m
}

// Len returns the number of registered sinks.
func (m *MultiSink) Len() int {
	if m == nil {
		return 0
	}
	return len(m.routes)
}

// Notify delivers to all matching sinks and joins their errors.
func (m *MultiSink) Notify(ctx context.Context, n Notification) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, r := range m.routes {
		if r.channel != "" && len(n.Channels) > 0 && !slices.Contains(n.Channels, r.channel) {
			continue
		}
		if err := r.sink.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
