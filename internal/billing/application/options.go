package application

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	billing "rent-billing/internal/billing/domain"
	"rent-billing/internal/notifications"
)

const defaultWorkers = 4

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type options struct {
	clock       Clock
	location    *time.Location
	logger      *zap.Logger
	notifier    notifications.Sink
	workers     int
	defaultRate decimal.Decimal
}

// Option configures billing services.
type Option func(*options)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLocation sets the zone that defines "today" and period boundaries.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNotifier sets the notification sink. Delivery is best-effort.
func WithNotifier(sink notifications.Sink) Option {
	return func(o *options) {
		o.notifier = sink
	}
}

// WithWorkers bounds per-item parallelism in sweeps.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithDefaultElectricityRate sets the rate used for units without their own.
func WithDefaultElectricityRate(rate decimal.Decimal) Option {
	return func(o *options) {
		if rate.IsPositive() {
			o.defaultRate = rate
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		clock:       SystemClock{},
		location:    time.UTC,
		logger:      zap.NewNop(),
		workers:     defaultWorkers,
		defaultRate: billing.DefaultElectricityRate,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func (o options) now() time.Time {
	return o.clock.Now().In(o.location)
}

func (o options) today() time.Time {
	return billing.DateOf(o.clock.Now(), o.location)
}
