package temporal

import (
	"time"

	"go.uber.org/zap"
)

// Defaults used by NewManager: 600 ticks is 30 seconds at 20 ticks per second.
const (
	DefaultDuration     = 600
	DefaultTickDuration = 50 * time.Millisecond
)

// Options holds Manager settings.
type Options struct {
	Logger          *zap.Logger
	Metrics         *Metrics
	DefaultDuration int
	TickDuration    time.Duration
	RetryDelay      int64
	StartTick       int64
	OwnerCheck      bool
}

// Option is for setting options.
type Option func(*Options)

func newOptions(opts ...Option) Options {
	o := Options{
		Logger:          zap.NewNop(),
		DefaultDuration: DefaultDuration,
		TickDuration:    DefaultTickDuration,
		RetryDelay:      1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(log *zap.Logger) Option {
	return func(o *Options) {
		if log != nil {
			o.Logger = log
		}
	}
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}

// WithDefaultDuration sets the ticks used when Add receives a non-positive
// duration. Must be greater than 0, otherwise ignored.
func WithDefaultDuration(ticks int) Option {
	return func(o *Options) {
		if ticks > 0 {
			o.DefaultDuration = ticks
		}
	}
}

// WithTickDuration sets the length of one tick for FromMillis.
// Must be greater than 0, otherwise ignored.
func WithTickDuration(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.TickDuration = d
		}
	}
}

// WithRetryDelay sets how long a node waits after its revert panicked.
func WithRetryDelay(ticks int64) Option {
	return func(o *Options) {
		if ticks > 0 {
			o.RetryDelay = ticks
		}
	}
}

// WithStartTick starts the manager clock somewhere other than 0.
func WithStartTick(tick int64) Option {
	return func(o *Options) {
		o.StartTick = tick
	}
}

// WithOwnerCheck enables warnings for structural calls made from a goroutine
// other than the one that ticks the manager.
func WithOwnerCheck(enabled bool) Option {
	return func(o *Options) {
		o.OwnerCheck = enabled
	}
}
