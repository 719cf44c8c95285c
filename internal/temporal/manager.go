package temporal

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Manager maps keys of one category (blocks, entities, limiters...) to
// temporary objects and reverts them when their tick comes.
//
// Contains and Get are safe from any goroutine. Everything else belongs to
// the goroutine that drives Tick.
type Manager[K comparable, V Temporary] struct {
	name       string
	revert     func(V) bool
	defaultTTL int
	tickLength time.Duration
	log        *zap.Logger
	metrics    *Metrics
	owner      ownerGuard
	wheel      *Wheel
	clearing   bool
	mu         sync.RWMutex
	entries    map[K]V
}

// NewManager creates a manager for one category. A nil revert uses V.Revert.
func NewManager[K comparable, V Temporary](name string, revert func(V) bool, opts ...Option) *Manager[K, V] {
	o := newOptions(opts...)
	if revert == nil {
		revert = func(v V) bool { return v.Revert() }
	}
	m := &Manager[K, V]{
		name:       name,
		revert:     revert,
		defaultTTL: o.DefaultDuration,
		tickLength: o.TickDuration,
		log:        o.Logger.With(zap.String("category", name)),
		metrics:    o.Metrics,
		entries:    make(map[K]V, 64),
	}
	m.owner.enabled = o.OwnerCheck
	m.wheel = NewWheel(o.StartTick, m.expire, WithWheelRetryDelay(o.RetryDelay))
	return m
}

func (m *Manager[K, V]) Name() string         { return m.name }
func (m *Manager[K, V]) DefaultDuration() int { return m.defaultTTL }
func (m *Manager[K, V]) CurrentTick() int64   { return m.wheel.Now() }

// Clearing reports whether RemoveAll is in progress. Temporary objects use it
// to revert fully instead of stepping back one state.
func (m *Manager[K, V]) Clearing() bool { return m.clearing }

// FromMillis converts a duration in milliseconds to ticks, rounding up.
// Non-positive input returns 0, which Add treats as the default duration.
func (m *Manager[K, V]) FromMillis(ms int64) int {
	if ms <= 0 {
		return 0
	}
	per := m.tickLength.Milliseconds()
	if per <= 0 {
		per = 1
	}
	ticks := (ms + per - 1) / per
	if ticks > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ticks)
}

// Len returns the number of registered entries.
func (m *Manager[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Contains reports whether key has an active entry.
func (m *Manager[K, V]) Contains(key K) bool {
	m.mu.RLock()
	_, ok := m.entries[key]
	m.mu.RUnlock()
	return ok
}

// Get returns the entry registered for key.
func (m *Manager[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	v, ok := m.entries[key]
	m.mu.RUnlock()
	return v, ok
}

// Add registers value under key for ticks ticks (non-positive = category
// default). It fails if key is already registered, value is already
// scheduled under another key, or the manager is clearing.
func (m *Manager[K, V]) Add(key K, value V, ticks int) bool {
	m.checkOwner("add")
	if m.clearing || value.TemporalNode().Scheduled() {
		return false
	}
	m.mu.Lock()
	if _, exists := m.entries[key]; exists {
		m.mu.Unlock()
		return false
	}
	m.entries[key] = value
	size := len(m.entries)
	m.mu.Unlock()

	n := value.TemporalNode()
	n.key = key
	n.expiration = m.deadline(ticks)
	m.wheel.Schedule(n, m.wheel.Now())
	m.metrics.setActive(m.name, size)
	return true
}

// Reschedule moves the deadline of key to ticks from now.
func (m *Manager[K, V]) Reschedule(key K, ticks int) bool {
	m.checkOwner("reschedule")
	v, ok := m.Get(key)
	if !ok {
		return false
	}
	n := v.TemporalNode()
	n.expiration = m.deadline(ticks)
	m.wheel.Reschedule(n, m.wheel.Now())
	return true
}

// Remove unregisters key without reverting it. Reverts call this on
// themselves; it is equally valid as a plain cancellation.
func (m *Manager[K, V]) Remove(key K) bool {
	m.checkOwner("remove")
	m.mu.Lock()
	v, ok := m.entries[key]
	if ok {
		delete(m.entries, key)
	}
	size := len(m.entries)
	m.mu.Unlock()
	if !ok {
		return false
	}
	m.wheel.Deschedule(v.TemporalNode())
	m.metrics.setActive(m.name, size)
	return true
}

// RemoveAll forcibly reverts every entry once, then forgets them all. Failing
// reverts do not stop the rest; their panics are returned joined.
func (m *Manager[K, V]) RemoveAll() error {
	m.checkOwner("remove all")
	m.clearing = true
	defer func() { m.clearing = false }()

	m.mu.RLock()
	keys := make([]K, 0, len(m.entries))
	values := make([]V, 0, len(m.entries))
	for k, v := range m.entries {
		keys = append(keys, k)
		values = append(values, v)
	}
	m.mu.RUnlock()

	var errs error
	reverted := 0
	for i, v := range values {
		ok, err := m.safeRevert(keys[i], v)
		if err != nil {
			errs = multierr.Append(errs, err)
			m.metrics.revert(m.name, outcomePanicked)
			continue
		}
		if ok {
			reverted++
		}
		m.metrics.revert(m.name, outcomeForced)
	}

	m.mu.Lock()
	clear(m.entries)
	m.mu.Unlock()
	m.wheel.Clear()
	m.metrics.setActive(m.name, 0)

	m.log.Info("temporal category cleared",
		zap.Int("entries", len(values)),
		zap.Int("reverted", reverted),
		zap.Int("failed", len(multierr.Errors(errs))),
	)
	return errs
}

// Tick advances the category to now. It must be called once per game tick
// with a non-decreasing now.
func (m *Manager[K, V]) Tick(now int64) error {
	m.owner.claim()
	m.checkOwner("tick")

	done := m.metrics.tickTimer(m.name)
	err := m.wheel.Advance(now)
	done()

	for _, e := range multierr.Errors(err) {
		if errors.Is(e, ErrRevertPanic) {
			m.metrics.revert(m.name, outcomePanicked)
		}
		m.log.Error("temporal revert failed", zap.Int64("tick", now), zap.Error(e))
	}
	m.metrics.setActive(m.name, m.Len())
	return err
}

// expire is the wheel callback. It returns true when the node must leave the
// wheel.
func (m *Manager[K, V]) expire(n *Node, now int64) bool {
	key, ok := n.key.(K)
	if !ok {
		return true
	}
	v, ok := m.Get(key)
	if !ok || v.TemporalNode() != n {
		return true // stale: removed or replaced since it was scheduled
	}
	if m.revert(v) {
		m.removeNode(key, n)
		m.metrics.revert(m.name, outcomeReverted)
		return true
	}

	// Declined. A revert that unregistered itself is finished regardless.
	if cur, ok := m.Get(key); !ok || cur.TemporalNode() != n {
		return true
	}
	m.metrics.revert(m.name, outcomeDeclined)
	if r, ok := any(v).(Repeater); ok {
		if d := r.Repeat(); d > 0 {
			n.expiration = saturatingAdd(now, int64(d))
		}
	}
	return false
}

// removeNode deletes key only while it still maps to n.
func (m *Manager[K, V]) removeNode(key K, n *Node) {
	m.mu.Lock()
	if v, ok := m.entries[key]; ok && v.TemporalNode() == n {
		delete(m.entries, key)
	}
	m.mu.Unlock()
}

func (m *Manager[K, V]) safeRevert(key K, v V) (ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			m.log.Error("temporal revert panic recovered",
				zap.Any("key", key),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("%w: key %v: %v", ErrRevertPanic, key, rec)
		}
	}()
	return m.revert(v), nil
}

func (m *Manager[K, V]) deadline(ticks int) int64 {
	if ticks <= 0 {
		ticks = m.defaultTTL
	}
	return saturatingAdd(m.wheel.Now(), int64(ticks))
}

func (m *Manager[K, V]) checkOwner(op string) {
	if m.owner.allowed() {
		return
	}
	m.metrics.ownerViolation(m.name)
	m.log.Warn("temporal call outside the ticking goroutine", zap.String("op", op))
}

func saturatingAdd(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
