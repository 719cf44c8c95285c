package temporal

import (
	"fmt"

	"go.uber.org/multierr"
)

// Tier layout. Tier t holds deltas below 1<<tierShift[t+1] in buckets that are
// 1<<tierShift[t] ticks wide; the last tier is a single overflow bucket that
// is cascaded every 1<<18 ticks (~3.6h at 20 ticks per second).
const numTiers = 5

var (
	tierBuckets = [numTiers]int{64, 64, 32, 4, 1}
	tierShift   = [numTiers + 1]uint{0, 6, 12, 16, 18, 18}
)

// ExpireFunc is invoked for every due node. Returning true drops the node from
// the wheel; false re-queues it.
type ExpireFunc func(n *Node, now int64) bool

// WheelOption configures a Wheel.
type WheelOption func(*Wheel)

// WithWheelRetryDelay sets how many ticks a node waits after its callback
// panicked. Values below 1 are ignored.
func WithWheelRetryDelay(ticks int64) WheelOption {
	return func(w *Wheel) {
		if ticks > 0 {
			w.retryDelay = ticks
		}
	}
}

// Wheel is a hierarchical timing wheel driven by a discrete tick counter.
// It is owned by a single goroutine and performs no locking.
type Wheel struct {
	tiers      [numTiers][]Node // bucket sentinels, one per bucket
	now        int64
	expire     ExpireFunc
	retryDelay int64
	advancing  bool
	drain      Node // holds the bucket currently being expired
}

// NewWheel creates a wheel whose clock starts at start.
func NewWheel(start int64, expire ExpireFunc, opts ...WheelOption) *Wheel {
	w := &Wheel{
		now:        start,
		expire:     expire,
		retryDelay: 1,
	}
	for t := range w.tiers {
		w.tiers[t] = make([]Node, tierBuckets[t])
		for i := range w.tiers[t] {
			w.tiers[t][i].detach()
		}
	}
	w.drain.detach()
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Now returns the tick of the last Advance.
func (w *Wheel) Now() int64 { return w.now }

// Schedule links n into the bucket matching n.Expiration() relative to now.
// A node that is already linked is moved.
func (w *Wheel) Schedule(n *Node, now int64) {
	if n.Scheduled() {
		unlink(n)
	}
	link(w.findBucket(n.expiration, now), n)
}

// Reschedule moves a linked node to the bucket matching its current
// expiration. Unlinked nodes are left alone.
func (w *Wheel) Reschedule(n *Node, now int64) {
	if !n.Scheduled() {
		return
	}
	unlink(n)
	link(w.findBucket(n.expiration, now), n)
}

// Deschedule removes n from the wheel.
func (w *Wheel) Deschedule(n *Node) {
	unlink(n)
	n.detach()
}

// Clear unlinks every node without expiring it.
func (w *Wheel) Clear() {
	for t := range w.tiers {
		for i := range w.tiers[t] {
			sentinel := &w.tiers[t][i]
			for n := sentinel.next; n != sentinel; {
				next := n.next
				n.detach()
				n = next
			}
			sentinel.detach()
		}
	}
}

// findBucket returns the sentinel of the bucket that brackets expiration.
// Overdue nodes land in the current tier-0 slot, which the next Advance drains.
func (w *Wheel) findBucket(expiration, now int64) *Node {
	if expiration < now {
		expiration = now
	}
	delta := expiration - now
	last := numTiers - 1
	for t := 0; t < last; t++ {
		if delta < int64(1)<<tierShift[t+1] {
			ticks := expiration >> tierShift[t]
			return &w.tiers[t][ticks&int64(tierBuckets[t]-1)]
		}
	}
	return &w.tiers[last][0]
}

// Advance moves the wheel to now, expiring due nodes and cascading the rest
// into finer tiers. Each tier's cursor moves only when the tier below wraps.
// Panics raised by the expire callback are recovered per node; the node is
// retried later and the panics are returned once every bucket is processed.
func (w *Wheel) Advance(now int64) error {
	if w.advancing {
		return ErrReentrantAdvance
	}
	if now <= w.now {
		return nil
	}
	w.advancing = true
	defer func() { w.advancing = false }()

	previous := w.now
	w.now = now

	var errs error
	for t := 0; t < numTiers; t++ {
		prevTicks := previous >> tierShift[t]
		delta := (now >> tierShift[t]) - prevTicks
		if delta <= 0 {
			break
		}
		errs = multierr.Append(errs, w.expireTier(t, prevTicks, delta))
	}
	return errs
}

func (w *Wheel) expireTier(t int, prevTicks, delta int64) error {
	tier := w.tiers[t]
	mask := int64(len(tier) - 1)
	steps := int64(len(tier))
	if delta+1 < steps {
		steps = delta + 1
	}

	var errs error
	for i := prevTicks; i < prevTicks+steps; i++ {
		errs = multierr.Append(errs, w.drainBucket(&tier[i&mask]))
	}
	return errs
}

// drainBucket moves the bucket onto the drain ring and processes it node by
// node. Callbacks may unlink or reschedule any node, including ones still on
// the drain ring; if the goroutine unwinds, whatever is left is re-queued.
func (w *Wheel) drainBucket(sentinel *Node) error {
	pending := &w.drain
	spliceAll(pending, sentinel)

	var firing *Node
	defer func() {
		if firing != nil && !firing.Scheduled() {
			firing.expiration = w.now + w.retryDelay
			link(w.findBucket(firing.expiration, w.now), firing)
		}
		w.requeue(pending)
	}()

	var errs error
	for pending.next != pending {
		n := pending.next
		unlink(n)
		n.detach()

		if n.expiration > w.now {
			link(w.findBucket(n.expiration, w.now), n)
			continue
		}

		firing = n
		done, err := w.fire(n)
		firing = nil
		if err != nil {
			errs = multierr.Append(errs, err)
			n.expiration = w.now + w.retryDelay
			w.Schedule(n, w.now)
			continue
		}
		if done || n.Scheduled() {
			continue
		}
		if n.expiration <= w.now {
			n.expiration = w.now + 1
		}
		link(w.findBucket(n.expiration, w.now), n)
	}
	return errs
}

func (w *Wheel) requeue(pending *Node) {
	for pending.next != pending {
		n := pending.next
		unlink(n)
		n.detach()
		link(w.findBucket(n.expiration, w.now), n)
	}
}

func (w *Wheel) fire(n *Node) (done bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: key %v: %v", ErrRevertPanic, n.key, rec)
		}
	}()
	return w.expire(n, w.now), nil
}
