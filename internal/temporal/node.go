package temporal

// Temporary is implemented by every object a Manager can schedule. Types get
// the scheduling half for free by embedding Node.
type Temporary interface {
	// Revert restores whatever the object changed. It must be idempotent and
	// report true only when this call actually reverted the object.
	Revert() bool
	TemporalNode() *Node
}

// Repeater is optionally implemented by Temporary values whose Revert can
// decline. Repeat returns the ticks to wait before the next attempt (0 = next tick).
type Repeater interface {
	Repeat() int
}

// Node is the intrusive link state of one schedulable object. The zero value
// is an unscheduled node.
type Node struct {
	prev       *Node
	next       *Node
	expiration int64
	key        any
}

// TemporalNode lets embedding types satisfy Temporary.
func (n *Node) TemporalNode() *Node { return n }

// Expiration returns the absolute tick the node is due at.
func (n *Node) Expiration() int64 { return n.expiration }

// SetExpiration updates the deadline. The node must be rescheduled for the
// change to move it between buckets.
func (n *Node) SetExpiration(tick int64) { n.expiration = tick }

// Scheduled reports whether the node currently sits in a bucket.
func (n *Node) Scheduled() bool {
	return n.next != nil && n.next != n
}

// detach turns the node back into a single-element ring.
func (n *Node) detach() {
	n.prev = n
	n.next = n
}

// link inserts node right before sentinel, i.e. at the tail of its bucket.
func link(sentinel, node *Node) {
	node.prev = sentinel.prev
	node.next = sentinel
	sentinel.prev.next = node
	sentinel.prev = node
}

// unlink removes node from its ring. The node's own pointers are left as-is.
func unlink(node *Node) {
	if node.next == nil || node.next == node {
		return
	}
	node.prev.next = node.next
	node.next.prev = node.prev
}

// spliceAll moves every node of src to the tail of dst and leaves src empty.
func spliceAll(dst, src *Node) {
	if src.next == src {
		return
	}
	first, last := src.next, src.prev
	first.prev = dst.prev
	dst.prev.next = first
	last.next = dst
	dst.prev = last
	src.detach()
}
