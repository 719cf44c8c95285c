package world

import (
	"time"

	"github.com/tempworld/server/internal/component"
	"github.com/tempworld/server/internal/core/event"
	"github.com/tempworld/server/internal/temporal"
)

// BlockOptions describes one temporary block change.
type BlockOptions struct {
	Duration time.Duration // 0 = category default
	Bendable bool          // abilities may reshape the block
	Weak     bool          // the next change replaces this layer instead of stacking
	Source   string        // who caused the change
}

// blockSnapshot is the state a block had before a layer was applied.
type blockSnapshot struct {
	material   string
	bendable   bool
	weak       bool
	source     string
	expiration int64
}

// TempBlock is a stack of temporary states on one block. The first snapshot
// holds the original state; each later one is restored when its layer
// expires, until the original is back.
type TempBlock struct {
	temporal.Node

	owner     *Temporal
	pos       component.Pos
	snapshots []*blockSnapshot
	index     *blockSnapshot
	repeat    int
	reverted  bool
}

// PlaceBlock sets pos to material for opts.Duration. Placing the material the
// block originally had reverts the whole stack instead.
func (t *Temporal) PlaceBlock(pos component.Pos, material string, opts BlockOptions) (*TempBlock, bool) {
	if t.state.BlockAt(pos) == material {
		return nil, false
	}
	ticks := t.resolveTicks(t.Blocks, CategoryBlock, material, opts.Duration)

	if tb, ok := t.Blocks.Get(pos); ok {
		if len(tb.snapshots) > 0 && tb.snapshots[0].material == material {
			tb.revertFully(false)
		}
		if tb.reverted || len(tb.snapshots) == 0 {
			t.Blocks.Remove(pos)
			return nil, false
		}
		tb.addState(material, ticks, opts)
		t.Blocks.Reschedule(pos, ticks)
		return tb, true
	}

	tb := &TempBlock{owner: t, pos: pos}
	if !t.Blocks.Add(pos, tb, ticks) {
		return nil, false
	}
	tb.addState(material, ticks, opts)
	return tb, true
}

// IsBendable reports whether abilities may reshape pos. Blocks without a
// temporary state are always bendable.
func (t *Temporal) IsBendable(pos component.Pos) bool {
	if tb, ok := t.Blocks.Get(pos); ok && tb.index != nil {
		return tb.index.bendable
	}
	return true
}

// LastValidType returns the material pos had before a weak layer covered it.
func (t *Temporal) LastValidType(pos component.Pos) string {
	if tb, ok := t.Blocks.Get(pos); ok && tb.index != nil && tb.index.weak {
		return tb.index.material
	}
	return t.state.BlockAt(pos)
}

func (b *TempBlock) Pos() component.Pos { return b.pos }

// Layers returns the number of stored snapshots, the original included.
func (b *TempBlock) Layers() int { return len(b.snapshots) }

// Source returns who applied the current layer.
func (b *TempBlock) Source() string {
	if b.index == nil {
		return ""
	}
	return b.index.source
}

func (b *TempBlock) addState(material string, ticks int, opts BlockOptions) {
	b.cleanStates()
	if b.index == nil || !b.index.weak {
		s := &blockSnapshot{
			material:   b.owner.state.BlockAt(b.pos),
			bendable:   opts.Bendable,
			weak:       opts.Weak,
			source:     opts.Source,
			expiration: b.owner.Blocks.CurrentTick() + int64(ticks),
		}
		b.snapshots = append(b.snapshots, s)
		b.index = s
	} else {
		b.index.weak = opts.Weak
	}
	b.owner.state.SetBlock(b.pos, material)
}

// cleanStates drops expired layers above the original.
func (b *TempBlock) cleanStates() {
	if len(b.snapshots) < 2 {
		return
	}
	now := b.owner.Blocks.CurrentTick()
	kept := b.snapshots[:1]
	for _, s := range b.snapshots[1:] {
		if now <= s.expiration {
			kept = append(kept, s)
		}
	}
	b.snapshots = kept
}

// popExpired removes the newest layer plus every layer below it that is also
// due, and returns the oldest one removed.
func (b *TempBlock) popExpired() *blockSnapshot {
	last := len(b.snapshots) - 1
	toRevert := b.snapshots[last]
	b.snapshots = b.snapshots[:last]
	now := b.owner.Blocks.CurrentTick()
	for i := len(b.snapshots) - 1; i >= 0; i-- {
		if now < b.snapshots[i].expiration {
			break
		}
		toRevert = b.snapshots[i]
		b.snapshots = b.snapshots[:i]
	}
	return toRevert
}

func (b *TempBlock) Revert() bool {
	b.repeat = 0
	if b.owner.Blocks.Clearing() {
		b.revertFully(true)
		return true
	}
	if b.reverted || len(b.snapshots) == 0 {
		return false
	}
	toRevert := b.popExpired()
	if len(b.snapshots) == 0 {
		b.snapshots = append(b.snapshots, toRevert)
		b.revertFully(false)
		return true
	}
	b.restore(toRevert)
	if next := b.snapshots[len(b.snapshots)-1]; next.expiration > toRevert.expiration {
		b.repeat = int(next.expiration - toRevert.expiration)
	}
	return false
}

// Repeat returns the ticks until the next layer is due.
func (b *TempBlock) Repeat() int { return b.repeat }

// RemoveWithoutReverting forgets the block, leaving its current state.
func (b *TempBlock) RemoveWithoutReverting() {
	b.cleanup()
}

func (b *TempBlock) revertFully(forced bool) {
	if b.reverted || len(b.snapshots) == 0 {
		b.reverted = true
		return
	}
	original := b.snapshots[0]
	b.restore(original)
	b.cleanup()
	b.reverted = true
	event.Emit(b.owner.state.Bus(), event.BlockReverted{Pos: b.pos, Material: original.material, Forced: forced})
}

func (b *TempBlock) restore(s *blockSnapshot) {
	b.index = s
	b.owner.state.SetBlock(b.pos, s.material)
}

func (b *TempBlock) cleanup() {
	b.snapshots = nil
	b.owner.Blocks.Remove(b.pos)
}
