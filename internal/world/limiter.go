package world

import (
	"time"

	"github.com/google/uuid"

	"github.com/tempworld/server/internal/component"
	"github.com/tempworld/server/internal/core/event"
	"github.com/tempworld/server/internal/temporal"
)

// Action is a bit set of things an entity can be prevented from doing.
type Action uint8

const (
	ActionMove Action = 1 << iota
	ActionInteract
	ActionAttack
	ActionAbility

	ActionAll = ActionMove | ActionInteract | ActionAttack | ActionAbility
)

// ActionLimiter blocks a set of an entity's actions. Limiting movement also
// freezes its AI.
type ActionLimiter struct {
	temporal.Node

	owner    *Temporal
	entity   uuid.UUID
	actions  Action
	frozen   bool // AI was switched off by this limiter
	hadAI    bool
	reverted bool
}

// Limit restricts actions of the entity id for d (0 = category default). An
// existing limiter gains the new actions and is extended if d ends later.
func (t *Temporal) Limit(id uuid.UUID, d time.Duration, actions Action) (*ActionLimiter, bool) {
	eid, ok := t.state.EntityByUUID(id)
	if !ok {
		return nil, false
	}
	ent, ok := t.state.Entity(eid)
	if !ok {
		return nil, false
	}
	if actions == 0 {
		actions = ActionAll
	}
	ticks := t.resolveTicks(t.Limits, CategoryLimiter, ent.Kind, d)

	if l, ok := t.Limits.Get(id); ok {
		l.actions |= actions
		l.freeze(ent)
		if t.Limits.CurrentTick()+int64(ticks) > l.Expiration() {
			t.Limits.Reschedule(id, ticks)
		}
		return l, true
	}

	l := &ActionLimiter{owner: t, entity: id, actions: actions}
	if !t.Limits.Add(id, l, ticks) {
		return nil, false
	}
	l.freeze(ent)
	return l, true
}

// IsLimited reports whether the entity id may not perform action. A zero
// action asks whether the entity has any limit at all.
func (t *Temporal) IsLimited(id uuid.UUID, action Action) bool {
	l, ok := t.Limits.Get(id)
	if !ok {
		return false
	}
	return action == 0 || l.actions&action != 0
}

// freeze switches the entity's AI off once movement is limited.
func (l *ActionLimiter) freeze(ent *component.Entity) {
	if l.frozen || l.actions&ActionMove == 0 {
		return
	}
	l.frozen = true
	l.hadAI = ent.AI
	ent.AI = false
}

func (l *ActionLimiter) Actions() Action { return l.actions }

// Revert lifts the limit and restores the entity's AI if it was frozen.
func (l *ActionLimiter) Revert() bool {
	if l.reverted {
		return false
	}
	l.reverted = true
	l.thaw()
	l.owner.Limits.Remove(l.entity)
	event.Emit(l.owner.state.Bus(), event.LimitLifted{UUID: l.entity})
	return true
}

func (l *ActionLimiter) thaw() {
	if !l.frozen {
		return
	}
	eid, ok := l.owner.state.EntityByUUID(l.entity)
	if !ok {
		return
	}
	if ent, ok := l.owner.state.Entity(eid); ok {
		ent.AI = l.hadAI
	}
}
