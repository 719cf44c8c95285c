package world

import (
	"time"

	"github.com/google/uuid"

	"github.com/tempworld/server/internal/component"
	"github.com/tempworld/server/internal/core/ecs"
	"github.com/tempworld/server/internal/temporal"
)

// TempEntity is an entity that despawns when it expires.
type TempEntity struct {
	temporal.Node

	owner    *Temporal
	id       ecs.EntityID
	uuid     uuid.UUID
	reverted bool
}

// SpawnTemporary spawns kind at pos for d (0 = category default).
func (t *Temporal) SpawnTemporary(kind string, pos component.Pos, d time.Duration) (*TempEntity, bool) {
	ticks := t.resolveTicks(t.Entities, CategoryEntity, kind, d)
	id, u := t.state.Spawn(kind, pos)
	e := &TempEntity{owner: t, id: id, uuid: u}
	if !t.Entities.Add(id, e, ticks) {
		t.state.Despawn(id)
		return nil, false
	}
	return e, true
}

func (e *TempEntity) ID() ecs.EntityID { return e.id }
func (e *TempEntity) UUID() uuid.UUID  { return e.uuid }

// Revert despawns the entity. Destruction happens at the end of the tick.
func (e *TempEntity) Revert() bool {
	if e.reverted {
		return false
	}
	e.reverted = true
	e.owner.state.Despawn(e.id)
	e.owner.Entities.Remove(e.id)
	return true
}
