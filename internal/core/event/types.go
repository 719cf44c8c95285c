package event

import (
	"github.com/google/uuid"

	"github.com/tempworld/server/internal/component"
	"github.com/tempworld/server/internal/core/ecs"
)

// BlockReverted fires when a temporary block is restored to its original state.
type BlockReverted struct {
	Pos      component.Pos
	Material string
	Forced   bool // reverted by a category teardown
}

// EntityDespawned fires when a temporary entity is queued for destruction.
type EntityDespawned struct {
	EntityID ecs.EntityID
	UUID     uuid.UUID
	Kind     string
}

// LimitLifted fires when an action limiter on an entity expires.
type LimitLifted struct {
	UUID uuid.UUID
}
