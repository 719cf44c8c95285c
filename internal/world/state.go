package world

import (
	"github.com/google/uuid"

	"github.com/tempworld/server/internal/component"
	"github.com/tempworld/server/internal/core/ecs"
	"github.com/tempworld/server/internal/core/event"
)

// Materials the light rules care about. Any other string is a solid block.
const (
	Air   = "air"
	Water = "water"
)

// State holds the blocks, lights and entities temporary changes act on.
// Single-goroutine access only (game loop).
type State struct {
	Dimension string

	ecs      *ecs.World
	bus      *event.Bus
	blocks   map[component.Pos]string
	lights   map[component.Pos]int
	entities *ecs.Store[component.Entity]
	byUUID   map[uuid.UUID]ecs.EntityID
}

func NewState(dimension string, w *ecs.World, bus *event.Bus) *State {
	s := &State{
		Dimension: dimension,
		ecs:       w,
		bus:       bus,
		blocks:    make(map[component.Pos]string, 1024),
		lights:    make(map[component.Pos]int, 64),
		entities:  ecs.NewStore[component.Entity](),
		byUUID:    make(map[uuid.UUID]ecs.EntityID, 64),
	}
	w.RegisterStore(s.entities)
	return s
}

func (s *State) ECS() *ecs.World { return s.ecs }
func (s *State) Bus() *event.Bus { return s.bus }

// BlockAt returns the material at pos. Unset positions are air.
func (s *State) BlockAt(pos component.Pos) string {
	if m, ok := s.blocks[pos]; ok {
		return m
	}
	return Air
}

func (s *State) SetBlock(pos component.Pos, material string) {
	if material == "" || material == Air {
		delete(s.blocks, pos)
		return
	}
	s.blocks[pos] = material
}

// LightAt returns the artificial light level at pos (0 = none).
func (s *State) LightAt(pos component.Pos) int { return s.lights[pos] }

func (s *State) SetLight(pos component.Pos, level int) {
	if level <= 0 {
		delete(s.lights, pos)
		return
	}
	s.lights[pos] = level
}

// Spawn creates an entity with AI enabled.
func (s *State) Spawn(kind string, pos component.Pos) (ecs.EntityID, uuid.UUID) {
	id := s.ecs.CreateEntity()
	u := uuid.New()
	s.entities.Set(id, &component.Entity{UUID: u, Kind: kind, Pos: pos, AI: true})
	s.byUUID[u] = id
	return id, u
}

// Entity returns a live entity that is not queued for destruction.
func (s *State) Entity(id ecs.EntityID) (*component.Entity, bool) {
	if !s.ecs.Alive(id) || s.ecs.Pending(id) {
		return nil, false
	}
	return s.entities.Get(id)
}

func (s *State) EntityByUUID(u uuid.UUID) (ecs.EntityID, bool) {
	id, ok := s.byUUID[u]
	return id, ok
}

// Despawn queues an entity for destruction and publishes EntityDespawned.
func (s *State) Despawn(id ecs.EntityID) bool {
	ent, ok := s.Entity(id)
	if !ok {
		return false
	}
	delete(s.byUUID, ent.UUID)
	s.ecs.MarkForDestruction(id)
	event.Emit(s.bus, event.EntityDespawned{EntityID: id, UUID: ent.UUID, Kind: ent.Kind})
	return true
}

// EntityCount returns the number of entities not yet despawned.
func (s *State) EntityCount() int { return len(s.byUUID) }
