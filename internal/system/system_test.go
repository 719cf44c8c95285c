package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tempworld/server/internal/component"
	"github.com/tempworld/server/internal/core/ecs"
	"github.com/tempworld/server/internal/core/event"
	coresys "github.com/tempworld/server/internal/core/system"
	"github.com/tempworld/server/internal/world"
)

func TestGameLoopRevertsAndCleansUp(t *testing.T) {
	log := zaptest.NewLogger(t)
	bus := event.NewBus()
	ecsWorld := ecs.NewWorld()
	st := world.NewState("overworld", ecsWorld, bus)
	tp := world.NewTemporal(st, world.TemporalConfig{TickDuration: 50 * time.Millisecond, Logger: log})

	var despawned []string
	event.Subscribe(bus, func(ev event.EntityDespawned) { despawned = append(despawned, ev.Kind) })

	temporalSys := NewTemporalSystem(tp, log)
	runner := coresys.NewRunner()
	runner.Register(NewCleanupSystem(ecsWorld, log))
	runner.Register(temporalSys)
	runner.Register(NewEventDispatchSystem(bus))

	e, ok := tp.SpawnTemporary("arrow", component.Pos{}, 100*time.Millisecond)
	require.True(t, ok)
	_, ok = tp.PlaceBlock(component.Pos{X: 1}, "ice", world.BlockOptions{Duration: 100 * time.Millisecond})
	require.True(t, ok)

	runner.Tick(50 * time.Millisecond)
	assert.Equal(t, int64(1), temporalSys.Tick())
	assert.True(t, ecsWorld.Alive(e.ID()))

	// Tick 2 reverts both, cleanup destroys the entity in the same tick.
	runner.Tick(50 * time.Millisecond)
	assert.False(t, ecsWorld.Alive(e.ID()))
	assert.Equal(t, world.Air, st.BlockAt(component.Pos{X: 1}))
	assert.Empty(t, despawned, "events surface next tick")

	runner.Tick(50 * time.Millisecond)
	assert.Equal(t, []string{"arrow"}, despawned)
	assert.Zero(t, temporalSys.Failures())
	assert.Zero(t, tp.Len())
}

func TestTemporalSystemAdvancesCategories(t *testing.T) {
	log := zaptest.NewLogger(t)
	st := world.NewState("overworld", ecs.NewWorld(), event.NewBus())
	tp := world.NewTemporal(st, world.TemporalConfig{Logger: log})
	s := NewTemporalSystem(tp, log)

	_, u := st.Spawn("bat", component.Pos{})
	_, ok := tp.Limit(u, 50*time.Millisecond, world.ActionAll)
	require.True(t, ok)

	s.Update(0)
	assert.Zero(t, s.Failures())
	assert.Zero(t, tp.Limits.Len())
	assert.Equal(t, coresys.PhaseUpdate, s.Phase())
}
