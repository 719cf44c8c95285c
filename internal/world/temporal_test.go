package world

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempworld/server/internal/component"
	"github.com/tempworld/server/internal/core/event"
	"github.com/tempworld/server/internal/data"
)

func TestCategoryDefaultsFromTable(t *testing.T) {
	table, err := data.ParseCategoryTable([]byte(`
categories:
  - name: block
    default_ms: 1000
  - name: light
    default_ms: 120
    retry_delay: 3
`))
	require.NoError(t, err)
	_, tp := newTestTemporal(t, TemporalConfig{Categories: table})

	assert.Equal(t, 20, tp.Blocks.DefaultDuration())
	assert.Equal(t, 3, tp.Lights.DefaultDuration(), "rounded up")
	assert.Equal(t, 600, tp.Entities.DefaultDuration(), "missing category keeps the built-in default")

	tb, ok := tp.PlaceBlock(component.Pos{}, "ice", BlockOptions{})
	require.True(t, ok)
	assert.Equal(t, int64(20), tb.Expiration())
}

func TestToTicks(t *testing.T) {
	assert.Equal(t, 0, toTicks(0, 50*time.Millisecond))
	assert.Equal(t, 1, toTicks(time.Millisecond, 50*time.Millisecond))
	assert.Equal(t, 2, toTicks(100*time.Millisecond, 50*time.Millisecond))
	assert.Equal(t, 2, toTicks(100*time.Millisecond, 0))
}

func TestLightFadesOut(t *testing.T) {
	st, tp := newTestTemporal(t, TemporalConfig{})
	pos := component.Pos{Y: 10}

	l, ok := tp.AddLight(pos, 10, LightOptions{Rate: 3, Duration: 100 * time.Millisecond})
	require.True(t, ok)
	assert.Equal(t, 10, st.LightAt(pos))

	levels := map[int64]int{2: 7, 4: 4, 6: 1}
	for tick := int64(1); tick <= 7; tick++ {
		tickTo(t, tp, tick)
		if want, ok := levels[tick]; ok {
			assert.Equal(t, want, l.Level(), "tick %d", tick)
			assert.Equal(t, want, st.LightAt(pos), "tick %d", tick)
		}
	}
	assert.True(t, tp.Lights.Contains(pos))

	tickTo(t, tp, 8)
	assert.Zero(t, st.LightAt(pos))
	assert.False(t, tp.Lights.Contains(pos))
}

func TestLightNeedsAirOrWater(t *testing.T) {
	st, tp := newTestTemporal(t, TemporalConfig{})
	solid, wet := component.Pos{X: 1}, component.Pos{X: 2}
	st.SetBlock(solid, "stone")
	st.SetBlock(wet, Water)

	_, ok := tp.AddLight(solid, 5, LightOptions{})
	assert.False(t, ok)
	_, ok = tp.AddLight(wet, 5, LightOptions{})
	assert.True(t, ok)
}

func TestLightBrightensOnly(t *testing.T) {
	st, tp := newTestTemporal(t, TemporalConfig{})
	pos := component.Pos{}

	l, _ := tp.AddLight(pos, 6, LightOptions{})
	again, ok := tp.AddLight(pos, 40, LightOptions{})
	require.True(t, ok)
	assert.Same(t, l, again)
	assert.Equal(t, maxLightLevel, l.Level())
	assert.Equal(t, maxLightLevel, st.LightAt(pos))

	tp.AddLight(pos, 2, LightOptions{})
	assert.Equal(t, maxLightLevel, l.Level())
}

func TestLockedLightWaits(t *testing.T) {
	st, tp := newTestTemporal(t, TemporalConfig{})
	pos := component.Pos{Z: 5}

	l, _ := tp.AddLight(pos, 9, LightOptions{Rate: 4, Duration: 50 * time.Millisecond})
	l.Lock()
	tickTo(t, tp, 20)
	assert.Equal(t, 9, st.LightAt(pos))
	assert.True(t, tp.Lights.Contains(pos))

	l.UnlockAndRevert()
	assert.Equal(t, 5, st.LightAt(pos))
	tickTo(t, tp, 22)
	assert.Equal(t, 1, st.LightAt(pos))
	tickTo(t, tp, 24)
	assert.Zero(t, st.LightAt(pos))
	assert.Zero(t, tp.Lights.Len())
}

func TestUnlockBeforeDeadlineKeepsFading(t *testing.T) {
	st, tp := newTestTemporal(t, TemporalConfig{})
	pos := component.Pos{X: 7}

	l, ok := tp.AddLight(pos, 9, LightOptions{Rate: 4, Duration: 10 * time.Second})
	require.True(t, ok)
	l.Lock()
	tickTo(t, tp, 10)
	assert.Equal(t, 9, st.LightAt(pos))

	l.UnlockAndRevert()
	assert.Equal(t, 5, st.LightAt(pos))
	assert.Equal(t, int64(12), l.Expiration())

	tickTo(t, tp, 12)
	assert.Equal(t, 1, st.LightAt(pos))
	tickTo(t, tp, 14)
	assert.Zero(t, st.LightAt(pos))
	assert.False(t, tp.Lights.Contains(pos))
}

func TestLightDiesWhenBlockFills(t *testing.T) {
	st, tp := newTestTemporal(t, TemporalConfig{})
	pos := component.Pos{}

	tp.AddLight(pos, 14, LightOptions{Rate: 1, Duration: 50 * time.Millisecond})
	st.SetBlock(pos, "gravel")
	tickTo(t, tp, 1)
	assert.Zero(t, st.LightAt(pos))
	assert.Zero(t, tp.Lights.Len())
}

func TestTemporaryEntityDespawns(t *testing.T) {
	st, tp := newTestTemporal(t, TemporalConfig{})
	despawned := collect[event.EntityDespawned](st.Bus())

	e, ok := tp.SpawnTemporary("golem", component.Pos{X: 8}, 150*time.Millisecond)
	require.True(t, ok)
	ent, ok := st.Entity(e.ID())
	require.True(t, ok)
	assert.Equal(t, "golem", ent.Kind)
	assert.Equal(t, e.UUID(), ent.UUID)

	tickTo(t, tp, 2)
	assert.Equal(t, 1, st.EntityCount())

	tickTo(t, tp, 3)
	_, ok = st.Entity(e.ID())
	assert.False(t, ok)
	assert.True(t, st.ECS().Alive(e.ID()), "destroyed at cleanup")
	assert.Equal(t, 1, st.ECS().FlushDestroyQueue())
	assert.False(t, st.ECS().Alive(e.ID()))
	assert.Zero(t, tp.Entities.Len())

	evs := despawned()
	require.Len(t, evs, 1)
	assert.Equal(t, e.UUID(), evs[0].UUID)
	assert.Equal(t, "golem", evs[0].Kind)
}

func TestActionLimiter(t *testing.T) {
	st, tp := newTestTemporal(t, TemporalConfig{})
	lifted := collect[event.LimitLifted](st.Bus())
	id, u := st.Spawn("zombie", component.Pos{})

	l, ok := tp.Limit(u, 100*time.Millisecond, ActionMove)
	require.True(t, ok)
	assert.True(t, tp.IsLimited(u, ActionMove))
	assert.False(t, tp.IsLimited(u, ActionAttack))
	ent, _ := st.Entity(id)
	assert.False(t, ent.AI)

	again, ok := tp.Limit(u, 250*time.Millisecond, ActionAttack)
	require.True(t, ok)
	assert.Same(t, l, again)
	assert.Equal(t, ActionMove|ActionAttack, l.Actions())
	assert.Equal(t, int64(5), l.Expiration())

	tp.Limit(u, 50*time.Millisecond, ActionAbility)
	assert.Equal(t, int64(5), l.Expiration(), "never shortened")

	tickTo(t, tp, 4)
	assert.True(t, tp.IsLimited(u, ActionAttack))
	tickTo(t, tp, 5)
	assert.False(t, tp.IsLimited(u, ActionMove))
	assert.True(t, ent.AI)
	assert.Equal(t, []event.LimitLifted{{UUID: u}}, lifted())
}

func TestAttackOnlyLimiterKeepsAI(t *testing.T) {
	st, tp := newTestTemporal(t, TemporalConfig{})
	id, u := st.Spawn("spider", component.Pos{})
	ent, _ := st.Entity(id)

	l, ok := tp.Limit(u, 100*time.Millisecond, ActionAttack)
	require.True(t, ok)
	assert.True(t, ent.AI, "movement is not limited")
	assert.False(t, tp.IsLimited(u, ActionMove))
	assert.True(t, tp.IsLimited(u, 0), "zero asks for any limit")

	// AI switched off elsewhere must stay off after the limit lifts.
	ent.AI = false
	tickTo(t, tp, 2)
	assert.False(t, tp.IsLimited(u, 0))
	assert.False(t, ent.AI)
	assert.Equal(t, ActionAttack, l.Actions())
}

func TestMergingMoveFreezesAI(t *testing.T) {
	st, tp := newTestTemporal(t, TemporalConfig{})
	id, u := st.Spawn("wolf", component.Pos{})
	ent, _ := st.Entity(id)

	tp.Limit(u, 100*time.Millisecond, ActionInteract)
	assert.True(t, ent.AI)

	tp.Limit(u, 100*time.Millisecond, ActionMove)
	assert.False(t, ent.AI)
	assert.True(t, tp.IsLimited(u, ActionInteract))

	tickTo(t, tp, 2)
	assert.True(t, ent.AI)
	assert.False(t, tp.IsLimited(u, 0))
}

func TestActionLimiterUnknownEntity(t *testing.T) {
	_, tp := newTestTemporal(t, TemporalConfig{})
	_, ok := tp.Limit(uuid.New(), time.Second, ActionAll)
	assert.False(t, ok)
}

func TestLimiterDroppedWithEntity(t *testing.T) {
	st, tp := newTestTemporal(t, TemporalConfig{})
	id, u := st.Spawn("skeleton", component.Pos{})
	_, ok := tp.Limit(u, time.Second, 0)
	require.True(t, ok)
	assert.True(t, tp.IsLimited(u, ActionAbility), "zero means every action")

	require.True(t, st.Despawn(id))
	st.Bus().SwapBuffers()
	st.Bus().DispatchAll()
	assert.Zero(t, tp.Limits.Len())
}

func TestRemoveAllRestoresEverything(t *testing.T) {
	st, tp := newTestTemporal(t, TemporalConfig{})
	reverted := collect[event.BlockReverted](st.Bus())

	block := component.Pos{X: 1}
	light := component.Pos{X: 2}
	st.SetBlock(block, "grass")
	tp.PlaceBlock(block, "ice", BlockOptions{})
	tp.PlaceBlock(block, "stone", BlockOptions{})
	tp.AddLight(light, 12, LightOptions{})
	e, _ := tp.SpawnTemporary("wolf", component.Pos{}, 0)
	id, u := st.Spawn("villager", component.Pos{})
	tp.Limit(u, 0, ActionAll)
	require.Equal(t, 4, tp.Len())

	require.NoError(t, tp.RemoveAll())
	assert.Zero(t, tp.Len())
	assert.Equal(t, "grass", st.BlockAt(block))
	assert.Zero(t, st.LightAt(light))
	_, alive := st.Entity(e.ID())
	assert.False(t, alive)
	ent, _ := st.Entity(id)
	assert.True(t, ent.AI)
	assert.False(t, tp.Blocks.Clearing())

	evs := reverted()
	require.Len(t, evs, 1)
	assert.True(t, evs[0].Forced)

	// Categories keep working after teardown.
	_, ok := tp.PlaceBlock(block, "ice", BlockOptions{})
	assert.True(t, ok)
}
