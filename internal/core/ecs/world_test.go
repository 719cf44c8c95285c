package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityPoolRecyclesWithNewGeneration(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	b := p.Create()
	assert.Equal(t, uint32(0), a.Index())
	assert.Equal(t, uint32(1), b.Index())
	assert.Equal(t, 2, p.Live())

	require.True(t, p.Destroy(a))
	assert.False(t, p.Alive(a))
	assert.False(t, p.Destroy(a), "stale id")

	c := p.Create()
	assert.Equal(t, a.Index(), c.Index())
	assert.Equal(t, uint32(1), c.Generation())
	assert.True(t, p.Alive(c))
	assert.False(t, p.Alive(NewEntityID(99, 0)))
	assert.Equal(t, 2, p.Live())
}

func TestWorldDeferredDestroy(t *testing.T) {
	w := NewWorld()
	names := NewStore[string]()
	w.RegisterStore(names)

	id := w.CreateEntity()
	name := "golem"
	names.Set(id, &name)

	w.MarkForDestruction(id)
	w.MarkForDestruction(id)
	assert.True(t, w.Pending(id))
	assert.True(t, w.Alive(id), "alive until flush")
	_, ok := names.Get(id)
	assert.True(t, ok)

	assert.Equal(t, 1, w.FlushDestroyQueue())
	assert.False(t, w.Alive(id))
	assert.False(t, w.Pending(id))
	assert.Zero(t, names.Len())
	assert.Zero(t, w.FlushDestroyQueue())

	w.MarkForDestruction(id)
	assert.False(t, w.Pending(id), "dead ids are not queued")
}

func TestStoreEach(t *testing.T) {
	s := NewStore[int]()
	for i := 0; i < 3; i++ {
		v := i * 10
		s.Set(NewEntityID(uint32(i), 0), &v)
	}
	sum := 0
	s.Each(func(_ EntityID, v *int) { sum += *v })
	assert.Equal(t, 30, sum)
}
