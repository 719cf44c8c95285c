package world

import (
	"time"

	"github.com/tempworld/server/internal/component"
	"github.com/tempworld/server/internal/temporal"
)

const (
	maxLightLevel   = 14
	defaultFadeRate = 3
	lightRetry      = 2 // ticks between fade steps
)

// LightOptions describes a temporary light.
type LightOptions struct {
	Rate     int           // levels lost per fade step; 0 = 3
	Duration time.Duration // time before fading starts; 0 = category default
}

// TempLight is artificial light at one position that fades out step by step
// once it expires.
type TempLight struct {
	temporal.Node

	owner    *Temporal
	pos      component.Pos
	level    int
	rate     int
	locked   bool
	reverted bool
}

// AddLight lights pos at level. An existing light there is only ever
// brightened. Light needs air or water to exist.
func (t *Temporal) AddLight(pos component.Pos, level int, opts LightOptions) (*TempLight, bool) {
	level = min(max(level, 1), maxLightLevel)
	if !t.lightFits(pos) {
		return nil, false
	}
	if l, ok := t.Lights.Get(pos); ok {
		if l.level < level {
			l.level = level
			l.render()
		}
		return l, true
	}

	rate := opts.Rate
	if rate <= 0 {
		rate = defaultFadeRate
	}
	l := &TempLight{owner: t, pos: pos, level: level, rate: rate}
	ticks := t.resolveTicks(t.Lights, CategoryLight, "", opts.Duration)
	if !t.Lights.Add(pos, l, ticks) {
		return nil, false
	}
	l.render()
	return l, true
}

func (t *Temporal) lightFits(pos component.Pos) bool {
	switch t.state.BlockAt(pos) {
	case Air, Water:
		return true
	}
	return false
}

func (l *TempLight) Pos() component.Pos { return l.pos }
func (l *TempLight) Level() int         { return l.level }

// Lock keeps the light at its level until UnlockAndRevert.
func (l *TempLight) Lock() *TempLight {
	l.locked = true
	return l
}

// UnlockAndRevert releases the lock and applies one fade step immediately.
// Fading then continues every 2 ticks.
func (l *TempLight) UnlockAndRevert() *TempLight {
	l.locked = false
	l.Revert()
	return l
}

// Revert dims the light by one step and reports true once it is gone. A
// locked light declines.
func (l *TempLight) Revert() bool {
	if l.owner.Lights.Clearing() {
		l.extinguish()
		return true
	}
	if l.reverted || l.locked {
		return false
	}
	l.level -= l.rate
	if l.level <= 0 || !l.owner.lightFits(l.pos) {
		l.extinguish()
		return true
	}
	l.render()
	l.owner.Lights.Reschedule(l.pos, lightRetry)
	return false
}

func (l *TempLight) Repeat() int { return lightRetry }

func (l *TempLight) render() {
	l.owner.state.SetLight(l.pos, l.level)
}

func (l *TempLight) extinguish() {
	if l.reverted {
		return
	}
	l.reverted = true
	l.owner.state.SetLight(l.pos, 0)
	l.owner.Lights.Remove(l.pos)
}
