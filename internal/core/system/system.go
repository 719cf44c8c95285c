package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhasePreUpdate Phase = iota // 0: deliver last tick's events
	PhaseUpdate                 // 1: advance temporal categories
	PhaseCleanup                // 2: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every game loop system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
