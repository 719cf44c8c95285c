package system

import (
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	coresys "github.com/tempworld/server/internal/core/system"
	"github.com/tempworld/server/internal/world"
)

// TemporalSystem counts game ticks and advances every temporal category.
// Phase 1 (Update).
type TemporalSystem struct {
	temporal *world.Temporal
	log      *zap.Logger
	tick     int64
	failures int
}

// NewTemporalSystem starts counting from the categories' current tick.
func NewTemporalSystem(t *world.Temporal, log *zap.Logger) *TemporalSystem {
	return &TemporalSystem{
		temporal: t,
		log:      log,
		tick:     t.CurrentTick(),
	}
}

func (s *TemporalSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *TemporalSystem) Update(_ time.Duration) {
	s.tick++
	if err := s.temporal.TickAll(s.tick); err != nil {
		// each failure was already logged by its category
		n := len(multierr.Errors(err))
		s.failures += n
		s.log.Debug("temporal tick had failures", zap.Int64("tick", s.tick), zap.Int("count", n))
	}
}

// Tick returns the last tick the categories were advanced to.
func (s *TemporalSystem) Tick() int64 { return s.tick }

// Failures returns how many reverts have failed since start.
func (s *TemporalSystem) Failures() int { return s.failures }
