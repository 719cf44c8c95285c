package world

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tempworld/server/internal/component"
	"github.com/tempworld/server/internal/core/ecs"
	"github.com/tempworld/server/internal/core/event"
	"github.com/tempworld/server/internal/data"
	"github.com/tempworld/server/internal/scripting"
	"github.com/tempworld/server/internal/temporal"
)

// Category names, matching the entries of data/temporal.yaml.
const (
	CategoryBlock   = "block"
	CategoryLight   = "light"
	CategoryEntity  = "entity"
	CategoryLimiter = "limiter"
)

// DurationScaler adjusts the ticks of a temporary change before it is
// registered. *scripting.Engine implements it.
type DurationScaler interface {
	ScaleDuration(ctx scripting.DurationContext) int
}

// TemporalConfig holds what every category manager is built from.
type TemporalConfig struct {
	Categories   *data.CategoryTable // per-category defaults; nil = built-in
	TickDuration time.Duration
	RetryDelay   int64
	OwnerCheck   bool
	Logger       *zap.Logger
	Metrics      *temporal.Metrics
	Scaler       DurationScaler // nil = durations used as given
}

// Temporal groups the category managers of one world.
type Temporal struct {
	state  *State
	scaler DurationScaler
	log    *zap.Logger

	Blocks   *temporal.Manager[component.Pos, *TempBlock]
	Lights   *temporal.Manager[component.Pos, *TempLight]
	Entities *temporal.Manager[ecs.EntityID, *TempEntity]
	Limits   *temporal.Manager[uuid.UUID, *ActionLimiter]
}

func NewTemporal(state *State, cfg TemporalConfig) *Temporal {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	t := &Temporal{
		state:  state,
		scaler: cfg.Scaler,
		log:    cfg.Logger,
	}
	t.Blocks = temporal.NewManager[component.Pos, *TempBlock](CategoryBlock, nil, categoryOptions(cfg, CategoryBlock)...)
	t.Lights = temporal.NewManager[component.Pos, *TempLight](CategoryLight, nil, categoryOptions(cfg, CategoryLight)...)
	t.Entities = temporal.NewManager[ecs.EntityID, *TempEntity](CategoryEntity, nil, categoryOptions(cfg, CategoryEntity)...)
	t.Limits = temporal.NewManager[uuid.UUID, *ActionLimiter](CategoryLimiter, nil, categoryOptions(cfg, CategoryLimiter)...)

	// A despawned entity has no AI left to restore.
	event.Subscribe(state.Bus(), func(ev event.EntityDespawned) {
		t.Limits.Remove(ev.UUID)
	})
	return t
}

func categoryOptions(cfg TemporalConfig, name string) []temporal.Option {
	opts := []temporal.Option{
		temporal.WithLogger(cfg.Logger),
		temporal.WithMetrics(cfg.Metrics),
		temporal.WithTickDuration(cfg.TickDuration),
		temporal.WithRetryDelay(cfg.RetryDelay),
		temporal.WithOwnerCheck(cfg.OwnerCheck),
	}
	info := cfg.Categories.Get(name)
	if info == nil {
		return opts
	}
	if ticks := toTicks(info.DefaultDuration, cfg.TickDuration); ticks > 0 {
		opts = append(opts, temporal.WithDefaultDuration(ticks))
	}
	if info.RetryDelay > 0 {
		opts = append(opts, temporal.WithRetryDelay(info.RetryDelay))
	}
	return opts
}

// toTicks rounds d up to whole ticks.
func toTicks(d, tick time.Duration) int {
	if tick <= 0 {
		tick = temporal.DefaultTickDuration
	}
	if d <= 0 {
		return 0
	}
	return int((d + tick - 1) / tick)
}

// TickAll advances every category to now. Errors are already logged by the
// managers; the joined error is returned for callers that count failures.
func (t *Temporal) TickAll(now int64) error {
	return multierr.Combine(
		t.Blocks.Tick(now),
		t.Lights.Tick(now),
		t.Entities.Tick(now),
		t.Limits.Tick(now),
	)
}

// RemoveAll force-reverts every category. Limiters go first so frozen
// entities get their AI back before they are despawned.
func (t *Temporal) RemoveAll() error {
	return multierr.Combine(
		t.Limits.RemoveAll(),
		t.Entities.RemoveAll(),
		t.Lights.RemoveAll(),
		t.Blocks.RemoveAll(),
	)
}

// Len returns the number of active temporary changes across categories.
func (t *Temporal) Len() int {
	return t.Blocks.Len() + t.Lights.Len() + t.Entities.Len() + t.Limits.Len()
}

// CurrentTick returns the tick the categories were last advanced to.
func (t *Temporal) CurrentTick() int64 { return t.Blocks.CurrentTick() }

type durationSource interface {
	FromMillis(ms int64) int
	DefaultDuration() int
}

// resolveTicks turns a requested duration into the ticks to register for:
// 0 means the category default, and the scaler gets the final word.
func (t *Temporal) resolveTicks(m durationSource, category, material string, d time.Duration) int {
	ticks := m.FromMillis(d.Milliseconds())
	if ticks <= 0 {
		ticks = m.DefaultDuration()
	}
	if t.scaler != nil {
		ticks = t.scaler.ScaleDuration(scripting.DurationContext{
			Category:  category,
			Ticks:     ticks,
			Material:  material,
			Dimension: t.state.Dimension,
		})
	}
	if ticks < 1 {
		ticks = 1
	}
	return ticks
}
