package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for duration policies.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
// Missing directories are skipped, leaving every policy at its default.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	for _, sub := range []string{"core", "temporal"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua source in the engine's VM.
func (e *Engine) LoadString(name, src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	return nil
}

// DurationContext describes a temporary change about to be registered.
type DurationContext struct {
	Category  string // temporal category name
	Ticks     int    // requested duration
	Material  string // block/entity type, if any
	Dimension string // world dimension, if any
}

// ScaleDuration calls Lua calc_temporal_duration(ctx) and returns the ticks
// to register for, clamped to [1, MaxInt32]. Without the function, or on an
// error or non-finite result, ctx.Ticks is returned.
func (e *Engine) ScaleDuration(ctx DurationContext) int {
	fn := e.vm.GetGlobal("calc_temporal_duration")
	if fn == lua.LNil {
		return ctx.Ticks
	}

	t := e.vm.NewTable()
	t.RawSetString("category", lua.LString(ctx.Category))
	t.RawSetString("ticks", lua.LNumber(ctx.Ticks))
	t.RawSetString("material", lua.LString(ctx.Material))
	t.RawSetString("dimension", lua.LString(ctx.Dimension))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua calc_temporal_duration error", zap.Error(err))
		return ctx.Ticks
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Warn("lua calc_temporal_duration returned non-number",
			zap.String("type", result.Type().String()))
		return ctx.Ticks
	}
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		e.log.Warn("lua calc_temporal_duration returned non-finite number",
			zap.Float64("ticks", f))
		return ctx.Ticks
	}
	return int(min(max(f, 1), math.MaxInt32))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
