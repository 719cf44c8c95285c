package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tempworld/server/internal/config"
	"github.com/tempworld/server/internal/core/ecs"
	"github.com/tempworld/server/internal/core/event"
	coresys "github.com/tempworld/server/internal/core/system"
	"github.com/tempworld/server/internal/data"
	"github.com/tempworld/server/internal/scripting"
	"github.com/tempworld/server/internal/system"
	"github.com/tempworld/server/internal/temporal"
	"github.com/tempworld/server/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("TEMPWORLD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Metrics
	var metrics *temporal.Metrics
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = temporal.NewMetrics(reg)
		metricsSrv = newMetricsServer(cfg.Metrics.BindAddress, reg)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	// 4. Load temporal data
	printSection("Data")
	categories, err := data.LoadCategoryTable(cfg.Temporal.CategoriesFile)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	printStat("temporal categories", categories.Count())

	engine, err := scripting.NewEngine(cfg.Temporal.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()

	// 5. Create ECS world, world state and temporal categories
	bus := event.NewBus()
	ecsWorld := ecs.NewWorld()
	worldState := world.NewState(cfg.Server.Dimension, ecsWorld, bus)
	temporals := world.NewTemporal(worldState, world.TemporalConfig{
		Categories:   categories,
		TickDuration: cfg.Tick.Rate,
		RetryDelay:   cfg.Tick.RetryDelay,
		OwnerCheck:   cfg.Tick.OwnerCheck,
		Logger:       log,
		Metrics:      metrics,
		Scaler:       engine,
	})
	subscribeLogging(bus, log)

	// 6. Create systems and register with runner
	runner := coresys.NewRunner()
	temporalSys := system.NewTemporalSystem(temporals, log)
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(temporalSys)
	runner.Register(system.NewCleanupSystem(ecsWorld, log))

	// 7. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Tick.Rate)
	defer ticker.Stop()

	printSection("Ready")
	if metricsSrv != nil {
		printReady(fmt.Sprintf("metrics on http://%s/metrics", cfg.Metrics.BindAddress))
	}
	printReady(fmt.Sprintf("%s game loop running (tick: %s)", cfg.Server.Name, cfg.Tick.Rate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Tick.Rate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			active := temporals.Len()
			err := temporals.RemoveAll()
			ecsWorld.FlushDestroyQueue()
			log.Info("temporal state restored",
				zap.Int("active", active),
				zap.Int("failed", len(multierr.Errors(err))),
				zap.Int64("tick", temporalSys.Tick()),
				zap.Int("revert_failures", temporalSys.Failures()),
			)
			if metricsSrv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = metricsSrv.Shutdown(ctx)
				cancel()
			}
			log.Info("server stopped")
			return nil
		}
	}
}

func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// subscribeLogging traces revert events at debug level.
func subscribeLogging(bus *event.Bus, log *zap.Logger) {
	event.Subscribe(bus, func(ev event.BlockReverted) {
		log.Debug("block reverted",
			zap.Int32("x", ev.Pos.X), zap.Int32("y", ev.Pos.Y), zap.Int32("z", ev.Pos.Z),
			zap.String("material", ev.Material),
			zap.Bool("forced", ev.Forced),
		)
	})
	event.Subscribe(bus, func(ev event.EntityDespawned) {
		log.Debug("entity despawned", zap.String("kind", ev.Kind), zap.Stringer("uuid", ev.UUID))
	})
	event.Subscribe(bus, func(ev event.LimitLifted) {
		log.Debug("limit lifted", zap.Stringer("uuid", ev.UUID))
	})
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
