package terminal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/grains/config"
	"github.com/pthm-cable/grains/input"
	"github.com/pthm-cable/grains/sim"
	"github.com/pthm-cable/grains/telemetry"
)

// Run builds a world from cfg on an initialized screen and runs it until
// the user quits or ctx is done.
func Run(ctx context.Context, screen tcell.Screen, cfg *config.Config, maxFrames int) error {
	screen.EnableMouse()
	screen.HideCursor()

	canvas := NewCanvas(screen, cfg.Derived.WorldW32, cfg.Derived.WorldH32, cfg.Derived.ColorRGBA)
	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)

	opts := sim.OptionsFromConfig(cfg)
	opts.NewVisual = canvas.Factory()
	opts.Perf = perf
	world, err := sim.NewWorld(opts)
	if err != nil {
		return fmt.Errorf("creating world: %w", err)
	}
	defer world.Close()

	n := world.SpawnLattice(cfg.World.InitialCols, cfg.World.InitialRows,
		float32(cfg.World.InitialSpacingX), float32(cfg.World.InitialSpacingY))
	slog.Info("spawned initial lattice", "grains", n, "workers", world.Workers())

	app := NewApp(screen, canvas, world, input.NewSpray(cfg.Spawn), perf, Options{
		TargetFPS: cfg.Screen.TargetFPS,
		TimeScale: cfg.Physics.TimeScale,
		MaxDT:     cfg.Physics.MaxDT,
		MaxFrames: maxFrames,
		Title:     cfg.Screen.Title,
	})
	err = app.Run(ctx)
	slog.Info("terminal session ended", "frame", world.Frame(), "grains", world.Len(), "perf", perf.Stats())
	return err
}
