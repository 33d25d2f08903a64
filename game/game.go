// Package game drives the simulation in a raylib window or headless.
package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/grains/camera"
	"github.com/pthm-cable/grains/config"
	"github.com/pthm-cable/grains/input"
	"github.com/pthm-cable/grains/inspector"
	"github.com/pthm-cable/grains/renderer"
	"github.com/pthm-cable/grains/sim"
	"github.com/pthm-cable/grains/telemetry"
	"github.com/pthm-cable/grains/ui"
)

// Options configures a Game beyond what the config file holds.
type Options struct {
	LogStats  bool
	OutputDir string
	Headless  bool

	// Pour, if set, replaces the mouse as the spawn source.
	Pour input.Source
}

// Game holds the complete game state.
type Game struct {
	cfg   *config.Config
	world *sim.World
	spray *input.Spray
	src   input.Source

	perf          *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	logStats      bool
	sinceLog      float64 // seconds since the last telemetry flush
	headless      bool

	cam       *camera.Camera
	ctl       ui.Controls
	hud       *ui.HUD
	perfPanel *ui.PerfPanel
	controls  *ui.ControlsPanel
	inspector *inspector.Inspector
}

// NewGame builds the world and spawns the initial lattice.
func NewGame(cfg *config.Config, opts Options) (*Game, error) {
	g := &Game{
		cfg:      cfg,
		spray:    input.NewSpray(cfg.Spawn),
		perf:     telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		logStats: opts.LogStats,
		headless: opts.Headless,
		ctl: ui.Controls{
			SpawnRate: float32(cfg.Spawn.Rate),
			TimeScale: float32(cfg.Physics.TimeScale),
		},
	}

	simOpts := sim.OptionsFromConfig(cfg)
	simOpts.Perf = g.perf
	if !opts.Headless {
		simOpts.NewVisual = renderer.MeshFactory(cfg.Derived.Radius32, cfg.Grain.Sides, cfg.Derived.ColorRGBA)
	}
	world, err := sim.NewWorld(simOpts)
	if err != nil {
		return nil, fmt.Errorf("creating world: %w", err)
	}
	g.world = world

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		world.Close()
		return nil, fmt.Errorf("creating output: %w", err)
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	if !opts.Headless {
		w := int32(cfg.Screen.Width)
		g.cam = camera.New(float32(cfg.Screen.Width), float32(cfg.Screen.Height),
			cfg.Derived.WorldW32, cfg.Derived.WorldH32)
		g.hud = ui.NewHUD()
		g.perfPanel = ui.NewPerfPanel(10, 100, 230)
		g.controls = ui.NewControlsPanel(w-200, 10, 190)
		g.inspector = inspector.NewInspector(w-230, 190)
	}

	g.src = opts.Pour
	if g.src == nil && !opts.Headless {
		g.src = mouseSource{cam: g.cam}
	}

	n := world.SpawnLattice(cfg.World.InitialCols, cfg.World.InitialRows,
		float32(cfg.World.InitialSpacingX), float32(cfg.World.InitialSpacingY))
	slog.Info("spawned initial lattice",
		"grains", n,
		"cols", cfg.World.InitialCols,
		"rows", cfg.World.InitialRows,
		"workers", world.Workers(),
	)

	return g, nil
}

// World returns the simulation world.
func (g *Game) World() *sim.World { return g.world }

// Frame returns the number of completed simulation frames.
func (g *Game) Frame() uint64 { return g.world.Frame() }

// Paused reports whether stepping is suspended.
func (g *Game) Paused() bool { return g.ctl.Paused }

// Unload releases the worker pool and closes output files.
func (g *Game) Unload() {
	g.world.Close()
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}
