package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grains/config"
	"github.com/pthm-cable/grains/game"
	"github.com/pthm-cable/grains/input"
	"github.com/pthm-cable/grains/terminal"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	mode := flag.String("renderer", "raylib", "Front end: raylib, terminal or headless")
	logStats := flag.Bool("log-stats", false, "Output perf and motion stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	maxFrames := flag.Int("max-frames", 0, "Stop after N frames (0 = unlimited)")
	pour := flag.Bool("pour", false, "Headless: pour continuously at the top center")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	switch *mode {
	case "headless":
		runHeadless(cfg, *logStats, *outputDir, *maxFrames, *pour)
	case "terminal":
		runTerminal(cfg, *outputDir, *maxFrames)
	case "raylib":
		runWindow(cfg, *logStats, *outputDir, *maxFrames)
	default:
		slog.Error("unknown renderer", "renderer", *mode)
		os.Exit(2)
	}
}

func runHeadless(cfg *config.Config, logStats bool, outputDir string, maxFrames int, pour bool) {
	opts := game.Options{
		LogStats:  logStats,
		OutputDir: outputDir,
		Headless:  true,
	}
	if pour {
		opts.Pour = input.Fixed{X: cfg.Derived.WorldW32 / 2, Y: cfg.Derived.Radius32 * 4, Held: true}
	}

	g, err := game.NewGame(cfg, opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer g.Unload()

	if maxFrames <= 0 {
		slog.Warn("headless run has no frame limit")
	}
	slog.Info("starting headless simulation", "max_frames", maxFrames, "pour", pour)

	for maxFrames <= 0 || int(g.Frame()) < maxFrames {
		g.UpdateHeadless()
	}
	slog.Info("max frames reached", "frame", g.Frame(), "grains", g.World().Len())
}

func runWindow(cfg *config.Config, logStats bool, outputDir string, maxFrames int) {
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), cfg.Screen.Title)
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGame(cfg, game.Options{LogStats: logStats, OutputDir: outputDir})
	if err != nil {
		slog.Error("failed to start", "error", err)
		return
	}
	defer g.Unload()

	for !rl.WindowShouldClose() {
		g.Update()
		g.Draw()

		if maxFrames > 0 && int(g.Frame()) >= maxFrames {
			break
		}
	}
}

func runTerminal(cfg *config.Config, outputDir string, maxFrames int) {
	// The screen owns stdout; keep logs off it.
	var logOut io.Writer = io.Discard
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err == nil {
			if f, err := os.Create(filepath.Join(outputDir, "grains.log")); err == nil {
				defer f.Close()
				logOut = f
			}
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(logOut, nil)))

	screen, err := tcell.NewScreen()
	if err != nil {
		slog.Error("failed to create screen", "error", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		slog.Error("failed to init screen", "error", err)
		os.Exit(1)
	}
	defer screen.Fini()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := terminal.Run(ctx, screen, cfg, maxFrames); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("terminal run failed", "error", err)
	}
}
