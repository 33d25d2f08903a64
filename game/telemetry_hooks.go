package game

import (
	"log/slog"

	"github.com/pthm-cable/grains/telemetry"
)

// flushTelemetry logs and writes perf and motion records once per log interval.
func (g *Game) flushTelemetry(frameSeconds float64) {
	interval := g.cfg.Telemetry.LogInterval
	if interval <= 0 {
		return
	}
	g.sinceLog += frameSeconds
	if g.sinceLog < interval {
		return
	}
	g.sinceLog = 0

	perfStats := g.perf.Stats()
	motion := g.world.Motion()
	frame := g.world.Frame()

	if g.logStats {
		slog.Info("perf", "frame", frame, "grains", motion.Grains, "stats", perfStats)
		slog.Info("motion",
			"frame", frame,
			"grains", motion.Grains,
			"resting", motion.Resting,
			"mean_speed", motion.MeanSpeed,
			"max_speed", motion.MaxSpeed,
		)
	}

	if g.outputManager != nil {
		if err := g.outputManager.WritePerf(perfStats, frame, motion.Grains); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
		rec := telemetry.MotionCSV{
			Frame:     frame,
			Grains:    motion.Grains,
			Resting:   motion.Resting,
			MeanSpeed: motion.MeanSpeed,
			MaxSpeed:  motion.MaxSpeed,
		}
		if err := g.outputManager.WriteMotion(rec); err != nil {
			slog.Error("failed to write motion", "error", err)
		}
	}
}
