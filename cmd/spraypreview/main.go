// Spray preview tool - plots the brush offset over time with sliders for
// the spawn settings.
//
// Usage: go run ./cmd/spraypreview
package main

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grains/config"
	"github.com/pthm-cable/grains/input"
)

const (
	windowWidth  = 1000
	windowHeight = 560
	plotWidth    = 600
	plotHeight   = 400
	samples      = 600
	panelWidth   = windowWidth - plotWidth - 40
)

func main() {
	rl.InitWindow(windowWidth, windowHeight, "Spray Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	defaults := config.Defaults().Spawn
	params := defaults
	offsets := spraySamples(params, samples)

	for !rl.WindowShouldClose() {
		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		drawPlot(offsets, params.Jitter)

		panelX := float32(plotWidth + 30)
		panelY := float32(10)
		rl.DrawText("Spawn Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		changed := false
		slider := func(label string, value *float64, min, max float32, format string) {
			rl.DrawText(label, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			v := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				"", "",
				float32(*value), min, max,
			)
			rl.DrawText(fmt.Sprintf(format, *value), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			if float64(v) != *value {
				*value = float64(v)
				changed = true
			}
			panelY += 35
		}

		slider("Jitter (brush half-width)", &params.Jitter, 0, 40, "%.1f")
		slider("Noise speed (drift per frame)", &params.NoiseSpeed, 0.01, 1, "%.2f")
		slider("Rate (grains per second)", &params.Rate, 10, 2000, "%.0f")

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Next Seed") {
			params.Seed++
			changed = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = defaults
			changed = true
		}
		panelY += 45

		if changed {
			offsets = spraySamples(params, samples)
		}

		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		yaml := spawnYAML(params)
		rl.DrawText(yaml, int32(panelX), int32(panelY), 14, rl.Gray)

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(yaml)
		}

		rl.EndDrawing()
	}
}

// spraySamples returns the first n brush offsets a fresh spray produces.
func spraySamples(params config.SpawnConfig, n int) []float32 {
	s := input.NewSpray(params)
	out := make([]float32, n)
	for i := range out {
		out[i] = s.Offset()
	}
	return out
}

func spawnYAML(p config.SpawnConfig) string {
	return fmt.Sprintf("spawn:\n  rate: %.0f\n  jitter: %.1f\n  noise_speed: %.2f\n  seed: %d",
		p.Rate, p.Jitter, p.NoiseSpeed, p.Seed)
}

// drawPlot draws offsets as a polyline, time along x.
func drawPlot(offsets []float32, jitter float64) {
	const x0, y0 = 10, 10
	rl.DrawRectangleLines(x0, y0, plotWidth, plotHeight, rl.DarkGray)
	mid := float32(y0 + plotHeight/2)
	rl.DrawLine(x0, int32(mid), x0+plotWidth, int32(mid), rl.LightGray)

	scale := float32(plotHeight/2) * 0.9
	if jitter > 0 {
		scale /= float32(jitter)
	}
	step := float32(plotWidth) / float32(len(offsets)-1)
	for i := 1; i < len(offsets); i++ {
		a := rl.Vector2{X: x0 + float32(i-1)*step, Y: mid + offsets[i-1]*scale}
		b := rl.Vector2{X: x0 + float32(i)*step, Y: mid + offsets[i]*scale}
		rl.DrawLineV(a, b, rl.Color{R: 0, G: 160, B: 40, A: 255})
	}

	rl.DrawText(fmt.Sprintf("+%.1f", jitter), x0+4, y0+4, 14, rl.Gray)
	rl.DrawText(fmt.Sprintf("-%.1f", jitter), x0+4, y0+plotHeight-18, 14, rl.Gray)
	rl.DrawText(fmt.Sprintf("%d frames", len(offsets)), x0, y0+plotHeight+8, 14, rl.Gray)
}
