package terminal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/grains/input"
	"github.com/pthm-cable/grains/sim"
	"github.com/pthm-cable/grains/telemetry"
)

// Options holds loop settings.
type Options struct {
	TargetFPS int
	TimeScale float64
	MaxDT     float64
	MaxFrames int // 0 = unlimited
	Title     string
}

// App drives the simulation against a tcell screen.
type App struct {
	screen  tcell.Screen
	canvas  *Canvas
	pointer *Pointer
	world   *sim.World
	spray   *input.Spray
	perf    *telemetry.PerfCollector
	opts    Options

	paused    bool
	lastFrame time.Duration
}

// NewApp wires a world built with canvas.Factory() to the screen.
func NewApp(screen tcell.Screen, canvas *Canvas, world *sim.World, spray *input.Spray, perf *telemetry.PerfCollector, opts Options) *App {
	if opts.TargetFPS <= 0 {
		opts.TargetFPS = 60
	}
	return &App{
		screen:  screen,
		canvas:  canvas,
		pointer: NewPointer(canvas),
		world:   world,
		spray:   spray,
		perf:    perf,
		opts:    opts,
	}
}

// Run polls events and renders frames until the user quits, ctx is done or
// MaxFrames is reached.
func (a *App) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(a.opts.TargetFPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	quit := make(chan struct{})
	go a.screen.ChannelEvents(events, quit)
	defer close(quit)

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if ev == nil {
				return nil
			}
			if a.HandleEvent(ev) {
				return nil
			}
		case now := <-ticker.C:
			a.Frame(now.Sub(last).Seconds())
			last = now
			if a.opts.MaxFrames > 0 && a.world.Frame() >= uint64(a.opts.MaxFrames) {
				slog.Info("max frames reached", "frame", a.world.Frame())
				return nil
			}
		}
	}
}

// HandleEvent applies one terminal event. Returns true when the user quits.
func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
			return true
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
			return true
		case ev.Key() == tcell.KeyRune && ev.Rune() == ' ':
			a.paused = !a.paused
		}
	case *tcell.EventMouse:
		a.pointer.HandleMouse(ev)
	case *tcell.EventResize:
		if a.canvas.Resize() {
			a.screen.Sync()
		}
	}
	return false
}

// Frame runs one spawn, step, draw cycle for a frame of frameSeconds.
func (a *App) Frame(frameSeconds float64) {
	a.perf.StartTick()

	a.perf.StartPhase(telemetry.PhaseSpawn)
	a.spray.Apply(a.world, a.pointer, frameSeconds)
	if !a.paused {
		a.world.StepFrame(sim.FrameDT(frameSeconds, a.opts.TimeScale, a.opts.MaxDT))
	}
	a.world.PrepareDraw()

	a.screen.Clear()
	a.world.Draw()
	a.canvas.DrawStatus(a.status())
	a.screen.Show()

	a.perf.EndTick()
	a.perf.RecordFrame()
	a.lastFrame = time.Duration(frameSeconds * float64(time.Second))
}

func (a *App) status() string {
	state := ""
	if a.paused {
		state = " [paused]"
	}
	fps := 0.0
	if a.lastFrame > 0 {
		fps = float64(time.Second) / float64(a.lastFrame)
	}
	return fmt.Sprintf(" %s | grains %d | frame %d | %.0f fps%s | drag to pour, space pauses, q quits",
		a.opts.Title, a.world.Len(), a.world.Frame(), fps, state)
}

// Paused reports whether stepping is suspended.
func (a *App) Paused() bool { return a.paused }
