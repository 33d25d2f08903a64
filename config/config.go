// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	World     WorldConfig     `yaml:"world"`
	Grain     GrainConfig     `yaml:"grain"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Sim       SimConfig       `yaml:"sim"`
	Spawn     SpawnConfig     `yaml:"spawn"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	TargetFPS int    `yaml:"target_fps"`
	Title     string `yaml:"title"`
}

// WorldConfig holds the simulation plane and grid resolution.
// Width and height default to the screen size when zero.
type WorldConfig struct {
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	CellSize float64 `yaml:"cell_size"`

	// Startup lattice: InitialCols x InitialRows grains at the given spacing.
	InitialCols     int     `yaml:"initial_cols"`
	InitialRows     int     `yaml:"initial_rows"`
	InitialSpacingX float64 `yaml:"initial_spacing_x"`
	InitialSpacingY float64 `yaml:"initial_spacing_y"`
}

// GrainConfig holds per-grain shape settings shared by every grain.
type GrainConfig struct {
	Radius float64 `yaml:"radius"`
	Sides  int     `yaml:"sides"` // perimeter vertices of the drawn disc
	Color  string  `yaml:"color"` // hex RGB, e.g. "00e430"
}

// PhysicsConfig holds integration and collision constants.
type PhysicsConfig struct {
	Damping   float64 `yaml:"damping"`
	Gravity   float64 `yaml:"gravity"`
	Jostle    float64 `yaml:"jostle"`     // vy lost per horizontal separation
	TimeScale float64 `yaml:"time_scale"` // simulation time units per wall second
	MaxDT     float64 `yaml:"max_dt"`     // upper bound on a single step, in simulation units
}

// SimConfig holds scheduler parameters.
type SimConfig struct {
	Workers           int `yaml:"workers"`            // 0 = GOMAXPROCS
	ParallelThreshold int `yaml:"parallel_threshold"` // below this, update inline
}

// SpawnConfig holds pointer-driven spawn parameters.
type SpawnConfig struct {
	Rate       float64 `yaml:"rate"`        // grains per wall second while the button is held
	Jitter     float64 `yaml:"jitter"`      // horizontal brush half-width; 0 spawns exactly at the pointer
	NoiseSpeed float64 `yaml:"noise_speed"` // how fast the brush offset drifts
	Seed       int64   `yaml:"seed"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	LogInterval         float64 `yaml:"log_interval"` // seconds between perf log lines; 0 disables
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	WorldW32  float32 // Effective world width as float32
	WorldH32  float32 // Effective world height as float32
	CellSize  float32
	Radius32  float32
	ColorRGBA [4]uint8
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns a fresh copy of the embedded defaults.
func Defaults() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are broken: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	switch {
	case c.Derived.WorldW32 <= 0 || c.Derived.WorldH32 <= 0:
		return fmt.Errorf("%w: world size must be positive, got %gx%g", ErrInvalid, c.Derived.WorldW32, c.Derived.WorldH32)
	case c.World.CellSize <= 0:
		return fmt.Errorf("%w: world.cell_size must be > 0, got %g", ErrInvalid, c.World.CellSize)
	case c.Grain.Radius <= 0:
		return fmt.Errorf("%w: grain.radius must be > 0, got %g", ErrInvalid, c.Grain.Radius)
	case c.World.CellSize < 2*c.Grain.Radius:
		// The 3x3 neighbor block only covers contacts when a cell spans a diameter.
		return fmt.Errorf("%w: world.cell_size %g is smaller than a grain diameter %g", ErrInvalid, c.World.CellSize, 2*c.Grain.Radius)
	case c.Sim.Workers < 0:
		return fmt.Errorf("%w: sim.workers must be >= 0, got %d", ErrInvalid, c.Sim.Workers)
	case c.Spawn.Rate < 0:
		return fmt.Errorf("%w: spawn.rate must be >= 0, got %g", ErrInvalid, c.Spawn.Rate)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	// World dimensions default to screen size if not specified
	worldW := c.World.Width
	if worldW == 0 {
		worldW = float64(c.Screen.Width)
	}
	worldH := c.World.Height
	if worldH == 0 {
		worldH = float64(c.Screen.Height)
	}
	c.Derived.WorldW32 = float32(worldW)
	c.Derived.WorldH32 = float32(worldH)
	c.Derived.CellSize = float32(c.World.CellSize)
	c.Derived.Radius32 = float32(c.Grain.Radius)

	if c.Grain.Sides < 3 {
		c.Grain.Sides = 3
	}

	c.Derived.ColorRGBA = [4]uint8{0, 228, 48, 255}
	var r, g, b uint8
	if _, err := fmt.Sscanf(c.Grain.Color, "%02x%02x%02x", &r, &g, &b); err == nil {
		c.Derived.ColorRGBA = [4]uint8{r, g, b, 255}
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
