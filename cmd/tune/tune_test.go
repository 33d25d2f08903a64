package main

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/grains/config"
)

func TestParamVectorRoundTrip(t *testing.T) {
	pv := NewParamVector()
	raw := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(raw[i]-back[i]) > 1e-12 {
			t.Errorf("%s: %f -> %f", pv.Specs[i].Name, raw[i], back[i])
		}
	}
}

func TestParamVectorApplyClamps(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Defaults()
	pv.ApplyToConfig(cfg, []float64{2, -1, 0.1})

	got := pv.ExtractFromConfig(cfg)
	want := []float64{0.999, 0.3, 0.1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s = %f, want %f", pv.Specs[i].Name, got[i], want[i])
		}
	}
}

func TestDefaultsMatchConfig(t *testing.T) {
	pv := NewParamVector()
	got := pv.ExtractFromConfig(config.Defaults())
	for i, spec := range pv.Specs {
		if got[i] != spec.Default {
			t.Errorf("%s default %f, config has %f", spec.Path, spec.Default, got[i])
		}
	}
}

func TestEvaluateSmallRun(t *testing.T) {
	cfg := config.Defaults()
	cfg.World.InitialCols = 8
	cfg.World.InitialRows = 4

	fe := NewFitnessEvaluator(NewParamVector(), 10, 20, []int64{1, 2}, cfg)
	f := fe.Evaluate(NewParamVector().DefaultVector())
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		t.Errorf("fitness = %f, want finite and >= 0", f)
	}
	speed, overlap := fe.LastRun()
	if speed < 0 || overlap < 0 || overlap > 1 {
		t.Errorf("LastRun = (%f, %f)", speed, overlap)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{65 * time.Second, "1m05s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h02m03s"},
	}
	for _, tc := range tests {
		if got := formatDuration(tc.d); got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestChooseBest(t *testing.T) {
	pv := NewParamVector()
	evaluated := []float64{0.98, 1.0, 0.04}
	final := &optimize.Result{Location: optimize.Location{X: []float64{0.5, 0.5, 0.5}}}

	tests := []struct {
		name   string
		best   []float64
		result *optimize.Result
		want   []float64
	}{
		{"best evaluation wins", evaluated, final, evaluated},
		{"falls back to optimizer point", nil, final, pv.Clamp(pv.Denormalize(final.X))},
		{"no result keeps defaults", nil, nil, pv.DefaultVector()},
		{"empty result keeps defaults", nil, &optimize.Result{}, pv.DefaultVector()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := chooseBest(pv, tc.best, tc.result)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("param %d = %f, want %f", i, got[i], tc.want[i])
				}
			}
		})
	}
}
