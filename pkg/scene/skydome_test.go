package scene

import (
	"math"
	"testing"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
)

func TestGradientSky(t *testing.T) {
	sky := NewGradientSky(core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1))

	tests := []struct {
		name     string
		dir      core.Vec3
		expected core.Vec3
	}{
		{"Zenith", core.NewVec3(0, 1, 0), core.NewVec3(0, 0, 1)},
		{"Horizon", core.NewVec3(1, 0, 0), core.NewVec3(1, 0, 0)},
		{"Below horizon", core.NewVec3(0, -1, 0), core.NewVec3(1, 0, 0)},
		{"Halfway", core.NewVec3(0, 0.5, 0), core.NewVec3(0.5, 0, 0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sky.Lookup(tt.dir, 0); got.Subtract(tt.expected).Length() > 1e-12 {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestSkydome_PrimaryAndBouncedMultipliers(t *testing.T) {
	sky := NewSkydome(NewGradientSky(core.NewVec3(1, 1, 1), core.NewVec3(1, 1, 1)))
	sky.BackgroundStrength = 2
	sky.Emission = 0.5

	dir := core.NewVec3(0, 1, 0)
	if got := sky.Radiance(dir, true); got != core.NewVec3(2, 2, 2) {
		t.Errorf("Expected primary radiance (2,2,2), got %v", got)
	}
	if got := sky.Radiance(dir, false); got != core.NewVec3(0.5, 0.5, 0.5) {
		t.Errorf("Expected bounced radiance (0.5,0.5,0.5), got %v", got)
	}

	var none *Skydome
	if got := none.Radiance(dir, true); !got.IsZero() {
		t.Errorf("Expected black for missing skydome, got %v", got)
	}
}

func TestDirectionToUV(t *testing.T) {
	tests := []struct {
		name        string
		dir         core.Vec3
		orientation float64
		u, v        float64
	}{
		{"Up", core.NewVec3(0, 1, 0), 0, 0.5, 0},
		{"Down", core.NewVec3(0, -1, 0), 0, 0.5, 1},
		{"+X", core.NewVec3(1, 0, 0), 0, 0.5, 0.5},
		{"-X wraps", core.NewVec3(-1, 0, 0), 0, 0, 0.5},
		{"+Z", core.NewVec3(0, 0, 1), 0, 0.75, 0.5},
		{"Rotated", core.NewVec3(1, 0, 0), 0.25, 0.75, 0.5},
		{"Rotation wraps", core.NewVec3(0, 0, 1), 0.5, 0.25, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, v := DirectionToUV(tt.dir, tt.orientation)
			if math.Abs(u-tt.u) > 1e-9 || math.Abs(v-tt.v) > 1e-9 {
				t.Errorf("Expected (%v, %v), got (%v, %v)", tt.u, tt.v, u, v)
			}
		})
	}
}

func TestEquirectMap_Lookup(t *testing.T) {
	// 2x2 map: top row red/green, bottom row blue/white
	env := NewEquirectMap(2, 2, []core.Vec3{
		core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0),
		core.NewVec3(0, 0, 1), core.NewVec3(1, 1, 1),
	})

	// +Z slightly above the horizon: u = 0.75, upper half
	if got := env.Lookup(core.NewVec3(0, 0.1, 1).Normalize(), 0); got != core.NewVec3(0, 1, 0) {
		t.Errorf("Expected green, got %v", got)
	}
	// -Z slightly below: u = 0.25, lower half
	if got := env.Lookup(core.NewVec3(0, -0.1, -1).Normalize(), 0); got != core.NewVec3(0, 0, 1) {
		t.Errorf("Expected blue, got %v", got)
	}
	// Straight down clamps to the last row
	if got := env.Lookup(core.NewVec3(0, -1, 0), 0); got != core.NewVec3(1, 1, 1) {
		t.Errorf("Expected white, got %v", got)
	}
}
