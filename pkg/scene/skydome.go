package scene

import (
	"math"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
)

// Environment supplies radiance for rays that leave the scene
type Environment interface {
	// Lookup returns the radiance seen along the unit direction dir.
	// orientation rotates the environment around the vertical axis, in turns.
	Lookup(dir core.Vec3, orientation float64) core.Vec3
}

// GradientSky blends from Bottom at the horizon to Top at the zenith
type GradientSky struct {
	Bottom, Top core.Vec3
}

// NewGradientSky creates a vertical two-color gradient
func NewGradientSky(bottom, top core.Vec3) *GradientSky {
	return &GradientSky{Bottom: bottom, Top: top}
}

// Lookup returns the gradient color; rays below the horizon get Bottom
func (g *GradientSky) Lookup(dir core.Vec3, _ float64) core.Vec3 {
	t := math.Max(dir.Y, 0)
	return g.Bottom.Multiply(1 - t).Add(g.Top.Multiply(t))
}

// EquirectMap is a latitude/longitude environment image in linear radiance
type EquirectMap struct {
	Width, Height int
	Pixels        []core.Vec3 // Row-major, row 0 is the zenith
	Source        string      // File the map was loaded from, if any
}

// NewEquirectMap wraps linear pixel data as an environment
func NewEquirectMap(width, height int, pixels []core.Vec3) *EquirectMap {
	return &EquirectMap{Width: width, Height: height, Pixels: pixels}
}

// DirectionToUV maps a unit direction to equirectangular coordinates in [0,1)x[0,1]
func DirectionToUV(dir core.Vec3, orientation float64) (u, v float64) {
	theta := math.Acos(math.Max(-1, math.Min(1, dir.Y)))
	phi := math.Atan2(dir.Z, dir.X) + math.Pi

	u = phi/(2*math.Pi) + orientation
	u -= math.Floor(u)
	v = theta / math.Pi
	return u, v
}

// Lookup returns the nearest texel along dir
func (e *EquirectMap) Lookup(dir core.Vec3, orientation float64) core.Vec3 {
	if e.Width == 0 || e.Height == 0 {
		return core.Vec3{}
	}

	u, v := DirectionToUV(dir, orientation)

	x := min(int(u*float64(e.Width)), e.Width-1)
	y := min(int(v*float64(e.Height)), e.Height-1)

	return e.Pixels[y*e.Width+x]
}

// Skydome wraps an environment with the multipliers applied on lookup.
// BackgroundStrength scales what the camera sees directly; Emission scales
// what bounced rays pick up as ambient light.
type Skydome struct {
	Source             Environment
	Orientation        float64 // Rotation around the vertical axis, in turns
	Emission           float64
	BackgroundStrength float64
}

// NewSkydome creates a skydome with unit multipliers
func NewSkydome(source Environment) *Skydome {
	return &Skydome{
		Source:             source,
		Emission:           1.0,
		BackgroundStrength: 1.0,
	}
}

// Radiance returns the environment radiance for a ray that missed the scene.
// primary is true for camera rays.
func (s *Skydome) Radiance(dir core.Vec3, primary bool) core.Vec3 {
	if s == nil || s.Source == nil {
		return core.Vec3{}
	}

	radiance := s.Source.Lookup(dir, s.Orientation)
	if primary {
		return radiance.Multiply(s.BackgroundStrength)
	}
	return radiance.Multiply(s.Emission)
}
