package renderer

import (
	"image"
	"image/color"
	"math"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
)

// PostProcessConfig controls the conversion from accumulated radiance to display pixels
type PostProcessConfig struct {
	Gamma        float64 // Display gamma, 2.0 matches a square-root curve
	Exposure     float64 // Linear multiplier applied before tone mapping
	ToneMapping  bool    // Apply the ACES filmic curve instead of a hard clamp
	MaxLuminance float64 // Pixels brighter than this are scaled down; 0 disables
}

// DefaultPostProcessConfig returns a plain gamma 2 conversion
func DefaultPostProcessConfig() PostProcessConfig {
	return PostProcessConfig{
		Gamma:    2.0,
		Exposure: 1.0,
	}
}

// ACESFilm applies Narkowicz's fit of the ACES filmic tone curve per channel
func ACESFilm(c core.Vec3) core.Vec3 {
	curve := func(x float64) float64 {
		const a, b, cc, d, e = 2.51, 0.03, 2.43, 0.59, 0.14
		return math.Max(0, math.Min(1, (x*(a*x+b))/(x*(cc*x+d)+e)))
	}
	return core.NewVec3(curve(c.X), curve(c.Y), curve(c.Z))
}

// Process converts a linear radiance value to a display color in [0,1].
// This is the only place radiance is clamped.
func (cfg PostProcessConfig) Process(c core.Vec3) core.Vec3 {
	if math.IsNaN(c.X) || math.IsNaN(c.Y) || math.IsNaN(c.Z) {
		return core.Vec3{}
	}

	if cfg.Exposure > 0 {
		c = c.Multiply(cfg.Exposure)
	}

	if cfg.MaxLuminance > 0 {
		if lum := c.Luminance(); lum > cfg.MaxLuminance {
			c = c.Multiply(cfg.MaxLuminance / lum)
		}
	}

	if cfg.ToneMapping {
		c = ACESFilm(c)
	}

	c = c.Clamp(0, 1)
	if cfg.Gamma > 0 {
		c = c.GammaCorrect(cfg.Gamma)
	}
	return c
}

// ToRGBA converts an accumulation buffer to an image. The buffer is row-major
// with row 0 at the bottom of the picture; scale is applied to every sample
// (1/sampleCount for an average).
func (cfg PostProcessConfig) ToRGBA(buffer []core.Vec3, width, height int, scale float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for j := 0; j < height; j++ {
		row := j * width
		for i := 0; i < width; i++ {
			c := cfg.Process(buffer[row+i].Multiply(scale))
			img.SetRGBA(i, height-1-j, color.RGBA{
				R: toByte(c.X),
				G: toByte(c.Y),
				B: toByte(c.Z),
				A: 255,
			})
		}
	}

	return img
}

func toByte(x float64) uint8 {
	return uint8(255*x + 0.5)
}
