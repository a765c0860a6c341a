package renderer

import (
	"image"
	"time"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
)

// FrameStats describes the most recently presented frame
type FrameStats struct {
	Width, Height int
	Samples       int           // Samples per pixel accumulated in the frame
	Iterations    int           // Iterations completed since the renderer started
	Restarts      int           // Number of times accumulation was cleared
	Tiles         int           // Tiles per iteration
	Workers       int           // Worker goroutines, 0 when synchronous
	Duration      time.Duration // Time spent on the last iteration
	Elapsed       time.Duration // Time since accumulation was last cleared
	RaysTraced    int64         // Camera rays traced since accumulation was last cleared
}

// RaysPerSecond returns the camera ray throughput of the current accumulation
func (s FrameStats) RaysPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.RaysTraced) / s.Elapsed.Seconds()
}

// CalculateAverageLuminance returns the mean display luminance of img in [0,1]
func CalculateAverageLuminance(img *image.RGBA) float64 {
	bounds := img.Bounds()
	pixels := bounds.Dx() * bounds.Dy()
	if pixels == 0 {
		return 0
	}

	total := 0.0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			total += core.NewVec3(float64(c.R), float64(c.G), float64(c.B)).Multiply(1.0 / 255).Luminance()
		}
	}

	return total / float64(pixels)
}
