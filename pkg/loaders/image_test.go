package loaders

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
	"golang.org/x/image/bmp"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	img.Set(1, 0, color.RGBA{R: 255, G: 0, B: 0, A: 255})
	img.Set(0, 1, color.RGBA{R: 0, G: 255, B: 0, A: 255})
	img.Set(1, 1, color.RGBA{R: 0, G: 0, B: 255, A: 255})
	return img
}

func checkPixels(t *testing.T, data *ImageData) {
	t.Helper()

	if data.Width != 2 || data.Height != 2 {
		t.Fatalf("Expected 2x2 image, got %dx%d", data.Width, data.Height)
	}

	expected := []core.Vec3{
		core.NewVec3(1, 1, 1),
		core.NewVec3(1, 0, 0),
		core.NewVec3(0, 1, 0),
		core.NewVec3(0, 0, 1),
	}
	for i, want := range expected {
		if data.Pixels[i].Subtract(want).Length() > 1e-6 {
			t.Errorf("Pixel %d: expected %v, got %v", i, want, data.Pixels[i])
		}
	}
}

// TestLoadImage creates a test PNG and verifies loading
func TestLoadImage(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test.png")

	f, err := os.Create(testFile)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if err := png.Encode(f, testImage()); err != nil {
		f.Close()
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	f.Close()

	data, err := LoadImage(testFile)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if data.Format != "png" {
		t.Errorf("Expected format png, got %q", data.Format)
	}
	checkPixels(t, data)
}

func TestDecodeImage_BMP(t *testing.T) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, testImage()); err != nil {
		t.Fatalf("Failed to encode BMP: %v", err)
	}

	data, err := DecodeImage(&buf)
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if data.Format != "bmp" {
		t.Errorf("Expected format bmp, got %q", data.Format)
	}
	checkPixels(t, data)
}

func TestLoadImage_Errors(t *testing.T) {
	if _, err := LoadImage(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}

	if _, err := DecodeImage(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("Expected error for invalid data")
	}
}

func TestToLinear(t *testing.T) {
	data := &ImageData{
		Width:  3,
		Height: 1,
		Pixels: []core.Vec3{
			core.NewVec3(0, 0, 0),
			core.NewVec3(1, 1, 1),
			core.NewVec3(0.5, 0.5, 0.5),
		},
	}
	data.ToLinear()

	if !data.Pixels[0].IsZero() {
		t.Errorf("Expected black to stay black, got %v", data.Pixels[0])
	}
	if math.Abs(data.Pixels[1].X-1) > 1e-12 {
		t.Errorf("Expected white to stay white, got %v", data.Pixels[1])
	}
	// sRGB 0.5 is roughly 0.214 linear
	if math.Abs(data.Pixels[2].X-0.214) > 1e-3 {
		t.Errorf("Expected ~0.214, got %v", data.Pixels[2].X)
	}
}
