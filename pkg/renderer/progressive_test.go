package renderer

import (
	"context"
	"testing"
	"time"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
	"github.com/df07/go-interactive-pathtracer/pkg/scene"
)

// constantIntegrator returns the same radiance for every ray
type constantIntegrator struct {
	color core.Vec3
}

func (ci constantIntegrator) RayColor(ray core.Ray, sc *scene.Scene, sampler core.Sampler) core.Vec3 {
	return ci.color
}

// skyIntegrator returns white for rays pointing up and black otherwise
type skyIntegrator struct{}

func (skyIntegrator) RayColor(ray core.Ray, sc *scene.Scene, sampler core.Sampler) core.Vec3 {
	if ray.Direction.Y > 0 {
		return core.NewVec3(1, 1, 1)
	}
	return core.Vec3{}
}

func newTestRenderer(t *testing.T, width, height int, config Config) (*Renderer, *scene.Scene) {
	t.Helper()
	sc := scene.NewScene("test", scene.NewDefaultCamera(width, height), nil)
	r, err := NewRenderer(sc, config)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return r, sc
}

func syncConfig(target int) Config {
	config := DefaultConfig()
	config.TileSize = 4
	config.Synchronous = true
	config.TargetSamples = target
	return config
}

func TestNewRenderer_Errors(t *testing.T) {
	sc := scene.NewScene("no camera", nil, nil)
	if _, err := NewRenderer(sc, DefaultConfig()); err != ErrNoCamera {
		t.Errorf("Expected %v, got %v", ErrNoCamera, err)
	}

	sc = scene.NewScene("test", scene.NewDefaultCamera(8, 8), nil)
	config := DefaultConfig()
	config.TileSize = 0
	if _, err := NewRenderer(sc, config); err != ErrInvalidTileSize {
		t.Errorf("Expected %v, got %v", ErrInvalidTileSize, err)
	}

	r, _ := NewRenderer(sc, DefaultConfig())
	if err := r.Resize(0, 10); err != ErrInvalidResolution {
		t.Errorf("Expected %v, got %v", ErrInvalidResolution, err)
	}
}

func TestRenderer_ConvergesToTarget(t *testing.T) {
	r, _ := newTestRenderer(t, 8, 4, syncConfig(3))
	r.integrator = constantIntegrator{color: core.NewVec3(0.25, 0.25, 0.25)}

	if r.Update() {
		t.Error("Expected Update before Start to do nothing")
	}
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	presented := 0
	for i := 0; i < 10 && !r.Finished(); i++ {
		if r.Update() {
			presented++
		}
	}

	if !r.Finished() {
		t.Fatal("Expected renderer to reach its target")
	}
	if presented != 3 {
		t.Errorf("Expected 3 frames presented, got %d", presented)
	}
	if n := r.SampleCount(); n != 3 {
		t.Errorf("Expected 3 samples, got %d", n)
	}

	// Further updates keep the renderer idle
	if r.Update() {
		t.Error("Expected no frame once the target is reached")
	}

	// sqrt(0.25) = 0.5
	frame := r.Frame()
	if got := frame.RGBAAt(3, 2).R; got != 128 {
		t.Errorf("Expected pixel value 128, got %d", got)
	}
}

func TestRenderer_FrameRowsAreFlipped(t *testing.T) {
	r, _ := newTestRenderer(t, 4, 4, syncConfig(1))
	r.integrator = skyIntegrator{}
	r.Start()
	defer r.Close()

	if !r.Update() {
		t.Fatal("Expected a frame")
	}

	frame := r.Frame()
	if got := frame.RGBAAt(0, 0).R; got != 255 {
		t.Errorf("Expected top row to be white, got %d", got)
	}
	if got := frame.RGBAAt(0, 3).R; got != 0 {
		t.Errorf("Expected bottom row to be black, got %d", got)
	}
}

func TestRenderer_SceneEditRestartsSampling(t *testing.T) {
	r, sc := newTestRenderer(t, 8, 8, syncConfig(0))
	r.integrator = constantIntegrator{color: core.NewVec3(1, 1, 1)}
	r.Start()
	defer r.Close()

	for i := 0; i < 4; i++ {
		r.Update()
	}
	if r.sampleCount != 5 {
		t.Fatalf("Expected sample count 5, got %d", r.sampleCount)
	}

	sc.AddPrimitive(scene.NewSphere("ball", core.NewVec3(0.5, 0.5, 0.5), 0.2, scene.NewDiffuse(core.NewVec3(1, 0, 0))))
	r.Update()

	if r.sampleCount != 1 {
		t.Errorf("Expected sample count 1 after restart, got %d", r.sampleCount)
	}
	for i, c := range r.sampleBuffer {
		if !c.IsZero() {
			t.Fatalf("Expected cleared sample buffer, pixel %d is %v", i, c)
		}
	}
	if got := len(sc.Primitives()); got != 1 {
		t.Errorf("Expected 1 primitive after restart, got %d", got)
	}
	if sc.HasPending() {
		t.Error("Expected pending edits to be applied")
	}

	// Accumulation resumes from one sample
	r.Update()
	if stats := r.Stats(); stats.Samples != 1 {
		t.Errorf("Expected 1 sample after restart, got %d", stats.Samples)
	}
}

func TestRenderer_RestartWhileIdle(t *testing.T) {
	r, sc := newTestRenderer(t, 4, 4, syncConfig(2))
	r.integrator = constantIntegrator{color: core.NewVec3(1, 1, 1)}
	r.Start()
	defer r.Close()

	for i := 0; i < 5; i++ {
		r.Update()
	}
	if !r.Finished() {
		t.Fatal("Expected renderer to be finished")
	}

	sc.RotateCamera(0.1, 0)
	if r.Finished() {
		t.Error("Expected queued camera edit to keep the renderer busy")
	}
	r.Update()
	if r.Finished() {
		t.Error("Expected camera edit to restart rendering")
	}
	if r.sampleCount != 1 {
		t.Errorf("Expected sample count 1, got %d", r.sampleCount)
	}
}

func TestRenderer_Resize(t *testing.T) {
	r, sc := newTestRenderer(t, 8, 8, syncConfig(0))
	r.integrator = constantIntegrator{color: core.NewVec3(1, 1, 1)}
	r.Start()
	defer r.Close()

	r.Update()
	if err := r.Resize(10, 6); err != nil {
		t.Fatal(err)
	}
	r.Update()

	if len(r.sampleBuffer) != 60 {
		t.Errorf("Expected sample buffer of 60 pixels, got %d", len(r.sampleBuffer))
	}
	if w, h := sc.Camera.Resolution(); w != 10 || h != 6 {
		t.Errorf("Expected camera resolution 10x6, got %dx%d", w, h)
	}
	// 10x6 with 4 pixel tiles is 3x2 tiles
	if got := len(r.pool.Tiles()); got != 6 {
		t.Errorf("Expected 6 tiles, got %d", got)
	}

	r.Update()
	bounds := r.Frame().Bounds()
	if bounds.Dx() != 10 || bounds.Dy() != 6 {
		t.Errorf("Expected 10x6 frame, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestRenderer_Pick(t *testing.T) {
	sc := scene.NewScene("pick", scene.NewDefaultCamera(9, 9), nil)
	sc.Add(scene.NewSphere("ball", core.NewVec3(0.5, 0.5, 1), 0.2, scene.NewDiffuse(core.NewVec3(1, 1, 1))))

	r, err := NewRenderer(sc, syncConfig(1))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		x, y     int
		expected int
		hit      bool
	}{
		{"center", 4, 4, 0, true},
		{"corner", 0, 0, -1, false},
		{"out of range", 9, 4, -1, false},
		{"negative", -1, 4, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, hit := r.Pick(tt.x, tt.y)
			if hit != tt.hit {
				t.Fatalf("Expected hit %v, got %v", tt.hit, hit)
			}
			if hit && idx != tt.expected {
				t.Errorf("Expected index %d, got %d", tt.expected, idx)
			}
		})
	}
}

func TestRenderer_RenderProgressiveWithWorkers(t *testing.T) {
	config := DefaultConfig()
	config.TileSize = 8
	config.NumWorkers = 4
	config.TargetSamples = 5

	r, _ := newTestRenderer(t, 40, 24, config)
	r.integrator = constantIntegrator{color: core.NewVec3(0.25, 0.25, 0.25)}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	frames, errs := r.RenderProgressive(ctx, RenderOptions{StopAtTarget: true})

	var last FrameResult
	received := 0
	for frame := range frames {
		last = frame
		received++
	}

	if err := <-errs; err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if received == 0 {
		t.Fatal("Expected at least one frame")
	}
	if !last.IsLast {
		t.Error("Expected final frame to be marked last")
	}
	if last.Stats.Samples != 5 {
		t.Errorf("Expected 5 samples, got %d", last.Stats.Samples)
	}
	if last.Stats.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", last.Stats.Workers)
	}
	if got := last.Image.RGBAAt(20, 12).G; got != 128 {
		t.Errorf("Expected pixel value 128, got %d", got)
	}
}

func TestRenderer_RenderProgressiveCancel(t *testing.T) {
	config := DefaultConfig()
	config.NumWorkers = 2

	r, _ := newTestRenderer(t, 16, 16, config)
	r.integrator = constantIntegrator{color: core.NewVec3(1, 1, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	frames, errs := r.RenderProgressive(ctx, RenderOptions{})

	<-frames
	cancel()

	for range frames {
	}
	if err := <-errs; err != context.Canceled {
		t.Errorf("Expected %v, got %v", context.Canceled, err)
	}
}

// renderCornell traces the cornell preset at 8x8 for the given number of
// samples and returns the displayed channel values in [0, 1].
func renderCornell(t *testing.T, samples int) []float64 {
	t.Helper()
	sc, err := scene.NewPreset("cornell", 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewRenderer(sc, syncConfig(samples))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	for i := 0; i < samples+10 && !r.Finished(); i++ {
		r.Update()
	}
	if n := r.SampleCount(); n != samples {
		t.Fatalf("Expected %d samples, got %d", samples, n)
	}

	frame := r.Frame()
	values := make([]float64, 0, len(frame.Pix))
	for i, p := range frame.Pix {
		if i%4 == 3 {
			continue
		}
		values = append(values, float64(p)/255)
	}
	return values
}

func TestRenderer_PathTracedAccumulationConverges(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping convergence render in short mode")
	}

	reference := renderCornell(t, 1024)

	meanSquaredError := func(values []float64) float64 {
		sum := 0.0
		for i, v := range values {
			d := v - reference[i]
			sum += d * d
		}
		return sum / float64(len(values))
	}

	previous := -1.0
	for _, samples := range []int{4, 16, 64} {
		mse := meanSquaredError(renderCornell(t, samples))
		if mse <= 0 {
			t.Errorf("%d samples: expected noise relative to the reference, got %v", samples, mse)
		}
		if previous >= 0 && mse >= previous {
			t.Errorf("%d samples: expected error below %v, got %v", samples, previous, mse)
		}
		previous = mse
	}
}
