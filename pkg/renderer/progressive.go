package renderer

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
	"github.com/df07/go-interactive-pathtracer/pkg/integrator"
	"github.com/df07/go-interactive-pathtracer/pkg/log"
	"github.com/df07/go-interactive-pathtracer/pkg/scene"
)

// Config contains configuration for progressive rendering
type Config struct {
	TileSize      int  // Edge length of the square tiles
	NumWorkers    int  // Number of worker goroutines (0 = use hardware threads)
	TargetSamples int  // Stop accumulating after this many samples per pixel (0 = never)
	Synchronous   bool // Trace on the coordinator goroutine instead of a worker pool
	PostProcess   PostProcessConfig
}

// DefaultConfig returns the interactive defaults
func DefaultConfig() Config {
	return Config{
		TileSize:    16,
		PostProcess: DefaultPostProcessConfig(),
	}
}

// Renderer accumulates path traced samples into a sample buffer, one sample
// per pixel per iteration, and presents the running average.
//
// Update is the coordinator step and must be called from a single goroutine
// (RenderProgressive does this). Scene edits, Resize and RestartSampling may be
// called from any goroutine; they take effect at the next iteration boundary.
type Renderer struct {
	scene      *scene.Scene
	config     Config
	integrator integrator.Integrator
	logger     log.Logger

	// Owned by the coordinator; workers only touch them while an iteration is armed
	width, height int
	sampleBuffer  []core.Vec3
	sampleCount   int // Samples in the buffer once the armed iteration completes
	pool          *WorkerPool
	armed         bool
	started       bool
	closed        bool
	iterations    int
	restarts      int
	iterStart     time.Time
	accumStart    time.Time
	raysTraced    atomic.Int64

	// Held for writing while the scene is edited at an iteration boundary
	sceneMu sync.RWMutex

	mu            sync.Mutex // Guards the fields below
	resizePending bool
	pendingWidth  int
	pendingHeight int
	clearPending  bool
	frame         *image.RGBA
	stats         FrameStats

	ready chan struct{} // Always closed, wakes the synchronous render loop
}

// NewRenderer creates a renderer for the scene at the camera's resolution
func NewRenderer(sc *scene.Scene, config Config) (*Renderer, error) {
	if sc.Camera == nil {
		return nil, ErrNoCamera
	}
	if config.TileSize <= 0 {
		return nil, ErrInvalidTileSize
	}

	width, height := sc.Camera.Resolution()
	tiles, err := NewTileGrid(width, height, config.TileSize)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		scene:        sc,
		config:       config,
		integrator:   integrator.NewPathTracingIntegrator(sc.SamplingConfig),
		logger:       log.New("renderer"),
		width:        width,
		height:       height,
		sampleBuffer: make([]core.Vec3, width*height),
		sampleCount:  1,
		ready:        make(chan struct{}),
	}
	close(r.ready)

	r.pool = NewWorkerPool(tiles, r.workerCount(), r.traceTile)
	return r, nil
}

func (r *Renderer) workerCount() int {
	if r.config.Synchronous {
		return 0
	}
	if r.config.NumWorkers > 0 {
		return r.config.NumWorkers
	}
	if n := HardwareThreads(); n > 0 {
		return n
	}
	r.logger.Warning("Could not determine hardware threads, rendering synchronously")
	return 0
}

// Start launches the workers and begins the first iteration
func (r *Renderer) Start() error {
	if r.closed {
		return ErrStopped
	}
	if r.started {
		return nil
	}

	r.started = true
	r.armed = true
	r.iterStart = time.Now()
	r.accumStart = r.iterStart
	r.pool.Start()

	r.logger.Infof("Rendering %dx%d with %d tiles and %d workers",
		r.width, r.height, len(r.pool.Tiles()), r.pool.NumWorkers())
	return nil
}

// Close stops the workers. Tiles in flight are finished first.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.pool.Stop()
}

// RestartSampling discards the accumulated samples at the next iteration boundary
func (r *Renderer) RestartSampling() {
	r.mu.Lock()
	r.clearPending = true
	r.mu.Unlock()
}

// Resize changes the output resolution at the next iteration boundary
func (r *Renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidResolution
	}

	r.mu.Lock()
	r.resizePending = true
	r.pendingWidth = width
	r.pendingHeight = height
	r.mu.Unlock()
	return nil
}

// Update performs one coordinator step without blocking on the workers. When
// the armed iteration has completed it presents the averaged frame, applies
// pending resizes, scene edits and restarts, and re-arms the pool unless the
// target sample count has been reached. Returns true if a frame was presented.
func (r *Renderer) Update() bool {
	if !r.started || r.closed {
		return false
	}

	if r.scene.ConsumeUpdated() {
		r.RestartSampling()
	}

	if r.armed && r.pool.Synchronous() {
		r.pool.RunSynchronous()
	}
	if r.armed && !r.pool.IterationDone() {
		return false
	}

	presented := false
	if r.armed {
		r.armed = false
		r.iterations++
		r.present()
		r.sampleCount++
		presented = true
	}

	r.mu.Lock()
	resize, restart := r.resizePending, r.clearPending
	width, height := r.pendingWidth, r.pendingHeight
	r.resizePending, r.clearPending = false, false
	r.mu.Unlock()

	var tiles []*Tile
	if resize || restart {
		r.sceneMu.Lock()
		if resize {
			tiles = r.applyResize(width, height)
		}
		r.clearSamples()
		r.sceneMu.Unlock()
	}

	if r.wantsMore() {
		r.pool.Rearm(tiles)
		r.armed = true
		r.iterStart = time.Now()
	} else if presented {
		r.logger.Noticef("Reached %d samples per pixel", r.config.TargetSamples)
	}

	return presented
}

func (r *Renderer) wantsMore() bool {
	return r.config.TargetSamples <= 0 || r.sampleCount <= r.config.TargetSamples
}

// Finished reports whether the target sample count has been reached and no
// restart or scene edit is pending. Always false without a target.
func (r *Renderer) Finished() bool {
	if r.armed || r.wantsMore() || r.scene.HasPending() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.resizePending && !r.clearPending
}

func (r *Renderer) applyResize(width, height int) []*Tile {
	tiles, err := NewTileGrid(width, height, r.config.TileSize)
	if err != nil {
		r.logger.Errorf("Ignoring resize to %dx%d: %v", width, height, err)
		return nil
	}

	r.logger.Infof("Resizing from %dx%d to %dx%d (%d tiles)", r.width, r.height, width, height, len(tiles))

	r.width, r.height = width, height
	r.sampleBuffer = make([]core.Vec3, width*height)
	r.scene.Camera.SetupVirtualPlane(width, height)
	return tiles
}

// clearSamples applies queued scene edits and restarts accumulation
func (r *Renderer) clearSamples() {
	r.scene.ApplyPending()

	if pt, ok := r.integrator.(*integrator.PathTracingIntegrator); ok && pt.Config() != r.scene.SamplingConfig {
		r.integrator = integrator.NewPathTracingIntegrator(r.scene.SamplingConfig)
	}

	clear(r.sampleBuffer)
	r.sampleCount = 1
	r.restarts++
	r.raysTraced.Store(0)
	r.accumStart = time.Now()

	r.logger.Debugf("Restarted sampling (%d primitives)", len(r.scene.Primitives()))
}

func (r *Renderer) present() {
	now := time.Now()
	img := r.config.PostProcess.ToRGBA(r.sampleBuffer, r.width, r.height, 1/float64(r.sampleCount))

	stats := FrameStats{
		Width:      r.width,
		Height:     r.height,
		Samples:    r.sampleCount,
		Iterations: r.iterations,
		Restarts:   r.restarts,
		Tiles:      len(r.pool.Tiles()),
		Workers:    r.pool.NumWorkers(),
		Duration:   now.Sub(r.iterStart),
		Elapsed:    now.Sub(r.accumStart),
		RaysTraced: r.raysTraced.Load(),
	}

	r.logger.Debugf("Sample %d completed in %v", stats.Samples, stats.Duration)

	r.mu.Lock()
	r.frame = img
	r.stats = stats
	r.mu.Unlock()
}

// traceTile adds one sample to every pixel of the tile
func (r *Renderer) traceTile(tile *Tile) {
	sc := r.scene
	for y := tile.Bounds.Min.Y; y < tile.Bounds.Max.Y; y++ {
		row := y * r.width
		for x := tile.Bounds.Min.X; x < tile.Bounds.Max.X; x++ {
			ray := sc.Camera.GetRay(x, y, tile.Sampler)
			c := r.integrator.RayColor(ray, sc, tile.Sampler)
			r.sampleBuffer[row+x] = r.sampleBuffer[row+x].Add(c)
		}
	}
	r.raysTraced.Add(int64(tile.Bounds.Dx() * tile.Bounds.Dy()))
}

// Frame returns the most recently presented image, or nil before the first
// iteration completes. Row 0 is the top of the picture.
func (r *Renderer) Frame() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

// Stats returns statistics for the most recently presented frame
func (r *Renderer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// SampleCount returns the samples per pixel in the most recently presented frame
func (r *Renderer) SampleCount() int {
	return r.Stats().Samples
}

// Pick returns the index of the primitive visible at display pixel (x, y),
// where y = 0 is the top row.
func (r *Renderer) Pick(x, y int) (int, bool) {
	r.sceneMu.RLock()
	defer r.sceneMu.RUnlock()

	width, height := r.scene.Camera.Resolution()
	if x < 0 || y < 0 || x >= width || y >= height {
		return -1, false
	}

	ray := r.scene.Camera.GetRay(x, height-1-y, nil)
	return integrator.Pick(r.scene, ray)
}

// ViewScene runs fn with the scene locked against edits. fn must not modify it.
func (r *Renderer) ViewScene(fn func(sc *scene.Scene)) {
	r.sceneMu.RLock()
	defer r.sceneMu.RUnlock()
	fn(r.scene)
}

// Scene returns the scene being rendered. Use its queued edit methods to modify it.
func (r *Renderer) Scene() *scene.Scene {
	return r.scene
}

// FrameResult is a presented frame
type FrameResult struct {
	Image  *image.RGBA
	Stats  FrameStats
	IsLast bool // Target sample count reached
}

// RenderOptions configures RenderProgressive
type RenderOptions struct {
	StopAtTarget bool          // Close the channels once TargetSamples is reached
	PollInterval time.Duration // How often to check for edits while idle
}

// RenderProgressive runs the coordinator loop on its own goroutine and
// delivers every presented frame. Frames are dropped if the consumer falls
// behind. The renderer is closed when ctx is cancelled or the loop ends.
func (r *Renderer) RenderProgressive(ctx context.Context, options RenderOptions) (<-chan FrameResult, <-chan error) {
	frameChan := make(chan FrameResult, 1)
	errChan := make(chan error, 1)

	if options.PollInterval <= 0 {
		options.PollInterval = 10 * time.Millisecond
	}

	go func() {
		defer close(frameChan)
		defer close(errChan)
		defer r.Close()

		if err := r.Start(); err != nil {
			errChan <- err
			return
		}

		ticker := time.NewTicker(options.PollInterval)
		defer ticker.Stop()

		for {
			var wake <-chan struct{}
			if r.armed {
				wake = r.pool.Done()
				if r.pool.Synchronous() {
					wake = r.ready
				}
			}

			select {
			case <-ctx.Done():
				r.logger.Info("Rendering cancelled")
				errChan <- ctx.Err()
				return
			case <-wake:
			case <-ticker.C:
			}

			if !r.Update() {
				continue
			}

			finished := r.Finished()
			result := FrameResult{Image: r.Frame(), Stats: r.Stats(), IsLast: finished}

			select {
			case frameChan <- result:
			default:
				if finished && options.StopAtTarget {
					// Make sure the last frame is delivered
					select {
					case frameChan <- result:
					case <-ctx.Done():
						return
					}
				}
			}

			if finished && options.StopAtTarget {
				return
			}
		}
	}()

	return frameChan, errChan
}
