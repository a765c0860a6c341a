package renderer

import (
	"sync"
	"sync/atomic"
)

// TileFunc traces every pixel of a tile once
type TileFunc func(tile *Tile)

// WorkerPool runs sampling iterations over a fixed set of tiles.
//
// Tiles are claimed by atomically decrementing a shared work index that starts
// at len(tiles)-1. A worker that draws a negative index has run out of work and
// parks on a condition variable until the coordinator re-arms the pool. The
// coordinator never blocks on workers: it polls IterationDone (or waits on
// Done) and only touches tiles, buffers and the scene once an iteration is
// complete.
type WorkerPool struct {
	trace      TileFunc
	numWorkers int

	tiles     atomic.Pointer[[]*Tile]
	workIndex atomic.Int64
	remaining atomic.Int64 // Tiles not yet Done in the current iteration

	mu         sync.Mutex
	cond       *sync.Cond
	generation uint64 // Incremented on every Rearm, guarded by mu
	running    atomic.Bool
	started    bool

	wg   sync.WaitGroup
	done chan struct{} // Signalled when the last tile of an iteration completes
}

// NewWorkerPool creates a pool over tiles. numWorkers <= 0 creates a pool
// without goroutines that must be driven through RunSynchronous.
// The first iteration is armed immediately.
func NewWorkerPool(tiles []*Tile, numWorkers int, trace TileFunc) *WorkerPool {
	wp := &WorkerPool{
		trace:      trace,
		numWorkers: max(numWorkers, 0),
		done:       make(chan struct{}, 1),
	}
	wp.cond = sync.NewCond(&wp.mu)
	wp.tiles.Store(&tiles)
	wp.remaining.Store(int64(len(tiles)))
	wp.workIndex.Store(int64(len(tiles) - 1))
	return wp
}

// Start launches the worker goroutines
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return
	}
	wp.started = true
	wp.running.Store(true)

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop wakes every parked worker and waits for all of them to exit.
// Tiles being traced when Stop is called are allowed to finish.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	wp.running.Store(false)
	wp.cond.Broadcast()
	wp.mu.Unlock()

	wp.wg.Wait()
}

// Synchronous reports whether the pool has no worker goroutines
func (wp *WorkerPool) Synchronous() bool {
	return wp.numWorkers == 0
}

// NumWorkers returns the number of worker goroutines
func (wp *WorkerPool) NumWorkers() int {
	return wp.numWorkers
}

// Tiles returns the tiles of the current iteration
func (wp *WorkerPool) Tiles() []*Tile {
	return *wp.tiles.Load()
}

// Done returns a channel that receives a value when an iteration completes
func (wp *WorkerPool) Done() <-chan struct{} {
	return wp.done
}

// IterationDone reports whether every tile has been claimed and traced
func (wp *WorkerPool) IterationDone() bool {
	return wp.workIndex.Load() < 0 && wp.remaining.Load() == 0
}

// AllTilesDone checks every tile's state. The coordinator relies on
// IterationDone; this scan is for inspection and tests.
func (wp *WorkerPool) AllTilesDone() bool {
	for _, tile := range wp.Tiles() {
		if tile.State() != TileDone {
			return false
		}
	}
	return true
}

// Rearm starts a new iteration over tiles, which replaces the current tile
// set when non-nil. Must only be called once IterationDone reports true.
func (wp *WorkerPool) Rearm(tiles []*Tile) {
	if tiles == nil {
		tiles = wp.Tiles()
	}
	for _, tile := range tiles {
		tile.setState(TileToDo)
	}

	// Drop a completion signal nobody waited for
	select {
	case <-wp.done:
	default:
	}

	// Publish tiles before the index so a worker that claims an index sees them
	wp.tiles.Store(&tiles)
	wp.remaining.Store(int64(len(tiles)))
	wp.workIndex.Store(int64(len(tiles) - 1))

	wp.mu.Lock()
	wp.generation++
	wp.cond.Broadcast()
	wp.mu.Unlock()
}

// RunSynchronous traces the remaining tiles of the current iteration on the
// calling goroutine
func (wp *WorkerPool) RunSynchronous() {
	for wp.processNext() {
	}
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	var seen uint64
	for wp.running.Load() {
		if wp.processNext() {
			continue
		}

		// Out of work: park until the coordinator re-arms or stops the pool
		wp.mu.Lock()
		for wp.running.Load() && wp.generation == seen {
			wp.cond.Wait()
		}
		seen = wp.generation
		wp.mu.Unlock()
	}
}

// processNext claims and traces one tile. Returns false when the work index is exhausted.
func (wp *WorkerPool) processNext() bool {
	idx := wp.workIndex.Add(-1) + 1
	if idx < 0 {
		return false
	}

	tiles := wp.Tiles()
	if idx >= int64(len(tiles)) {
		return true
	}

	tile := tiles[idx]
	if !tile.claim() {
		return true
	}

	wp.trace(tile)
	tile.setState(TileDone)

	if wp.remaining.Add(-1) == 0 {
		select {
		case wp.done <- struct{}{}:
		default:
		}
	}
	return true
}
