package renderer

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitIteration(t *testing.T, wp *WorkerPool) {
	t.Helper()
	select {
	case <-wp.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for iteration to complete")
	}
	if !wp.IterationDone() {
		t.Fatal("Expected IterationDone after completion signal")
	}
}

func TestWorkerPool_EachTileOncePerIteration(t *testing.T) {
	tiles, err := NewTileGrid(200, 130, 16)
	if err != nil {
		t.Fatal(err)
	}

	counts := make([]atomic.Int32, len(tiles))
	wp := NewWorkerPool(tiles, 4, func(tile *Tile) {
		counts[tile.ID].Add(1)
	})
	wp.Start()
	defer wp.Stop()

	for iteration := 1; iteration <= 5; iteration++ {
		waitIteration(t, wp)

		if !wp.AllTilesDone() {
			t.Fatalf("Iteration %d: expected all tiles done", iteration)
		}
		for i := range counts {
			if got := counts[i].Load(); got != int32(iteration) {
				t.Fatalf("Iteration %d: expected tile %d traced %d times, got %d", iteration, i, iteration, got)
			}
		}

		wp.Rearm(nil)
	}
}

func TestWorkerPool_Synchronous(t *testing.T) {
	tiles, _ := NewTileGrid(64, 64, 16)

	traced := 0
	wp := NewWorkerPool(tiles, 0, func(tile *Tile) { traced++ })
	if !wp.Synchronous() {
		t.Fatal("Expected pool without workers to be synchronous")
	}

	wp.Start()
	if wp.IterationDone() {
		t.Fatal("Expected first iteration to be armed")
	}

	wp.RunSynchronous()
	if !wp.IterationDone() || !wp.AllTilesDone() {
		t.Error("Expected iteration to be complete after RunSynchronous")
	}
	if traced != len(tiles) {
		t.Errorf("Expected %d tiles traced, got %d", len(tiles), traced)
	}

	wp.Rearm(nil)
	wp.RunSynchronous()
	if traced != 2*len(tiles) {
		t.Errorf("Expected %d tiles traced, got %d", 2*len(tiles), traced)
	}
	wp.Stop()
}

func TestWorkerPool_RearmWithNewTiles(t *testing.T) {
	tiles, _ := NewTileGrid(32, 32, 16)

	var traced atomic.Int32
	wp := NewWorkerPool(tiles, 3, func(tile *Tile) { traced.Add(1) })
	wp.Start()
	defer wp.Stop()

	waitIteration(t, wp)

	resized, _ := NewTileGrid(100, 20, 16)
	wp.Rearm(resized)
	waitIteration(t, wp)

	if got := len(wp.Tiles()); got != len(resized) {
		t.Errorf("Expected %d tiles, got %d", len(resized), got)
	}
	if got := traced.Load(); got != int32(len(tiles)+len(resized)) {
		t.Errorf("Expected %d tiles traced, got %d", len(tiles)+len(resized), got)
	}
}

func TestWorkerPool_StopWakesParkedWorkers(t *testing.T) {
	tiles, _ := NewTileGrid(16, 16, 16)
	wp := NewWorkerPool(tiles, 8, func(tile *Tile) {})
	wp.Start()
	waitIteration(t, wp)

	stopped := make(chan struct{})
	go func() {
		wp.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestWorkerPool_StopFinishesInFlightTile(t *testing.T) {
	tiles, _ := NewTileGrid(16, 16, 16)

	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	wp := NewWorkerPool(tiles, 2, func(tile *Tile) {
		close(entered)
		<-release
		finished.Store(true)
	})
	wp.Start()
	<-entered

	stopped := make(chan struct{})
	go func() {
		wp.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a tile was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-stopped
	if !finished.Load() {
		t.Error("Expected in-flight tile to complete")
	}
}
