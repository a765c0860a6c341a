package renderer

import (
	"image"
	"sync/atomic"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
)

// TileState is the lifecycle of a tile within one sampling iteration
type TileState int32

const (
	TileToDo TileState = iota
	TileProcessing
	TileDone
)

func (s TileState) String() string {
	switch s {
	case TileToDo:
		return "todo"
	case TileProcessing:
		return "processing"
	case TileDone:
		return "done"
	}
	return "unknown"
}

// Tile represents a rectangular region of the image to be rendered
type Tile struct {
	ID      int                 // Unique tile identifier
	Bounds  image.Rectangle     // Pixel bounds (x0,y0,x1,y1)
	Sampler *core.RandomSampler // Tile-specific random source for reproducible results

	state atomic.Int32
}

// NewTile creates a new tile with the specified bounds
func NewTile(id int, bounds image.Rectangle) *Tile {
	return &Tile{
		ID:      id,
		Bounds:  bounds,
		Sampler: core.NewSeededSampler(int64(id + 42)), // +42 to avoid seed 0
	}
}

// State returns the tile's current lifecycle state
func (t *Tile) State() TileState {
	return TileState(t.state.Load())
}

// claim moves the tile from ToDo to Processing, reporting whether it was ToDo
func (t *Tile) claim() bool {
	return t.state.CompareAndSwap(int32(TileToDo), int32(TileProcessing))
}

func (t *Tile) setState(s TileState) {
	t.state.Store(int32(s))
}

// NewTileGrid creates a grid of tiles covering the entire image
func NewTileGrid(width, height, tileSize int) ([]*Tile, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidResolution
	}
	if tileSize <= 0 {
		return nil, ErrInvalidTileSize
	}

	tilesX := (width + tileSize - 1) / tileSize // Ceiling division
	tilesY := (height + tileSize - 1) / tileSize

	tiles := make([]*Tile, 0, tilesX*tilesY)
	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width) // Don't exceed image bounds
			y1 := min(y0+tileSize, height)

			tiles = append(tiles, NewTile(len(tiles), image.Rect(x0, y0, x1, y1)))
		}
	}

	return tiles, nil
}
