package renderer

import "errors"

var (
	ErrInvalidResolution = errors.New("renderer: resolution must be positive")
	ErrInvalidTileSize   = errors.New("renderer: tile size must be positive")
	ErrNoCamera          = errors.New("renderer: scene has no camera")
	ErrStopped           = errors.New("renderer: renderer has been closed")
)
