// Package mapgrid provides the immutable tile grid and the pure movement
// evaluator shared by server authority and client prediction.
package mapgrid

import "fmt"

// Model is an immutable W×H grid of tile codes with a spawn point.
// A Model is built once (via New or LoadYAML) and never mutated for the
// lifetime of the room that owns it.
type Model struct {
	width  int
	height int
	tiles  []TileType // row-major, length width*height
	spawnX int
	spawnY int
}

// New constructs a Model from a row-major tile slice. tiles must have
// exactly width*height entries. The spawn coordinate must be in bounds and
// passable.
func New(width, height int, tiles []TileType, spawnX, spawnY int) (*Model, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("mapgrid: width and height must be positive, got %dx%d", width, height)
	}
	if len(tiles) != width*height {
		return nil, fmt.Errorf("mapgrid: expected %d tiles, got %d", width*height, len(tiles))
	}
	m := &Model{width: width, height: height, tiles: tiles, spawnX: spawnX, spawnY: spawnY}
	if !m.InBounds(spawnX, spawnY) {
		return nil, fmt.Errorf("mapgrid: spawn (%d,%d) out of bounds", spawnX, spawnY)
	}
	if !m.Passable(spawnX, spawnY) {
		return nil, fmt.Errorf("mapgrid: spawn (%d,%d) is not passable", spawnX, spawnY)
	}
	return m, nil
}

// Width returns the grid width.
func (m *Model) Width() int { return m.width }

// Height returns the grid height.
func (m *Model) Height() int { return m.height }

// Spawn returns the map's default spawn coordinate.
func (m *Model) Spawn() (int, int) { return m.spawnX, m.spawnY }

// InBounds reports whether (x, y) lies within the grid.
func (m *Model) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.width && y < m.height
}

// Tile returns the tile code at (x, y). Callers must check InBounds first;
// Tile panics on out-of-range coordinates to surface programmer error early
// rather than silently returning a zero-value tile.
func (m *Model) Tile(x, y int) TileType {
	if !m.InBounds(x, y) {
		panic(fmt.Sprintf("mapgrid: Tile(%d,%d) out of bounds for %dx%d map", x, y, m.width, m.height))
	}
	return m.tiles[y*m.width+x]
}

// Passable reports whether (x, y) is in bounds and its tile is passable.
func (m *Model) Passable(x, y int) bool {
	return m.InBounds(x, y) && m.Tile(x, y).Passable()
}
