package mapgrid

import (
	"os"
	"path/filepath"
	"testing"

	"tilekeep/pkg/integration"
	"tilekeep/pkg/resilience"
	"tilekeep/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFileSystemCircuitBreaker clears state between tests so a deliberate
// missing-file failure in one test doesn't trip the shared circuit breaker
// for the next.
func resetFileSystemCircuitBreaker() {
	integration.FileSystemExecutor = integration.NewResilientExecutor(
		resilience.FileSystemConfig,
		retry.FileSystemRetryConfig(),
	)
}

func TestNew_RejectsImpassableSpawn(t *testing.T) {
	tiles := []TileType{TileWall, TileGround}
	_, err := New(2, 1, tiles, 0, 0)
	assert.Error(t, err)
}

func TestNew_RejectsOutOfBoundsSpawn(t *testing.T) {
	tiles := []TileType{TileGround, TileGround}
	_, err := New(2, 1, tiles, 5, 5)
	assert.Error(t, err)
}

func TestNew_RejectsMismatchedTileCount(t *testing.T) {
	tiles := []TileType{TileGround}
	_, err := New(2, 2, tiles, 0, 0)
	assert.Error(t, err)
}

func TestModel_InBoundsAndPassable(t *testing.T) {
	tiles := []TileType{TileGround, TileWall, TileGround, TileGround}
	m, err := New(2, 2, tiles, 0, 0)
	require.NoError(t, err)

	assert.True(t, m.InBounds(1, 1))
	assert.False(t, m.InBounds(2, 0))
	assert.False(t, m.InBounds(-1, 0))

	assert.True(t, m.Passable(0, 0))
	assert.False(t, m.Passable(1, 0))
}

func TestLoadYAML(t *testing.T) {
	resetFileSystemCircuitBreaker()
	dir := t.TempDir()
	path := filepath.Join(dir, "map.yaml")
	content := `
width: 2
height: 2
spawn_x: 0
spawn_y: 0
tiles:
  - code: ground
  - code: wall
  - code: ground
  - code: ground
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Width())
	assert.Equal(t, 2, m.Height())
	assert.True(t, m.Passable(0, 0))
	assert.False(t, m.Passable(1, 0))
}

func TestLoadYAML_MissingFile(t *testing.T) {
	resetFileSystemCircuitBreaker()
	_, err := LoadYAML("/nonexistent/path/map.yaml")
	assert.Error(t, err)
}
