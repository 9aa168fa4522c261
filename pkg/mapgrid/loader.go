package mapgrid

import (
	"context"
	"fmt"
	"os"

	"tilekeep/pkg/integration"

	"gopkg.in/yaml.v3"
)

// yamlTile mirrors a single row entry in a map definition file.
type yamlTile struct {
	Code string `yaml:"code"`
}

// yamlMap is the on-disk shape of a map definition, authored by hand or
// generated by a level-design tool.
type yamlMap struct {
	Width  int        `yaml:"width"`
	Height int        `yaml:"height"`
	Tiles  []yamlTile `yaml:"tiles"`
	SpawnX int        `yaml:"spawn_x"`
	SpawnY int        `yaml:"spawn_y"`
}

// LoadYAML reads a map definition from filename and builds a Model from it.
// The read is protected by a circuit breaker and retry policy to tolerate
// transient filesystem hiccups (e.g. the data volume is still mounting),
// matching the resilience wrapping the teacher applies to its own
// configuration loaders.
func LoadYAML(filename string) (*Model, error) {
	var doc yamlMap
	ctx := context.Background()

	err := integration.ExecuteFileSystemOperation(ctx, func(ctx context.Context) error {
		data, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(data, &doc)
	})
	if err != nil {
		return nil, fmt.Errorf("mapgrid: failed to load %s: %w", filename, err)
	}

	if len(doc.Tiles) != doc.Width*doc.Height {
		return nil, fmt.Errorf("mapgrid: %s declares %dx%d but has %d tile entries", filename, doc.Width, doc.Height, len(doc.Tiles))
	}

	tiles := make([]TileType, len(doc.Tiles))
	for i, t := range doc.Tiles {
		tiles[i] = ParseTileType(t.Code)
	}

	return New(doc.Width, doc.Height, tiles, doc.SpawnX, doc.SpawnY)
}
