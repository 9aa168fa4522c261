package persistence

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("persistence: not found")

// WorldSaveRow is the world_saves row shape the room consumes.
type WorldSaveRow struct {
	ID             string
	OwnerAccountID string
	Name           string
	Seed           string
	WorldData      []byte // opaque JSON
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CharacterRow is the characters row shape the room consumes. Uniqueness of
// (AccountID, WorldID) is enforced by the schema.
type CharacterRow struct {
	ID        string
	AccountID string
	WorldID   string
	Name      string
	X         int
	Y         int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CharacterPosition is one element of the SaveAll batch: a character's
// authoritative position at the moment of save.
type CharacterPosition struct {
	CharacterID string
	X, Y        int
}

// Store is the Persistence port the room runtime consumes. Implementations
// must make SaveAll atomic: either every character position and the world
// data blob commit together, or none do.
type Store interface {
	GetWorld(ctx context.Context, worldID string) (*WorldSaveRow, error)
	GetCharacter(ctx context.Context, accountID, worldID string) (*CharacterRow, error)
	CreateCharacter(ctx context.Context, accountID, worldID, name string, spawnX, spawnY int) (*CharacterRow, error)
	SaveAll(ctx context.Context, worldID string, worldData []byte, positions []CharacterPosition) error
	Close() error
}
