package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "world.db")
	store, err := NewSQLStore("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedWorld(t *testing.T, store *SQLStore, worldID string) {
	t.Helper()
	_, err := store.db.Exec(
		`INSERT INTO world_saves (id, owner_account_id, name, seed, world_data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		worldID, "owner-1", "Test World", "seed-1", "{}", "2026-01-01T00:00:00Z", "2026-01-01T00:00:00Z")
	require.NoError(t, err)
}

func TestNewSQLStore_CreatesSchema(t *testing.T) {
	store := newTestStore(t)
	var count int
	err := store.db.Get(&count, "SELECT count(*) FROM sqlite_master WHERE type='table' AND name IN ('world_saves','characters')")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGetWorld_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetWorld(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetWorld_Found(t *testing.T) {
	store := newTestStore(t)
	seedWorld(t, store, "world-1")

	row, err := store.GetWorld(context.Background(), "world-1")
	require.NoError(t, err)
	assert.Equal(t, "world-1", row.ID)
	assert.Equal(t, "owner-1", row.OwnerAccountID)
	assert.Equal(t, "Test World", row.Name)
}

func TestCreateAndGetCharacter(t *testing.T) {
	store := newTestStore(t)
	seedWorld(t, store, "world-1")

	created, err := store.CreateCharacter(context.Background(), "acct-1", "world-1", "Hero", 5, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, created.X)
	assert.Equal(t, 6, created.Y)

	fetched, err := store.GetCharacter(context.Background(), "acct-1", "world-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "Hero", fetched.Name)
}

func TestGetCharacter_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetCharacter(context.Background(), "acct-1", "world-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAll_CommitsWorldAndPositions(t *testing.T) {
	store := newTestStore(t)
	seedWorld(t, store, "world-1")
	c1, err := store.CreateCharacter(context.Background(), "acct-1", "world-1", "Hero", 0, 0)
	require.NoError(t, err)
	c2, err := store.CreateCharacter(context.Background(), "acct-2", "world-1", "Sidekick", 1, 1)
	require.NoError(t, err)

	err = store.SaveAll(context.Background(), "world-1", []byte(`{"tick":42}`), []CharacterPosition{
		{CharacterID: c1.ID, X: 10, Y: 20},
		{CharacterID: c2.ID, X: 11, Y: 21},
	})
	require.NoError(t, err)

	world, err := store.GetWorld(context.Background(), "world-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tick":42}`, string(world.WorldData))

	fetched1, err := store.GetCharacter(context.Background(), "acct-1", "world-1")
	require.NoError(t, err)
	assert.Equal(t, 10, fetched1.X)
	assert.Equal(t, 20, fetched1.Y)

	fetched2, err := store.GetCharacter(context.Background(), "acct-2", "world-1")
	require.NoError(t, err)
	assert.Equal(t, 11, fetched2.X)
	assert.Equal(t, 21, fetched2.Y)
}

func TestSaveAll_UnknownCharacterStillCommitsWorldData(t *testing.T) {
	store := newTestStore(t)
	seedWorld(t, store, "world-1")

	err := store.SaveAll(context.Background(), "world-1", []byte(`{"tick":1}`), []CharacterPosition{
		{CharacterID: "does-not-exist", X: 1, Y: 1},
	})
	require.NoError(t, err) // UPDATE on a missing row affects zero rows, not an error

	world, err := store.GetWorld(context.Background(), "world-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tick":1}`, string(world.WorldData))
}

func TestSaveAll_NilWorldDataLeavesWorldBlobUntouched(t *testing.T) {
	store := newTestStore(t)
	seedWorld(t, store, "world-1")
	c1, err := store.CreateCharacter(context.Background(), "acct-1", "world-1", "Hero", 0, 0)
	require.NoError(t, err)

	err = store.SaveAll(context.Background(), "world-1", []byte(`{"tick":42}`), nil)
	require.NoError(t, err)

	err = store.SaveAll(context.Background(), "world-1", nil, []CharacterPosition{
		{CharacterID: c1.ID, X: 7, Y: 8},
	})
	require.NoError(t, err)

	world, err := store.GetWorld(context.Background(), "world-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tick":42}`, string(world.WorldData))

	fetched, err := store.GetCharacter(context.Background(), "acct-1", "world-1")
	require.NoError(t, err)
	assert.Equal(t, 7, fetched.X)
	assert.Equal(t, 8, fetched.Y)
}

func TestCharacterUniquePerAccountAndWorld(t *testing.T) {
	store := newTestStore(t)
	seedWorld(t, store, "world-1")

	_, err := store.CreateCharacter(context.Background(), "acct-1", "world-1", "Hero", 0, 0)
	require.NoError(t, err)

	_, err = store.CreateCharacter(context.Background(), "acct-1", "world-1", "Hero Again", 2, 2)
	assert.Error(t, err)
}
