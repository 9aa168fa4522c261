package room

import (
	"context"
	"sync"

	"tilekeep/pkg/mapgrid"
	"tilekeep/pkg/persistence"

	"github.com/stretchr/testify/require"
	"testing"
)

func perimeterWalledMap(t *testing.T, size int) *mapgrid.Model {
	t.Helper()
	tiles := make([]mapgrid.TileType, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x == 0 || y == 0 || x == size-1 || y == size-1 {
				tiles[y*size+x] = mapgrid.TileWall
			} else {
				tiles[y*size+x] = mapgrid.TileGround
			}
		}
	}
	m, err := mapgrid.New(size, size, tiles, size/2, size/2)
	require.NoError(t, err)
	return m
}

// fakeStore is an in-memory persistence.Store for room tests.
type fakeStore struct {
	mu         sync.Mutex
	worlds     map[string]*persistence.WorldSaveRow
	characters map[string]*persistence.CharacterRow // keyed by accountID+"/"+worldID
	nextID     int
	saveCalls  int
	saved      map[string]persistence.CharacterPosition
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		worlds:     make(map[string]*persistence.WorldSaveRow),
		characters: make(map[string]*persistence.CharacterRow),
		saved:      make(map[string]persistence.CharacterPosition),
	}
}

func (f *fakeStore) addWorld(worldID, ownerAccountID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.worlds[worldID] = &persistence.WorldSaveRow{ID: worldID, OwnerAccountID: ownerAccountID, Name: "Test World"}
}

func (f *fakeStore) GetWorld(ctx context.Context, worldID string) (*persistence.WorldSaveRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.worlds[worldID]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return w, nil
}

func (f *fakeStore) GetCharacter(ctx context.Context, accountID, worldID string) (*persistence.CharacterRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.characters[accountID+"/"+worldID]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) CreateCharacter(ctx context.Context, accountID, worldID, name string, spawnX, spawnY int) (*persistence.CharacterRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := &persistence.CharacterRow{
		ID:        name + "-char",
		AccountID: accountID,
		WorldID:   worldID,
		Name:      name,
		X:         spawnX,
		Y:         spawnY,
	}
	f.characters[accountID+"/"+worldID] = c
	return c, nil
}

func (f *fakeStore) SaveAll(ctx context.Context, worldID string, worldData []byte, positions []persistence.CharacterPosition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	for _, p := range positions {
		f.saved[p.CharacterID] = p
	}
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) saveCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveCalls
}

// fakeOutbox records every message and close call per session.
type fakeOutbox struct {
	mu      sync.Mutex
	sent    map[string][]OutboundMessage
	closed  map[string]int
	reasons map[string]string
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{
		sent:    make(map[string][]OutboundMessage),
		closed:  make(map[string]int),
		reasons: make(map[string]string),
	}
}

func (f *fakeOutbox) Send(sessionID string, msg OutboundMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[sessionID] = append(f.sent[sessionID], msg)
}

func (f *fakeOutbox) Close(sessionID string, code int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed[sessionID] = code
	f.reasons[sessionID] = reason
}

func (f *fakeOutbox) messagesFor(sessionID string) []OutboundMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]OutboundMessage, len(f.sent[sessionID]))
	copy(out, f.sent[sessionID])
	return out
}

func (f *fakeOutbox) closeCodeFor(sessionID string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code, ok := f.closed[sessionID]
	return code, ok
}
