package gateway

import (
	"context"
	"sync"

	"tilekeep/pkg/authn"
	"tilekeep/pkg/mapgrid"
	"tilekeep/pkg/persistence"
)

func flatMap(size int) *mapgrid.Model {
	tiles := make([]mapgrid.TileType, size*size)
	for i := range tiles {
		tiles[i] = mapgrid.TileGround
	}
	m, err := mapgrid.New(size, size, tiles, size/2, size/2)
	if err != nil {
		panic(err)
	}
	return m
}

type fakeStore struct {
	mu         sync.Mutex
	worlds     map[string]*persistence.WorldSaveRow
	characters map[string]*persistence.CharacterRow
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		worlds:     make(map[string]*persistence.WorldSaveRow),
		characters: make(map[string]*persistence.CharacterRow),
	}
}

func (s *fakeStore) addWorld(worldID, ownerAccountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worlds[worldID] = &persistence.WorldSaveRow{ID: worldID, OwnerAccountID: ownerAccountID}
}

func (s *fakeStore) GetWorld(ctx context.Context, worldID string) (*persistence.WorldSaveRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.worlds[worldID]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return w, nil
}

func (s *fakeStore) GetCharacter(ctx context.Context, accountID, worldID string) (*persistence.CharacterRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[accountID+"/"+worldID]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return c, nil
}

func (s *fakeStore) CreateCharacter(ctx context.Context, accountID, worldID, name string, spawnX, spawnY int) (*persistence.CharacterRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &persistence.CharacterRow{ID: accountID + "-char", AccountID: accountID, WorldID: worldID, Name: name, X: spawnX, Y: spawnY}
	s.characters[accountID+"/"+worldID] = c
	return c, nil
}

func (s *fakeStore) SaveAll(ctx context.Context, worldID string, worldData []byte, positions []persistence.CharacterPosition) error {
	return nil
}

func (s *fakeStore) Close() error { return nil }

type fakeAuth struct {
	claimsByToken map[string]authn.Claims
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{claimsByToken: make(map[string]authn.Claims)}
}

func (a *fakeAuth) issue(token, accountID, email string) {
	a.claimsByToken[token] = authn.Claims{AccountID: accountID, Email: email}
}

func (a *fakeAuth) DecodeToken(token string) (authn.Claims, error) {
	c, ok := a.claimsByToken[token]
	if !ok {
		return authn.Claims{}, authn.ErrInvalidToken
	}
	return c, nil
}
