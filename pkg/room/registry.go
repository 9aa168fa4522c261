package room

import (
	"context"
	"sync"

	"tilekeep/pkg/mapgrid"
	"tilekeep/pkg/persistence"

	"github.com/sirupsen/logrus"
)

// JoinRequest bundles the parameters RoomRegistry needs to admit a session
// into the room for a world, creating it first if it does not yet exist.
type JoinRequest struct {
	SessionID     string
	AccountID     string
	Email         string
	CharacterName string
}

// Registry is the process-wide directory of live WorldRooms, keyed by
// worldId. It owns no game state, only lookup synchronization: concurrent
// joinOrCreate calls for the same worldId never create two rooms.
type Registry struct {
	mu      sync.Mutex
	rooms   map[string]*WorldRoom
	pending map[string]chan struct{} // closed once the in-flight creation for a key finishes

	mapModel *mapgrid.Model
	store    persistence.Store
	outbox   Outbox
	cfg      Config
	logger   *logrus.Entry
}

// NewRegistry returns an empty registry. mapModel and cfg are shared by
// every room the registry creates; outbox is the transport the registry's
// rooms use to deliver outbound messages.
func NewRegistry(mapModel *mapgrid.Model, store persistence.Store, outbox Outbox, cfg Config) *Registry {
	return &Registry{
		rooms:    make(map[string]*WorldRoom),
		pending:  make(map[string]chan struct{}),
		mapModel: mapModel,
		store:    store,
		outbox:   outbox,
		cfg:      cfg,
		logger:   logrus.WithField("component", "RoomRegistry"),
	}
}

// JoinOrCreate returns the live room for worldID after admitting req's
// session via onJoin, creating the room first if no live room exists yet.
// Concurrent calls for the same worldID serialize on creation; the loser
// of a concurrent cold-open race joins the room the winner created rather
// than erroring, since either behavior is spec-conformant as long as it
// is deterministic.
func (reg *Registry) JoinOrCreate(ctx context.Context, worldID string, req JoinRequest) (*WorldRoom, error) {
	for {
		reg.mu.Lock()
		if r, ok := reg.rooms[worldID]; ok {
			reg.mu.Unlock()
			if err := r.OnJoin(ctx, req.SessionID, req.AccountID, req.Email, req.CharacterName); err != nil {
				return nil, err
			}
			return r, nil
		}

		if wait, inFlight := reg.pending[worldID]; inFlight {
			reg.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		done := make(chan struct{})
		reg.pending[worldID] = done
		reg.mu.Unlock()

		r, err := reg.create(ctx, worldID)

		reg.mu.Lock()
		delete(reg.pending, worldID)
		if err == nil {
			reg.rooms[worldID] = r
		}
		close(done)
		reg.mu.Unlock()

		if err != nil {
			return nil, err
		}

		r.Start()
		if err := r.OnJoin(ctx, req.SessionID, req.AccountID, req.Email, req.CharacterName); err != nil {
			// A rejected first join (ErrNotOwner, ErrRoomFull, ErrJoinFailed)
			// must tear the room down rather than leave an empty room with
			// its timer loops running forever. dispose removes it from
			// reg.rooms via onDispose.
			r.dispose()
			return nil, err
		}
		return r, nil
	}
}

func (reg *Registry) create(ctx context.Context, worldID string) (*WorldRoom, error) {
	r := New(worldID, reg.mapModel, reg.store, reg.outbox, reg.cfg, reg.Dispose)
	if err := r.OnCreate(ctx); err != nil {
		return nil, err
	}
	reg.logger.WithField("worldId", worldID).Info("room created")
	return r, nil
}

// Dispose removes worldID's entry. Called by a WorldRoom when it
// transitions to Disposing.
func (reg *Registry) Dispose(worldID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, worldID)
	reg.logger.WithField("worldId", worldID).Info("room removed from registry")
}

// Lookup returns the live room for worldID, if any, without joining.
func (reg *Registry) Lookup(worldID string) (*WorldRoom, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[worldID]
	return r, ok
}

// Len reports how many rooms are currently live. Used by health/metrics
// reporting.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}
