// Package room implements the authoritative simulation for one tile-based
// world: the movement rules, the per-session input queue, the patch-based
// state sync, and the tick scheduler that ties them together.
//
// # Architecture
//
// WorldRoom is the unit of concurrency: one mutex serializes every mutation
// (join, leave, input, tick) for a single world. Registry is the
// process-wide directory of live rooms, keyed by world save ID, and
// serializes concurrent creation so two simultaneous cold-opens of the same
// world land on one room rather than racing to create two.
//
//	registry := room.NewRegistry(mapModel, store, outbox, room.DefaultConfig())
//	wr, err := registry.JoinOrCreate(ctx, worldSaveID, room.JoinRequest{...})
//
// # Tick Loop
//
// Each WorldRoom runs three independent tickers:
//
//   - a 50ms simulation tick that drains queued input, evaluates movement,
//     and flushes a State patch to every session via Outbox
//   - an idle-check ticker that warns inactive sessions and kicks them past
//     the configured deadline
//   - an autosave ticker, guarded against overlapping saves
//
// # Transport Independence
//
// Outbox is the only way a WorldRoom talks to the outside world; it knows
// nothing about WebSockets or HTTP. pkg/gateway supplies the concrete
// implementation.
package room
