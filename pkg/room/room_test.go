package room

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoom(t *testing.T, size int) (*WorldRoom, *fakeStore, *fakeOutbox) {
	t.Helper()
	m := perimeterWalledMap(t, size)
	store := newFakeStore()
	store.addWorld("world-1", "account-owner")
	outbox := newFakeOutbox()
	cfg := DefaultConfig()
	r := New("world-1", m, store, outbox, cfg, nil)
	require.NoError(t, r.OnCreate(context.Background()))
	return r, store, outbox
}

func join(t *testing.T, r *WorldRoom, sessionID, accountID string) {
	t.Helper()
	require.NoError(t, r.OnJoin(context.Background(), sessionID, accountID, accountID+"@example.com", ""))
}

// Scenario 1: simple move.
func TestWorldRoom_SimpleMove(t *testing.T) {
	r, _, _ := testRoom(t, 5)
	join(t, r, "s1", "account-owner")

	r.HandleInput("s1", RawInput{SequenceNumber: 1, Direction: "up"})
	r.tick()

	rec, ok := r.state.Get("s1")
	require.True(t, ok)
	assert.Equal(t, 2, rec.X)
	assert.Equal(t, 1, rec.Y)
	assert.Equal(t, 1, rec.LastProcessedSequenceNumber)
}

// Scenario 2: blocked move still advances the acknowledged sequence.
func TestWorldRoom_BlockedMoveUpdatesSequence(t *testing.T) {
	r, _, _ := testRoom(t, 5)
	join(t, r, "s1", "account-owner")

	r.state.Mutate("s1", func(rec *PlayerRecord) { rec.X, rec.Y = 1, 1 })
	r.state.FlushPatches()

	r.HandleInput("s1", RawInput{SequenceNumber: 7, Direction: "up"})
	r.tick()

	rec, ok := r.state.Get("s1")
	require.True(t, ok)
	assert.Equal(t, 1, rec.X)
	assert.Equal(t, 1, rec.Y)
	assert.Equal(t, 7, rec.LastProcessedSequenceNumber, "blocked move must still acknowledge the sequence number")
}

// Scenario 3: exactly one input consumed per tick, draining a burst in order.
func TestWorldRoom_OneInputPerTick(t *testing.T) {
	r, _, _ := testRoom(t, 5)
	join(t, r, "s1", "account-owner")

	r.HandleInput("s1", RawInput{SequenceNumber: 1, Direction: "right"})
	r.HandleInput("s1", RawInput{SequenceNumber: 2, Direction: "down"})
	r.HandleInput("s1", RawInput{SequenceNumber: 3, Direction: "left"})

	r.tick()
	rec, _ := r.state.Get("s1")
	assert.Equal(t, 3, rec.X)
	assert.Equal(t, 2, rec.Y)
	assert.Equal(t, 1, rec.LastProcessedSequenceNumber)

	r.tick()
	rec, _ = r.state.Get("s1")
	assert.Equal(t, 3, rec.X)
	assert.Equal(t, 3, rec.Y)
	assert.Equal(t, 2, rec.LastProcessedSequenceNumber)

	r.tick()
	rec, _ = r.state.Get("s1")
	assert.Equal(t, 2, rec.X)
	assert.Equal(t, 3, rec.Y)
	assert.Equal(t, 3, rec.LastProcessedSequenceNumber)
}

// Scenario 4: stale input leaves state unchanged but still resets the idle timer.
func TestWorldRoom_StaleInputRejected(t *testing.T) {
	r, _, _ := testRoom(t, 5)
	join(t, r, "s1", "account-owner")

	r.state.Mutate("s1", func(rec *PlayerRecord) { rec.LastProcessedSequenceNumber = 5 })
	r.state.FlushPatches()
	r.idle.touch("s1", time.Now().Add(-20*time.Minute))

	r.HandleInput("s1", RawInput{SequenceNumber: 3, Direction: "right"})
	r.tick()

	rec, _ := r.state.Get("s1")
	assert.Equal(t, 5, rec.LastProcessedSequenceNumber)

	elapsed, ok := r.idle.elapsedSince("s1", time.Now())
	require.True(t, ok)
	assert.Less(t, elapsed, time.Minute, "idle timer must reset even for a stale input")
}

// Scenario 5: host ownership on cold vs warm room.
func TestWorldRoom_HostOwnership(t *testing.T) {
	r, _, _ := testRoom(t, 5)

	err := r.OnJoin(context.Background(), "s-intruder", "account-b", "b@example.com", "")
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, 0, r.state.Len())

	join(t, r, "s-owner", "account-owner")
	assert.Equal(t, 1, r.state.Len())

	err = r.OnJoin(context.Background(), "s-guest", "account-b", "b@example.com", "")
	assert.NoError(t, err)
	assert.Equal(t, 2, r.state.Len())
}

// Scenario 6: idle warning then kick at the documented thresholds.
func TestWorldRoom_IdleWarningThenKick(t *testing.T) {
	r, _, outbox := testRoom(t, 5)
	join(t, r, "s1", "account-owner")

	r.idle.touch("s1", time.Now().Add(-14*time.Minute))
	r.checkIdle()

	msgs := outbox.messagesFor("s1")
	require.Len(t, msgs, 1)
	assert.Equal(t, OutboundIdleWarning, msgs[0].Kind)
	assert.Equal(t, 60, msgs[0].SecondsRemaining)

	r.checkIdle()
	assert.Len(t, outbox.messagesFor("s1"), 1, "a session already warned must not be warned twice")

	r.idle.touch("s1", time.Now().Add(-15*time.Minute))
	r.idle.warned = map[string]struct{}{} // clear so we isolate the kick check
	r.checkIdle()

	// The fake outbox keeps every message, so the earlier warning is still
	// first and the kick is the one new message.
	msgs = outbox.messagesFor("s1")
	require.Len(t, msgs, 2)
	assert.Equal(t, OutboundIdleKick, msgs[1].Kind)

	code, ok := outbox.closeCodeFor("s1")
	require.True(t, ok)
	assert.Equal(t, CloseIdleTimeout, code)
}

func TestWorldRoom_RoomFullRejectsJoin(t *testing.T) {
	r, _, _ := testRoom(t, 5)
	r.cfg.MaxPartySize = 1
	join(t, r, "s1", "account-owner")

	err := r.OnJoin(context.Background(), "s2", "account-b", "b@example.com", "")
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestWorldRoom_OnLeaveIsIdempotent(t *testing.T) {
	r, store, _ := testRoom(t, 5)
	join(t, r, "s1", "account-owner")

	assert.NotPanics(t, func() {
		r.OnLeave("s1", true)
		r.OnLeave("s1", true)
	})
	assert.False(t, r.state.Has("s1"))

	deadline := time.Now().Add(2 * time.Second)
	for store.saveCallCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.GreaterOrEqual(t, store.saveCallCount(), 1, "dispose on last leave must save at least once")
}

func TestWorldRoom_OnLeaveClearsHostSession(t *testing.T) {
	r, _, _ := testRoom(t, 5)
	join(t, r, "s1", "account-owner")
	join(t, r, "s2", "account-b")

	assert.Equal(t, "s1", r.hostSessionID)
	r.OnLeave("s1", true)
	assert.Empty(t, r.hostSessionID)
	assert.Equal(t, 1, r.state.Len(), "room stays warm with s2 still present")
}

func TestWorldRoom_WorldNotFound(t *testing.T) {
	store := newFakeStore() // no world seeded
	m := perimeterWalledMap(t, 5)
	r := New("missing-world", m, store, newFakeOutbox(), DefaultConfig(), nil)

	err := r.OnCreate(context.Background())
	assert.ErrorIs(t, err, ErrWorldNotFound)
}

func TestWorldRoom_AutoSaveSingleFlight(t *testing.T) {
	r, store, _ := testRoom(t, 5)
	join(t, r, "s1", "account-owner")

	r.mu.Lock()
	r.saving = true
	r.mu.Unlock()

	r.autoSave(context.Background())
	assert.Equal(t, 0, store.saveCallCount(), "autoSave must be a no-op while a save is already in flight")

	r.mu.Lock()
	r.saving = false
	r.mu.Unlock()

	r.autoSave(context.Background())
	assert.Equal(t, 1, store.saveCallCount())
}

func TestWorldRoom_DisposeCancelsTimersAndSavesOnce(t *testing.T) {
	r, store, _ := testRoom(t, 5)
	r.Start()
	join(t, r, "s1", "account-owner")

	r.OnLeave("s1", true)

	deadline := time.Now().Add(2 * time.Second)
	for store.saveCallCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, StatusDisposing, r.Status())
	assert.GreaterOrEqual(t, store.saveCallCount(), 1)
}
